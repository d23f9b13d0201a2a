package schema

import (
	"fmt"
	"strings"
)

// Table describes one relation as free-form column definition text.
type Table struct {
	Name       string `yaml:"name" json:"name"`
	Definition string `yaml:"definition" json:"definition"`
}

// Catalog is the ordered, read-only set of tables used as prompt context.
type Catalog struct {
	tables []Table
}

func New(tables []Table) (Catalog, error) {
	if len(tables) == 0 {
		return Catalog{}, fmt.Errorf("schema catalog requires at least one table")
	}
	seen := make(map[string]struct{}, len(tables))
	copied := make([]Table, 0, len(tables))
	for i, table := range tables {
		name := strings.TrimSpace(table.Name)
		definition := strings.TrimSpace(table.Definition)
		if name == "" {
			return Catalog{}, fmt.Errorf("table %d: name is required", i)
		}
		if definition == "" {
			return Catalog{}, fmt.Errorf("table %q: definition is required", name)
		}
		if _, ok := seen[name]; ok {
			return Catalog{}, fmt.Errorf("table %q: duplicate name", name)
		}
		seen[name] = struct{}{}
		copied = append(copied, Table{Name: name, Definition: definition})
	}
	return Catalog{tables: copied}, nil
}

func (c Catalog) Tables() []Table {
	out := make([]Table, len(c.tables))
	copy(out, c.tables)
	return out
}

func (c Catalog) Len() int {
	return len(c.tables)
}

func (c Catalog) Lookup(name string) (Table, bool) {
	for _, table := range c.tables {
		if table.Name == name {
			return table, true
		}
	}
	return Table{}, false
}

// Render flattens the catalog into "Table <name>: <definition>" lines.
func (c Catalog) Render() string {
	lines := make([]string, 0, len(c.tables))
	for _, table := range c.tables {
		lines = append(lines, fmt.Sprintf("Table %s: %s", table.Name, table.Definition))
	}
	return strings.Join(lines, "\n")
}
