package present

import (
	"strings"

	"github.com/sqlchat/sqlchat/internal/query"
)

const (
	FamilyLine      = "line"
	FamilyTrend     = "trend"
	FamilyBar       = "bar"
	FamilyScatter   = "scatter"
	FamilyHistogram = "histogram"
	FamilyPie       = "pie"
)

var supportedFamilies = []string{FamilyLine, FamilyBar, FamilyScatter, FamilyHistogram, FamilyPie, FamilyTrend}

func SupportedFamilies() []string {
	out := make([]string, len(supportedFamilies))
	copy(out, supportedFamilies)
	return out
}

// ChartSpec binds result columns to chart roles. For bar charts with several
// categorical columns, CompositeX lists them and X is their names joined by "-".
type ChartSpec struct {
	Family     string   `json:"family"`
	X          string   `json:"x,omitempty"`
	Y          []string `json:"y,omitempty"`
	Names      string   `json:"names,omitempty"`
	Values     string   `json:"values,omitempty"`
	CompositeX []string `json:"composite_x,omitempty"`
}

type columnSets struct {
	numeric     []string
	categorical []string
	temporal    []string
}

func partitionColumns(columns []query.Column) columnSets {
	var sets columnSets
	for _, column := range columns {
		switch column.Kind {
		case query.Numeric:
			sets.numeric = append(sets.numeric, column.Name)
		case query.Temporal:
			sets.temporal = append(sets.temporal, column.Name)
		default:
			sets.categorical = append(sets.categorical, column.Name)
		}
	}
	return sets
}

// ChooseChart returns nil when family is unknown or the result lacks the
// column kinds it needs.
func ChooseChart(result query.Result, family string) *ChartSpec {
	if !result.HasRows() {
		return nil
	}
	family = strings.ToLower(strings.TrimSpace(family))
	sets := partitionColumns(result.Columns)

	switch family {
	case FamilyLine, FamilyTrend:
		x := first(sets.temporal, sets.categorical)
		if x == "" || len(sets.numeric) == 0 {
			return nil
		}
		return &ChartSpec{Family: family, X: x, Y: sets.numeric}
	case FamilyBar:
		x := first(sets.categorical, sets.temporal)
		if x == "" || len(sets.numeric) == 0 {
			return nil
		}
		spec := &ChartSpec{Family: family, X: x, Y: sets.numeric}
		if len(sets.categorical) >= 2 {
			spec.CompositeX = sets.categorical
			spec.X = strings.Join(sets.categorical, "-")
		}
		return spec
	case FamilyScatter:
		if len(sets.numeric) < 2 {
			return nil
		}
		return &ChartSpec{Family: family, X: sets.numeric[0], Y: []string{sets.numeric[1]}}
	case FamilyHistogram:
		if len(sets.numeric) == 0 {
			return nil
		}
		return &ChartSpec{Family: family, X: sets.numeric[0]}
	case FamilyPie:
		if len(sets.categorical) == 0 || len(sets.numeric) == 0 {
			return nil
		}
		return &ChartSpec{Family: family, Names: sets.categorical[0], Values: sets.numeric[0]}
	default:
		return nil
	}
}

func first(lists ...[]string) string {
	for _, list := range lists {
		if len(list) > 0 {
			return list[0]
		}
	}
	return ""
}
