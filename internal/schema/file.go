package schema

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Tables []Table `yaml:"tables"`
}

// Load returns the catalog described by path, or the built-in catalog when path is empty.
func Load(path string) (Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read schema file %s: %w", path, err)
	}
	catalog, err := Parse(raw)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	return catalog, nil
}

func Parse(raw []byte) (Catalog, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	var doc fileDocument
	if err := decoder.Decode(&doc); err != nil {
		return Catalog{}, err
	}
	return New(doc.Tables)
}
