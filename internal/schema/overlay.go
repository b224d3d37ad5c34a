package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayFile is the YAML document accepted by LoadOverlay.
type overlayFile struct {
	Tables []*TableDefinition `yaml:"tables"`
}

// LoadOverlay reads table definitions from a YAML file and merges them over
// the built-in registry. A table with the same name as a built-in table
// replaces it wholesale; new tables are added.
//
// Overlays let a deployment adjust the schema contract (extra columns, a
// changed default) without rebuilding the binary.
func LoadOverlay(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema overlay: %w", err)
	}

	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse schema overlay %s: %w", path, err)
	}

	merged := map[string]*TableDefinition{}
	for _, def := range Default().tables {
		merged[def.Name] = def
	}
	for _, def := range overlay.Tables {
		if def.Name == "" {
			return nil, fmt.Errorf("schema overlay %s: table with no name", path)
		}
		merged[def.Name] = def
	}

	defs := make([]*TableDefinition, 0, len(merged))
	for _, def := range merged {
		defs = append(defs, def)
	}
	return NewRegistry(defs...)
}
