package simulator

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

type seedFile struct {
	Apartments []Update `yaml:"apartments"`
}

// LoadSeed reads the YAML fixture used to populate an empty dashboard.
func LoadSeed(path string) ([]Update, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i, u := range f.Apartments {
		if u.ApartmentID == "" || u.Agency == "" {
			return nil, fmt.Errorf("seed %s: entry %d needs id and agency", path, i)
		}
	}
	return f.Apartments, nil
}
