package reputation

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed seed/default.yaml
var defaultSeed []byte

// DefaultDataset returns the bundled starter lists.
func DefaultDataset() (Dataset, error) {
	return DecodeDataset(defaultSeed)
}

// LoadDataset reads a dataset from a YAML or JSON file.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Dataset{}, fmt.Errorf("reading dataset %s: %w", path, err)
	}

	return DecodeDataset(data)
}

// DecodeDataset parses YAML (or JSON, which is valid YAML) into a dataset.
func DecodeDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("decoding dataset: %w", err)
	}

	return ds, nil
}

// EncodeDataset renders a dataset as YAML.
func EncodeDataset(ds Dataset) ([]byte, error) {
	return yaml.Marshal(ds)
}
