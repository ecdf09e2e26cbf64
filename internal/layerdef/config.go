package layerdef

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a list of raw descriptors from YAML (or JSON, which YAML
// accepts).
func Parse(data []byte) ([]Raw, error) {
	var raws []Raw
	if err := yaml.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decoding layer definitions: %w", err)
	}
	return raws, nil
}

// LoadFile reads and decodes raw descriptors from path.
func LoadFile(path string) ([]Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layer definitions: %w", err)
	}
	return Parse(data)
}
