package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadSLDFiles reads each file as a style named after the file. A later file
// with the same name replaces an earlier one.
func LoadSLDFiles(paths ...string) (map[string][]byte, error) {
	styles := make(map[string][]byte, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading sld file: %w", err)
		}
		styles[stem(path)] = data
	}
	return styles, nil
}

// LoadSLDDir reads every *.sld file in dir.
func LoadSLDDir(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading sld dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".sld") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return LoadSLDFiles(paths...)
}
