// Package source loads the vector tables and SLD documents a map is styled
// from: GeoPackages (read through DuckDB), directories of GeoJSON files and
// standalone SLD files.
package source

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joeblew999/plat-sld/internal/maprt"
)

// Set is one batch of tables loaded from a single source, with the SLD
// documents found alongside them.
type Set struct {
	// Label names the source in logs and reports.
	Label string
	// Tables maps table name to features.
	Tables map[string]maprt.Source
	// Styles maps style name to raw SLD.
	Styles map[string][]byte
}

func newSet(label string) *Set {
	return &Set{Label: label, Tables: map[string]maprt.Source{}, Styles: map[string][]byte{}}
}

// TableNames returns the table names in sorted order.
func (s *Set) TableNames() []string {
	return slices.Sorted(maps.Keys(s.Tables))
}

// FeatureCount is the number of features over all tables.
func (s *Set) FeatureCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.Features())
	}
	return n
}

// Summary describes the set for logs, e.g. "3 tables, 1,204 features".
func (s *Set) Summary() string {
	return fmt.Sprintf("%d tables, %s features, %d styles",
		len(s.Tables), humanize.Comma(int64(s.FeatureCount())), len(s.Styles))
}

// stem is a file name without directory and extension. Table and style
// names are file stems.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileKind classifies a source file by extension.
func FileKind(name string) (string, bool) {
	kind, ok := extToKind[strings.ToLower(filepath.Ext(name))]
	return kind, ok
}

var extToKind = map[string]string{
	".gpkg":    "GeoPackage",
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
	".sld":     "SLD",
}

// FileSize returns the human-readable size of path.
func FileSize(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return humanize.Bytes(uint64(info.Size())), nil
}
