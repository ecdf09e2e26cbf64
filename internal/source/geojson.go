package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/plat-sld/internal/maprt"
)

// GeoJSONOptions configure LoadGeoJSONDir.
type GeoJSONOptions struct {
	// Project converts coordinates into the map projection. Nil keeps the
	// coordinates as they are in the files.
	Project orb.Projection
	Logger  *slog.Logger
}

// ProjectionFor returns the orb projection taking RFC 7946 (WGS84)
// coordinates into the map projection code, or nil when the data is
// expected in map units already.
func ProjectionFor(code string) orb.Projection {
	if code == (maprt.WebMercator{}).Code() {
		return project.WGS84.ToMercator
	}
	return nil
}

// LoadGeoJSONDir loads every *.geojson and *.json file in dir as a table
// named after the file, and every *.sld file as a style named after the
// file. Subdirectories are ignored.
func LoadGeoJSONDir(dir string, opts GeoJSONOptions) (*Set, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading geojson dir: %w", err)
	}

	set := newSet(dir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		kind, ok := FileKind(entry.Name())
		if !ok {
			continue
		}
		switch kind {
		case "GeoJSON":
			src, err := loadGeoJSONFile(path, opts.Project)
			if err != nil {
				return nil, err
			}
			set.Tables[stem(path)] = src
		case "SLD":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			set.Styles[stem(path)] = data
		}
	}
	logger.Info("geojson dir loaded", "dir", dir, "summary", set.Summary())
	return set, nil
}

func loadGeoJSONFile(path string, proj orb.Projection) (*maprt.VectorSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if proj != nil {
		for _, f := range fc.Features {
			if f.Geometry != nil {
				f.Geometry = project.Geometry(f.Geometry, proj)
			}
		}
	}
	return maprt.NewVectorSource(fc), nil
}
