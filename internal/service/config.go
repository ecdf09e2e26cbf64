package service

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-sld/internal/canvas"
	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/styler"
)

// MapConfig is a map configuration file (YAML or JSON).
type MapConfig struct {
	Title      string         `json:"title" yaml:"title"`
	Projection string         `json:"projection" yaml:"projection"`
	View       ViewConfig     `json:"view" yaml:"view"`
	DataLayers []layerdef.Raw `json:"dataLayers" yaml:"dataLayers"`
	Sources    SourcesConfig  `json:"sources" yaml:"sources"`
	Styler     StylerConfig   `json:"styler" yaml:"styler"`
}

// ViewConfig is the initial view.
type ViewConfig struct {
	Resolution float64    `json:"resolution" yaml:"resolution"`
	Center     [2]float64 `json:"center" yaml:"center"`
}

// SourcesConfig lists the data and style inputs. Relative paths resolve
// against the directory of the configuration file.
type SourcesConfig struct {
	GeoPackages []string `json:"geopackages,omitempty" yaml:"geopackages,omitempty"`
	GeoJSONDirs []string `json:"geojsonDirs,omitempty" yaml:"geojsonDirs,omitempty"`
	// SLDFiles and SLDDirs are override styles, used in preference to the
	// styles stored with the data.
	SLDFiles []string `json:"sldFiles,omitempty" yaml:"sldFiles,omitempty"`
	SLDDirs  []string `json:"sldDirs,omitempty" yaml:"sldDirs,omitempty"`
}

// StylerConfig are the symbol and tweak options.
type StylerConfig struct {
	SelectorSymbols           *bool              `json:"selectorSymbols,omitempty" yaml:"selectorSymbols,omitempty"`
	Legend                    *bool              `json:"legend,omitempty" yaml:"legend,omitempty"`
	SelectorSymbolSizing      *canvas.Sizing     `json:"selectorSymbolSizing,omitempty" yaml:"selectorSymbolSizing,omitempty"`
	LegendSymbolSizing        *canvas.Sizing     `json:"legendSymbolSizing,omitempty" yaml:"legendSymbolSizing,omitempty"`
	PixelRatio                float64            `json:"pixelRatio,omitempty" yaml:"pixelRatio,omitempty"`
	DebugShowFeatureTypeStyle bool               `json:"debugShowFeatureTypeStyle,omitempty" yaml:"debugShowFeatureTypeStyle,omitempty"`
	IconCacheSize             int                `json:"iconCacheSize,omitempty" yaml:"iconCacheSize,omitempty"`
	Tweaks                    styler.TweakConfig `json:"tweaks,omitempty" yaml:"tweaks,omitempty"`
}

// DefaultResolution is the initial resolution when the configuration has
// none: about 1:50,000.
const DefaultResolution = 14

// ParseConfig decodes a map configuration.
func ParseConfig(data []byte) (MapConfig, error) {
	var cfg MapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MapConfig{}, fmt.Errorf("decoding map config: %w", err)
	}
	if len(cfg.DataLayers) == 0 {
		return MapConfig{}, fmt.Errorf("map config: no dataLayers defined")
	}
	if cfg.View.Resolution <= 0 {
		cfg.View.Resolution = DefaultResolution
	}
	return cfg, nil
}

// LoadConfig reads a map configuration and resolves its source paths
// against the file's directory.
func LoadConfig(path string) (MapConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MapConfig{}, fmt.Errorf("reading map config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return MapConfig{}, err
	}
	cfg.Sources = cfg.Sources.Resolve(filepath.Dir(path))
	return cfg, nil
}

// Resolve returns a copy with every relative path joined to dir.
func (c SourcesConfig) Resolve(dir string) SourcesConfig {
	resolve := func(paths []string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			if filepath.IsAbs(p) {
				out[i] = p
			} else {
				out[i] = filepath.Join(dir, p)
			}
		}
		return out
	}
	return SourcesConfig{
		GeoPackages: resolve(c.GeoPackages),
		GeoJSONDirs: resolve(c.GeoJSONDirs),
		SLDFiles:    resolve(c.SLDFiles),
		SLDDirs:     resolve(c.SLDDirs),
	}
}

// Options builds the styler options. Symbol extraction is on unless
// disabled.
func (c StylerConfig) Options() styler.Options {
	opts := styler.Options{
		SelectorSymbols:           c.SelectorSymbols == nil || *c.SelectorSymbols,
		Legend:                    c.Legend == nil || *c.Legend,
		PixelRatio:                c.PixelRatio,
		DebugShowFeatureTypeStyle: c.DebugShowFeatureTypeStyle,
		TweakStyle:                c.Tweaks.StyleTweak(),
	}
	if c.SelectorSymbolSizing != nil {
		opts.SelectorSizing = *c.SelectorSymbolSizing
	}
	if c.LegendSymbolSizing != nil {
		opts.LegendSizing = *c.LegendSymbolSizing
	}
	return opts
}
