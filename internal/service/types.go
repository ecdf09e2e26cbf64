// Package service runs a styled map session behind the HTTP API: it loads
// the map configuration and its sources, owns the styler session and
// serializes every access to it through the session loop.
package service

// LayerNode is one node of the layer tree.
type LayerNode struct {
	ID         int         `json:"id" doc:"Definition node ID" example:"2"`
	Kind       string      `json:"kind" enum:"group,layer" doc:"Node kind"`
	Label      string      `json:"label" doc:"Display label" example:"Roads"`
	Title      string      `json:"title" doc:"Label with the load-state marker" example:"Roads (No features)"`
	Table      string      `json:"table,omitempty" doc:"Bound table name"`
	StyleName  string      `json:"styleName,omitempty" doc:"Style the layer is drawn with"`
	State      string      `json:"state,omitempty" doc:"Load-state marker: loading, no-features, style-missing or no-layer-data"`
	Fold       string      `json:"fold,omitempty" doc:"Initial selector fold state of a group"`
	Visible    bool        `json:"visible" doc:"Current visibility"`
	Selectable bool        `json:"selectable" doc:"Whether features can be clicked"`
	Symbology  *Symbology  `json:"symbology,omitempty" doc:"Extracted symbols"`
	Children   []LayerNode `json:"children,omitempty" doc:"Child nodes of a group"`
}

// Symbology lists the symbols of one layer.
type Symbology struct {
	Shape   string   `json:"shape" enum:"noSymbol,singleSymbol,multiSymbol" doc:"Symbology shape"`
	Symbols []Symbol `json:"symbols" doc:"Symbols in rule order"`
}

// Symbol is one selector/legend entry.
type Symbol struct {
	ID                  int      `json:"id" doc:"Symbol ID"`
	Label               string   `json:"label" doc:"Rule label"`
	MinScaleDenominator *float64 `json:"minScaleDenominator,omitempty" doc:"Lower scale bound"`
	MaxScaleDenominator *float64 `json:"maxScaleDenominator,omitempty" doc:"Upper scale bound"`
	InRange             bool     `json:"inRange" doc:"Whether the symbol is drawn at the current scale"`
	SelectorURL         string   `json:"selectorUrl,omitempty" doc:"Selector symbol image"`
	LegendURL           string   `json:"legendUrl,omitempty" doc:"Legend symbol image"`
}

// ViewState is the map view.
type ViewState struct {
	Resolution       float64    `json:"resolution" doc:"Projection units per pixel"`
	Center           [2]float64 `json:"center" doc:"View centre in projection units"`
	RealResolution   float64    `json:"realResolution,omitempty" readOnly:"true" doc:"Metres per pixel at the centre"`
	ScaleDenominator float64    `json:"scaleDenominator,omitempty" readOnly:"true" doc:"OGC scale denominator"`
	Projection       string     `json:"projection,omitempty" readOnly:"true" doc:"Projection code" example:"EPSG:3857"`
}

// SourceFile is a configured source file.
type SourceFile struct {
	Name     string `json:"name" doc:"File or directory name" example:"canal.gpkg"`
	Path     string `json:"path" doc:"Path as configured"`
	Size     string `json:"size,omitempty" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"GeoPackage, GeoJSON or SLD" example:"GeoPackage"`
	Role     string `json:"role" enum:"data,style,override" doc:"Tables, styles stored with tables, or override styles"`
}

// LoadReport records how one source was applied.
type LoadReport struct {
	Source   string   `json:"source" doc:"Source label"`
	Summary  string   `json:"summary,omitempty" doc:"Table and feature counts"`
	Error    string   `json:"error,omitempty" doc:"Load failure"`
	Problems []string `json:"problems,omitempty" doc:"Per-layer errors"`
	Warnings []string `json:"warnings,omitempty" doc:"Unused tables and overwritten bindings"`
}

// Info summarizes the session.
type Info struct {
	Title      string       `json:"title" doc:"Map title"`
	Layers     int          `json:"layers" doc:"Number of data layers"`
	Groups     int          `json:"groups" doc:"Number of groups"`
	Symbols    int          `json:"symbols" doc:"Number of extracted symbols"`
	ScaleGated int          `json:"scaleGated" doc:"Number of scale-gated symbols"`
	Missing    []string     `json:"missing,omitempty" doc:"Tables with no data"`
	Sources    []LoadReport `json:"sources" doc:"Source load reports"`
}
