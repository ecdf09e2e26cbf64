// Package sld reads OGC Styled Layer Descriptor documents (SLD 1.0 and
// SE 1.1, as exported by QGIS) into rule sets and turns a rule set into a
// maprt.StyleFunc.
//
// Element names are matched by local name only, so both the sld: and se:
// namespaces decode into the same structures.
package sld

import (
	"strconv"
	"strings"
)

// StyledLayerDescriptor is the document root.
type StyledLayerDescriptor struct {
	Version     string   `xml:"version,attr" json:"version,omitempty"`
	NamedLayers []*Layer `xml:"NamedLayer" json:"namedLayers,omitempty"`
	UserLayers  []*Layer `xml:"UserLayer" json:"userLayers,omitempty"`
}

// Layer is a NamedLayer or UserLayer.
type Layer struct {
	Name   string       `xml:"Name" json:"name"`
	Styles []*UserStyle `xml:"UserStyle" json:"styles"`
}

// UserStyle groups feature type styles.
type UserStyle struct {
	Name              string              `xml:"Name" json:"name"`
	Title             string              `xml:"Title" json:"title,omitempty"`
	IsDefault         bool                `xml:"IsDefault" json:"isDefault,omitempty"`
	FeatureTypeStyles []*FeatureTypeStyle `xml:"FeatureTypeStyle" json:"featureTypeStyles"`
}

// FeatureTypeStyle is the rule set of one layer.
type FeatureTypeStyle struct {
	Name  string  `xml:"Name" json:"name,omitempty"`
	Rules []*Rule `xml:"Rule" json:"rules"`
}

// Rule selects features (by filter and scale) and lists how to draw them.
type Rule struct {
	Name                string               `xml:"Name" json:"name,omitempty"`
	Title               string               `xml:"Title" json:"title,omitempty"`
	Filter              *Filter              `xml:"Filter" json:"filter,omitempty"`
	ElseFilter          *struct{}            `xml:"ElseFilter" json:"elseFilter,omitempty"`
	MinScaleDenominator *float64             `xml:"MinScaleDenominator" json:"minScaleDenominator,omitempty"`
	MaxScaleDenominator *float64             `xml:"MaxScaleDenominator" json:"maxScaleDenominator,omitempty"`
	PointSymbolizers    []*PointSymbolizer   `xml:"PointSymbolizer" json:"pointSymbolizers,omitempty"`
	LineSymbolizers     []*LineSymbolizer    `xml:"LineSymbolizer" json:"lineSymbolizers,omitempty"`
	PolygonSymbolizers  []*PolygonSymbolizer `xml:"PolygonSymbolizer" json:"polygonSymbolizers,omitempty"`
	TextSymbolizers     []*TextSymbolizer    `xml:"TextSymbolizer" json:"textSymbolizers,omitempty"`
}

// InScale reports whether scaleDenominator lies in [min, max). A missing
// bound is open.
func (r *Rule) InScale(scaleDenominator float64) bool {
	if r.MinScaleDenominator != nil && scaleDenominator < *r.MinScaleDenominator {
		return false
	}
	if r.MaxScaleDenominator != nil && scaleDenominator >= *r.MaxScaleDenominator {
		return false
	}
	return true
}

// HasScale reports whether either scale bound is set.
func (r *Rule) HasScale() bool {
	return r.MinScaleDenominator != nil || r.MaxScaleDenominator != nil
}

// GraphicSymbolizerCount counts the non-text symbolizers.
func (r *Rule) GraphicSymbolizerCount() int {
	return len(r.PointSymbolizers) + len(r.LineSymbolizers) + len(r.PolygonSymbolizers)
}

// PointSymbolizer draws a Graphic at points.
type PointSymbolizer struct {
	Graphic *Graphic `xml:"Graphic" json:"graphic,omitempty"`
}

// LineSymbolizer strokes lines and polygon outlines.
type LineSymbolizer struct {
	Stroke *Stroke `xml:"Stroke" json:"stroke,omitempty"`
}

// PolygonSymbolizer fills and outlines polygons.
type PolygonSymbolizer struct {
	Fill   *Fill   `xml:"Fill" json:"fill,omitempty"`
	Stroke *Stroke `xml:"Stroke" json:"stroke,omitempty"`
}

// TextSymbolizer is decoded so rule sets round-trip, but labels are not
// drawn in symbol previews.
type TextSymbolizer struct {
	Label *Expr `xml:"Label" json:"label,omitempty"`
	Fill  *Fill `xml:"Fill" json:"fill,omitempty"`
}

// Graphic is a mark or external graphic with size and placement.
type Graphic struct {
	Marks            []*Mark            `xml:"Mark" json:"marks,omitempty"`
	ExternalGraphics []*ExternalGraphic `xml:"ExternalGraphic" json:"externalGraphics,omitempty"`
	Opacity          *Expr              `xml:"Opacity" json:"opacity,omitempty"`
	Size             *Expr              `xml:"Size" json:"size,omitempty"`
	Rotation         *Expr              `xml:"Rotation" json:"rotation,omitempty"`
	Displacement     *Displacement      `xml:"Displacement" json:"displacement,omitempty"`
	AnchorPoint      *AnchorPoint       `xml:"AnchorPoint" json:"anchorPoint,omitempty"`
}

// Mark is a well-known shape.
type Mark struct {
	WellKnownName string  `xml:"WellKnownName" json:"wellKnownName,omitempty"`
	Fill          *Fill   `xml:"Fill" json:"fill,omitempty"`
	Stroke        *Stroke `xml:"Stroke" json:"stroke,omitempty"`
}

// ExternalGraphic references a raster image.
type ExternalGraphic struct {
	OnlineResource struct {
		Href string `xml:"href,attr" json:"href"`
	} `xml:"OnlineResource" json:"onlineResource"`
	Format string `xml:"Format" json:"format,omitempty"`
}

// Displacement offsets a point graphic in pixels, positive Y upwards.
type Displacement struct {
	X *Expr `xml:"DisplacementX" json:"x,omitempty"`
	Y *Expr `xml:"DisplacementY" json:"y,omitempty"`
}

// AnchorPoint is the graphic anchor as fractions of its size.
type AnchorPoint struct {
	X *Expr `xml:"AnchorPointX" json:"x,omitempty"`
	Y *Expr `xml:"AnchorPointY" json:"y,omitempty"`
}

// Fill is a solid colour and/or a repeated graphic.
type Fill struct {
	GraphicFill *struct {
		Graphic *Graphic `xml:"Graphic" json:"graphic,omitempty"`
	} `xml:"GraphicFill" json:"graphicFill,omitempty"`
	Params
}

// Stroke is a line style, optionally drawn with a repeated graphic.
type Stroke struct {
	GraphicStroke *struct {
		Graphic *Graphic `xml:"Graphic" json:"graphic,omitempty"`
	} `xml:"GraphicStroke" json:"graphicStroke,omitempty"`
	Params
}

// Params holds CssParameter (SLD 1.0) and SvgParameter (SE 1.1) values.
type Params struct {
	CSS []*Param `xml:"CssParameter" json:"cssParameters,omitempty"`
	SVG []*Param `xml:"SvgParameter" json:"svgParameters,omitempty"`
}

// Param is a named expression.
type Param struct {
	Name string `xml:"name,attr" json:"name"`
	Expr
}

// Get returns the raw string value of the named parameter.
func (p *Params) Get(name string) (string, bool) {
	for _, list := range [][]*Param{p.SVG, p.CSS} {
		for _, param := range list {
			if param.Name == name {
				return param.Literal(), true
			}
		}
	}
	return "", false
}

// Float returns the named parameter as a number, or def.
func (p *Params) Float(name string, def float64) float64 {
	v, ok := p.Get(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// Set replaces (or adds) the named parameter with a literal value.
func (p *Params) Set(name, value string) {
	for _, list := range [][]*Param{p.SVG, p.CSS} {
		for _, param := range list {
			if param.Name == name {
				param.Expr = Expr{Text: value}
				return
			}
		}
	}
	p.SVG = append(p.SVG, &Param{Name: name, Expr: Expr{Text: value}})
}
