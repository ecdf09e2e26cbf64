package styler

import (
	"cmp"
	"math"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
	"github.com/joeblew999/plat-sld/internal/ui"
)

// SingleSymbolRuleName is the first-rule name QGIS exports for layers drawn
// with one symbol.
const SingleSymbolRuleName = "Single symbol"

// SymbolID identifies a symbol. Symbol IDs are counted separately from
// definition node IDs.
type SymbolID int

// SymbologyShape classifies how many distinct symbols a layer shows.
type SymbologyShape int

const (
	NoSymbol SymbologyShape = iota
	SingleSymbol
	MultiSymbol
)

func (s SymbologyShape) String() string {
	switch s {
	case SingleSymbol:
		return "singleSymbol"
	case MultiSymbol:
		return "multiSymbol"
	default:
		return "noSymbol"
	}
}

// MarshalText encodes the shape by name.
func (s SymbologyShape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Symbol is one selector/legend entry, drawn from a single rule.
type Symbol struct {
	ID    SymbolID
	Label string

	MinScaleDenominator *float64
	MaxScaleDenominator *float64
	// ZoomModified is set when the rule carries a scale bound.
	ZoomModified bool

	// Resolver draws the symbol on its own: the rule's symbolizers without
	// filter or scale bounds.
	Resolver maprt.StyleFunc

	leaf           *layerdef.Leaf
	selectorCanvas *ui.Element
	legendCanvas   *ui.Element
}

// Leaf is the layer the symbol belongs to.
func (s *Symbol) Leaf() *layerdef.Leaf { return s.leaf }

// Symbology is what symbol extraction produced for one leaf.
type Symbology struct {
	Shape   SymbologyShape
	Symbols []*Symbol

	// Example is the feature previews are drawn with, RealResolution the
	// resolution they are drawn at when redrawn after an image load.
	Example        *geojson.Feature
	RealResolution float64

	StyleName string
	Rules     *sld.FeatureTypeStyle
}

// extractSymbols derives the symbols of a styled leaf: one per rule with at
// least one non-text symbolizer. Scale-bounded symbols are registered for
// zoom updates.
func (s *Session) extractSymbols(leaf *layerdef.Leaf, fts *sld.FeatureTypeStyle, example *geojson.Feature, realResolution float64, opts Options) *Symbology {
	sy := &Symbology{
		Example:        example,
		RealResolution: realResolution,
		StyleName:      leaf.StyleName,
		Rules:          fts,
	}
	multi := false
	if len(fts.Rules) > 0 {
		name := fts.Rules[0].Name
		multi = name != "" && name != SingleSymbolRuleName
	}

	for _, rule := range fts.Rules {
		simple := &sld.Rule{
			PointSymbolizers:   rule.PointSymbolizers,
			LineSymbolizers:    rule.LineSymbolizers,
			PolygonSymbolizers: rule.PolygonSymbolizers,
		}
		if simple.GraphicSymbolizerCount() == 0 {
			continue
		}
		sym := &Symbol{
			ID:                  s.nextSymbol,
			Label:               cmp.Or(rule.Name, "No label"),
			MinScaleDenominator: rule.MinScaleDenominator,
			MaxScaleDenominator: rule.MaxScaleDenominator,
			ZoomModified:        rule.HasScale(),
			leaf:                leaf,
		}
		s.nextSymbol++
		sym.Resolver = s.symbolResolver(sym, &sld.FeatureTypeStyle{Rules: []*sld.Rule{simple}}, opts)

		if sym.ZoomModified && !leaf.ForceSingleSymbol {
			s.registry.Register(sym.ID, sym.MinScaleDenominator, sym.MaxScaleDenominator)
		}
		sy.Symbols = append(sy.Symbols, sym)
		s.symbols[sym.ID] = sym
	}

	switch {
	case len(sy.Symbols) == 0:
		sy.Shape = NoSymbol
	case leaf.ForceSingleSymbol:
		sy.Shape = SingleSymbol
		if lo, hi, ok := scaleUnion(sy.Symbols); ok {
			s.registry.Register(sy.Symbols[0].ID, &lo, &hi)
		}
	case multi:
		sy.Shape = MultiSymbol
	default:
		sy.Shape = SingleSymbol
	}
	s.symbology[leaf.ID] = sy
	s.logger.Debug("symbols extracted", "layer", leaf.Label, "shape", sy.Shape, "symbols", len(sy.Symbols))
	return sy
}

// symbolResolver builds the preview resolver of one symbol. Previews are
// always tweaked as if the resolution changed.
func (s *Session) symbolResolver(sym *Symbol, fts *sld.FeatureTypeStyle, opts Options) maprt.StyleFunc {
	id := sym.ID
	base := sld.BuildStyleResolver(fts, sld.ResolverOptions{
		OnImageLoaded: func() { s.loop.Post(func() { s.refreshSymbol(id) }) },
		Icons:         opts.Icons,
	})
	if opts.TweakStyle == nil {
		return base
	}
	styleName := sym.leaf.StyleName
	return func(f *geojson.Feature, resolution float64) []*maprt.Style {
		return opts.TweakStyle(TweakContext{
			Rules:             fts,
			Styles:            base(f, resolution),
			StyleName:         styleName,
			Feature:           f,
			RealResolution:    resolution,
			ResolutionChanged: true,
			SymbolPreview:     true,
			SymbolLabel:       sym.Label,
		})
	}
}

// scaleUnion combines the scale ranges of symbols shown as one. ok is false
// when the union is unbounded.
func scaleUnion(symbols []*Symbol) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), 0
	for _, sym := range symbols {
		smin, smax := 0.0, math.Inf(1)
		if sym.MinScaleDenominator != nil {
			smin = *sym.MinScaleDenominator
		}
		if sym.MaxScaleDenominator != nil {
			smax = *sym.MaxScaleDenominator
		}
		lo, hi = min(lo, smin), max(hi, smax)
	}
	return lo, hi, lo > 0 || !math.IsInf(hi, 1)
}
