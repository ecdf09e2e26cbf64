package styler

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-sld/internal/canvas"
	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
)

// Options configure ApplyStyles.
type Options struct {
	// SelectorSymbols and Legend request symbol extraction for the layer
	// selector and the legend.
	SelectorSymbols bool
	Legend          bool

	// Symbol canvas sizes. Zero values keep the session defaults.
	SelectorSizing canvas.Sizing
	LegendSizing   canvas.Sizing
	PixelRatio     float64

	// Icons loads external graphics.
	Icons *sld.IconCache

	// TweakFeatureTypeStyle may patch or replace the parsed rule set of a
	// style before it is used.
	TweakFeatureTypeStyle func(styleName string, fts *sld.FeatureTypeStyle) *sld.FeatureTypeStyle

	// TweakStyle may adjust the styles resolved for a feature. It is only
	// called with at least one style, except for symbol previews.
	TweakStyle func(TweakContext) []*maprt.Style

	// DebugShowFeatureTypeStyle logs each parsed rule set as JSON.
	DebugShowFeatureTypeStyle bool
}

// TweakContext is passed to Options.TweakStyle.
type TweakContext struct {
	Rules     *sld.FeatureTypeStyle
	Styles    []*maprt.Style
	StyleName string
	Feature   *geojson.Feature

	// RealResolution is in metres per pixel.
	RealResolution float64
	// ResolutionChanged is false when every style was last tweaked at the
	// same resolution, so expensive adjustments may be skipped.
	ResolutionChanged bool

	// SymbolPreview is set when drawing a selector or legend symbol;
	// SymbolLabel is then the symbol label.
	SymbolPreview bool
	SymbolLabel   string
}

// MissingStyleError reports a leaf whose style is absent or unreadable.
type MissingStyleError struct {
	StyleName string
	Label     string
	Err       error
}

func (e *MissingStyleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("style %q for layer %q: %v", e.StyleName, e.Label, e.Err)
	}
	return fmt.Sprintf("no style %q for layer %q", e.StyleName, e.Label)
}

func (e *MissingStyleError) Unwrap() error { return e.Err }

// EmptySourceError reports a bound table without features.
type EmptySourceError struct {
	Table string
	Label string
}

func (e *EmptySourceError) Error() string {
	return fmt.Sprintf("table %q of layer %q has no features", e.Table, e.Label)
}

// ApplyStyles binds sources to their leaves, then styles every leaf bound
// for the first time. Styles are looked up by style name in override first,
// then in primary. Leaf failures are recorded on the report and flagged on
// the layer; they never stop the other leaves.
func (s *Session) ApplyStyles(view *maprt.View, label string, sources map[string]maprt.Source, primary, override map[string][]byte, opts Options) Report {
	s.applyOptions(opts)
	leaves, report := s.BindSources(label, sources)
	for _, leaf := range leaves {
		if err := s.styleLeaf(view, leaf, primary, override, opts); err != nil {
			report = append(report, err)
		}
	}
	if len(leaves) > 0 {
		s.logger.Info("layers styled", "source", label, "layers", len(leaves))
		s.changed(EventStyled)
	}
	return report
}

func (s *Session) applyOptions(opts Options) {
	if opts.SelectorSizing != (canvas.Sizing{}) {
		s.selectorSizing = opts.SelectorSizing
	}
	if opts.LegendSizing != (canvas.Sizing{}) {
		s.legendSizing = opts.LegendSizing
	}
	if opts.PixelRatio > 0 {
		s.pixelRatio = opts.PixelRatio
	}
}

func (s *Session) styleLeaf(view *maprt.View, leaf *layerdef.Leaf, primary, override map[string][]byte, opts Options) error {
	features := leaf.Layer.Source().Features()
	if len(features) == 0 {
		err := &EmptySourceError{Table: leaf.Table, Label: leaf.Label}
		s.logger.Error("no features", "table", leaf.Table, "layer", leaf.Label)
		s.setState(leaf, MarkerNoFeatures)
		return err
	}
	example := features[0]

	raw, ok := override[leaf.StyleName]
	if !ok {
		raw, ok = primary[leaf.StyleName]
	}
	var fts *sld.FeatureTypeStyle
	var err error
	if ok {
		fts, err = sld.FeatureTypeStyleOf(raw)
	}
	if !ok || err != nil {
		merr := &MissingStyleError{StyleName: leaf.StyleName, Label: leaf.Label, Err: err}
		s.logger.Error("style missing", "style", leaf.StyleName, "layer", leaf.Label, "error", err)
		s.setState(leaf, MarkerStyleMissing)
		// Drawn with the default style, so the gap is visible.
		leaf.Layer.SetVisible(true)
		return merr
	}

	fts = s.applySLD(view, leaf, fts, opts)
	if leaf.Visible {
		leaf.Layer.SetVisible(true)
	}
	if opts.SelectorSymbols || opts.Legend {
		s.extractSymbols(leaf, fts, example, view.RealResolution(), opts)
	}
	s.setState(leaf, MarkerNone)
	return nil
}

// applySLD sets the style function of the leaf layer and returns the rule
// set it was built from.
func (s *Session) applySLD(view *maprt.View, leaf *layerdef.Leaf, fts *sld.FeatureTypeStyle, opts Options) *sld.FeatureTypeStyle {
	if opts.DebugShowFeatureTypeStyle {
		if b, err := json.Marshal(fts); err == nil {
			s.logger.Info("feature type style", "style", leaf.StyleName, "json", string(b))
		}
	}
	if opts.TweakFeatureTypeStyle != nil {
		if tweaked := opts.TweakFeatureTypeStyle(leaf.StyleName, fts); tweaked != nil {
			fts = tweaked
		}
	}

	layer := leaf.Layer
	base := sld.BuildStyleResolver(fts, sld.ResolverOptions{
		ResolutionProvider: view.RealResolution,
		OnImageLoaded:      func() { s.loop.Post(layer.Changed) },
		Icons:              opts.Icons,
	})
	fn := base
	if opts.TweakStyle != nil {
		fn = tweakedStyle(base, fts, leaf.StyleName, view, opts.TweakStyle)
	}
	layer.SetStyle(fn)
	return fts
}

// lastResolutions records the resolution each style instance was last
// tweaked at. It is never pruned: it stays bounded only because the sld
// resolver hands out one cached instance per symbolizer and property
// signature. A resolver that allocated styles per call would make it grow
// with every render.
type lastResolutions map[*maprt.Style]float64

// update stamps styles with resolution and reports whether any of them was
// last seen at another one.
func (l lastResolutions) update(styles []*maprt.Style, resolution float64) bool {
	changed := false
	for _, st := range styles {
		if last, ok := l[st]; !ok || last != resolution {
			l[st] = resolution
			changed = true
		}
	}
	return changed
}

func tweakedStyle(base maprt.StyleFunc, fts *sld.FeatureTypeStyle, styleName string, view *maprt.View, tweak func(TweakContext) []*maprt.Style) maprt.StyleFunc {
	seen := lastResolutions{}
	return func(f *geojson.Feature, resolution float64) []*maprt.Style {
		styles := base(f, resolution)
		if len(styles) == 0 {
			return styles
		}
		return tweak(TweakContext{
			Rules:             fts,
			Styles:            styles,
			StyleName:         styleName,
			Feature:           f,
			RealResolution:    view.RealResolution(),
			ResolutionChanged: seen.update(styles, resolution),
		})
	}
}
