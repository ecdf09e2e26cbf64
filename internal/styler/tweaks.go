package styler

import (
	"log/slog"
	"slices"

	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
)

// TweakConfig declares the style patches of a map configuration. It
// compiles to the TweakFeatureTypeStyle and TweakStyle callbacks.
type TweakConfig struct {
	CopyMaxScale      []CopyMaxScaleTweak      `json:"copyMaxScale,omitempty" yaml:"copyMaxScale,omitempty"`
	ScaleDashArray    []string                 `json:"scaleDashArray,omitempty" yaml:"scaleDashArray,omitempty"`
	DropTextRules     []string                 `json:"dropTextRules,omitempty" yaml:"dropTextRules,omitempty"`
	StrokeWidthMetres []StrokeWidthMetresTweak `json:"strokeWidthMetres,omitempty" yaml:"strokeWidthMetres,omitempty"`
}

// CopyMaxScaleTweak copies the max scale of rule From onto rule To.
type CopyMaxScaleTweak struct {
	Style string `json:"style" yaml:"style"`
	From  int    `json:"from" yaml:"from"`
	To    int    `json:"to" yaml:"to"`
}

// StrokeWidthMetresTweak reads the line stroke widths of a style as metres
// and converts them to pixels at the current resolution.
type StrokeWidthMetresTweak struct {
	Style string `json:"style" yaml:"style"`
	// PreviewResolution is the resolution symbol previews are drawn at.
	PreviewResolution float64 `json:"previewResolution,omitempty" yaml:"previewResolution,omitempty"`
	// MinPixels is the narrowest width drawn.
	MinPixels float64 `json:"minPixels,omitempty" yaml:"minPixels,omitempty"`
}

// Empty reports whether no tweak is configured.
func (c TweakConfig) Empty() bool {
	return len(c.CopyMaxScale) == 0 && len(c.ScaleDashArray) == 0 &&
		len(c.DropTextRules) == 0 && len(c.StrokeWidthMetres) == 0
}

// FeatureTypeStyleTweak returns the rule set patch, or nil when none is
// configured.
func (c TweakConfig) FeatureTypeStyleTweak(logger *slog.Logger) func(string, *sld.FeatureTypeStyle) *sld.FeatureTypeStyle {
	if len(c.CopyMaxScale) == 0 && len(c.ScaleDashArray) == 0 && len(c.DropTextRules) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(styleName string, fts *sld.FeatureTypeStyle) *sld.FeatureTypeStyle {
		for _, t := range c.CopyMaxScale {
			if t.Style != styleName {
				continue
			}
			if err := sld.CopyMaxScale(fts, t.From, t.To); err != nil {
				logger.Warn("tweak skipped", "style", styleName, "error", err)
			}
		}
		if slices.Contains(c.ScaleDashArray, styleName) {
			sld.ScaleDashArray(fts)
		}
		if slices.Contains(c.DropTextRules, styleName) {
			if n := sld.DropTextRules(fts); n > 0 {
				logger.Debug("text rules dropped", "style", styleName, "rules", n)
			}
		}
		return fts
	}
}

// StyleTweak returns the resolved-style patch, or nil when none is
// configured.
func (c TweakConfig) StyleTweak() func(TweakContext) []*maprt.Style {
	if len(c.StrokeWidthMetres) == 0 {
		return nil
	}
	byStyle := make(map[string]StrokeWidthMetresTweak, len(c.StrokeWidthMetres))
	for _, t := range c.StrokeWidthMetres {
		byStyle[t.Style] = t
	}
	return func(ctx TweakContext) []*maprt.Style {
		t, ok := byStyle[ctx.StyleName]
		if !ok || !ctx.ResolutionChanged {
			return ctx.Styles
		}
		res := ctx.RealResolution
		if ctx.SymbolPreview && t.PreviewResolution > 0 {
			res = t.PreviewResolution
		}
		strokeWidthMetres(ctx.Rules, ctx.Styles, res, t.MinPixels)
		return ctx.Styles
	}
}

// strokeWidthMetres sets the i-th stroked style to the width of the i-th
// line symbolizer of the first rule, read as metres.
func strokeWidthMetres(fts *sld.FeatureTypeStyle, styles []*maprt.Style, resolution, minPixels float64) {
	if fts == nil || len(fts.Rules) == 0 || resolution <= 0 {
		return
	}
	symbolizers := fts.Rules[0].LineSymbolizers
	i := 0
	for _, st := range styles {
		if st.Stroke == nil {
			continue
		}
		if i >= len(symbolizers) {
			return
		}
		if s := symbolizers[i].Stroke; s != nil {
			st.Stroke.Width = max(s.Float("stroke-width", 1)/resolution, minPixels)
		}
		i++
	}
}
