package styler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
)

func TestTweakStyleTracksResolution(t *testing.T) {
	f := newFixture(t, "[{table: roads}]")
	var calls []TweakContext
	opts := symbolsOn
	opts.TweakStyle = func(ctx TweakContext) []*maprt.Style {
		calls = append(calls, ctx)
		return ctx.Styles
	}
	report := f.apply(map[string]maprt.Source{"roads": lines(1)},
		map[string][]byte{"roads": sldDoc(rule("Only", -1, -1, lineSymbolizer))}, opts)
	require.NoError(t, report.Err())
	assert.Empty(t, calls)

	require.NoError(t, f.s.MaterializeSelectorSymbols(f.m))
	require.NotEmpty(t, calls)
	preview := calls[len(calls)-1]
	assert.True(t, preview.SymbolPreview)
	assert.True(t, preview.ResolutionChanged)
	assert.Equal(t, "Only", preview.SymbolLabel)

	calls = nil
	leaf := f.leaf("roads")
	feature := leaf.Layer.Source().Features()[0]
	style := leaf.Layer.Style()
	style(feature, 2)
	style(feature, 2)
	style(feature, 3)
	require.Len(t, calls, 3)
	assert.True(t, calls[0].ResolutionChanged)
	assert.False(t, calls[1].ResolutionChanged)
	assert.True(t, calls[2].ResolutionChanged)
	for _, c := range calls {
		assert.False(t, c.SymbolPreview)
		assert.Equal(t, "roads", c.StyleName)
		assert.Equal(t, f.view.RealResolution(), c.RealResolution)
	}
}

func TestLastResolutionsStayBounded(t *testing.T) {
	fts, err := sld.FeatureTypeStyleOf(sldDoc(rule("", -1, -1, lineSymbolizer)))
	require.NoError(t, err)
	base := sld.BuildStyleResolver(fts, sld.ResolverOptions{})
	seen := lastResolutions{}
	for i, feature := range lines(50).Features() {
		styles := base(feature, 1)
		require.Len(t, styles, 1)
		assert.Equal(t, i == 0, seen.update(styles, 1))
	}
	assert.Len(t, seen, 1)
	assert.True(t, seen.update(base(lines(1).Features()[0], 1), 2))
	assert.Len(t, seen, 1)
}

func TestTweakFeatureTypeStyleReplacesRules(t *testing.T) {
	f := newFixture(t, "[{table: roads}]")
	opts := symbolsOn
	opts.TweakFeatureTypeStyle = func(styleName string, fts *sld.FeatureTypeStyle) *sld.FeatureTypeStyle {
		assert.Equal(t, "roads", styleName)
		return &sld.FeatureTypeStyle{Rules: fts.Rules[:1]}
	}
	f.apply(map[string]maprt.Source{"roads": lines(1)},
		map[string][]byte{"roads": sldDoc(
			rule("A", -1, -1, lineSymbolizer),
			rule("B", -1, -1, lineSymbolizer),
		)}, opts)
	sy := f.s.Symbology(f.leaf("roads").ID)
	require.Len(t, sy.Symbols, 1)
	assert.Equal(t, MultiSymbol, sy.Shape)
}

func TestTweakConfigFeatureTypeStyle(t *testing.T) {
	cfg := TweakConfig{
		CopyMaxScale:   []CopyMaxScaleTweak{{Style: "roads", From: 0, To: 1}, {Style: "roads", From: 0, To: 9}},
		ScaleDashArray: []string{"roads"},
		DropTextRules:  []string{"roads"},
	}
	assert.False(t, cfg.Empty())
	assert.Nil(t, cfg.StyleTweak())
	tweak := cfg.FeatureTypeStyleTweak(nil)
	require.NotNil(t, tweak)

	raw := sldDoc(
		rule("Road", -1, 5000, `<LineSymbolizer><Stroke><CssParameter name="stroke-width">2</CssParameter><CssParameter name="stroke-dasharray">4 2</CssParameter></Stroke></LineSymbolizer>`),
		rule("Label", -1, -1, lineSymbolizer),
		rule("Names", -1, -1, textSymbolizer),
	)
	fts, err := sld.FeatureTypeStyleOf(raw)
	require.NoError(t, err)
	fts = tweak("roads", fts)

	require.Len(t, fts.Rules, 2)
	require.NotNil(t, fts.Rules[1].MaxScaleDenominator)
	assert.Equal(t, 5000.0, *fts.Rules[1].MaxScaleDenominator)
	dash, _ := fts.Rules[0].LineSymbolizers[0].Stroke.Get("stroke-dasharray")
	assert.Equal(t, "8 4", dash)

	other, err := sld.FeatureTypeStyleOf(raw)
	require.NoError(t, err)
	assert.Len(t, tweak("rivers", other).Rules, 3)

	assert.True(t, TweakConfig{}.Empty())
	assert.Nil(t, TweakConfig{}.FeatureTypeStyleTweak(nil))
}

func TestTweakConfigStrokeWidthMetres(t *testing.T) {
	tweak := TweakConfig{StrokeWidthMetres: []StrokeWidthMetresTweak{
		{Style: "path", PreviewResolution: 0.5, MinPixels: 1.5},
	}}.StyleTweak()
	require.NotNil(t, tweak)

	fts, err := sld.FeatureTypeStyleOf(sldDoc(rule("", -1, -1,
		`<LineSymbolizer><Stroke><CssParameter name="stroke-width">10</CssParameter></Stroke></LineSymbolizer>`)))
	require.NoError(t, err)
	newStyles := func() []*maprt.Style {
		return []*maprt.Style{{Fill: &maprt.Fill{}}, {Stroke: &maprt.Stroke{Width: 10}}}
	}

	styles := tweak(TweakContext{Rules: fts, Styles: newStyles(), StyleName: "path", RealResolution: 2, ResolutionChanged: true})
	assert.Equal(t, 5.0, styles[1].Stroke.Width)

	styles = tweak(TweakContext{Rules: fts, Styles: newStyles(), StyleName: "path", RealResolution: 20, ResolutionChanged: true})
	assert.Equal(t, 1.5, styles[1].Stroke.Width, "floored")

	styles = tweak(TweakContext{Rules: fts, Styles: newStyles(), StyleName: "path", RealResolution: 2, ResolutionChanged: true, SymbolPreview: true})
	assert.Equal(t, 20.0, styles[1].Stroke.Width, "previews use their own resolution")

	styles = tweak(TweakContext{Rules: fts, Styles: newStyles(), StyleName: "path", RealResolution: 2})
	assert.Equal(t, 10.0, styles[1].Stroke.Width, "unchanged resolution skipped")

	styles = tweak(TweakContext{Rules: fts, Styles: newStyles(), StyleName: "other", RealResolution: 2, ResolutionChanged: true})
	assert.Equal(t, 10.0, styles[1].Stroke.Width)
}
