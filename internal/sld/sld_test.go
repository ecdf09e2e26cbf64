package sld

import (
	"image/color"
	"os"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-sld/internal/maprt"
)

func loadFTS(t *testing.T, name string) *FeatureTypeStyle {
	t.Helper()
	raw, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	fts, err := FeatureTypeStyleOf(raw)
	require.NoError(t, err)
	return fts
}

func TestParseSE11(t *testing.T) {
	fts := loadFTS(t, "roads.sld")
	require.Len(t, fts.Rules, 3)

	motorway := fts.Rules[0]
	assert.Equal(t, "Motorway", motorway.Name)
	require.NotNil(t, motorway.MaxScaleDenominator)
	assert.Equal(t, 50000.0, *motorway.MaxScaleDenominator)
	assert.Nil(t, motorway.MinScaleDenominator)
	require.Len(t, motorway.LineSymbolizers, 1)
	stroke := motorway.LineSymbolizers[0].Stroke
	v, ok := stroke.Get("stroke")
	assert.True(t, ok)
	assert.Equal(t, "#e31a1c", v)
	assert.Equal(t, 3.0, stroke.Float("stroke-width", 1))

	other := fts.Rules[1]
	assert.NotNil(t, other.ElseFilter)
	assert.Nil(t, other.Filter)

	text := fts.Rules[2]
	assert.Equal(t, 0, text.GraphicSymbolizerCount())
	require.Len(t, text.TextSymbolizers, 1)
	assert.Equal(t, "name", text.TextSymbolizers[0].Label.PropertyName)
}

func TestExtractStylePrefersDefault(t *testing.T) {
	fts := loadFTS(t, "sites.sld")
	require.Len(t, fts.Rules, 1)
	assert.Equal(t, "Single symbol", fts.Rules[0].Name)
}

func TestExtractStyleFallsBackToFirst(t *testing.T) {
	layer := &Layer{Styles: []*UserStyle{{Name: ""}, {Name: "second"}}}
	s, err := ExtractStyle(layer)
	require.NoError(t, err)
	assert.Same(t, layer.Styles[0], s)

	_, err = ExtractStyle(&Layer{})
	assert.ErrorIs(t, err, ErrNoStyle)
	_, err = ExtractLayer(&StyledLayerDescriptor{})
	assert.ErrorIs(t, err, ErrNoLayer)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("<StyledLayerDescriptor><NamedLayer>"))
	assert.Error(t, err)
}

func TestFilterOperators(t *testing.T) {
	doc := `<StyledLayerDescriptor><NamedLayer><UserStyle><FeatureTypeStyle>
	<Rule><Filter><And>
		<PropertyIsGreaterThanOrEqualTo><PropertyName>lanes</PropertyName><Literal>2</Literal></PropertyIsGreaterThanOrEqualTo>
		<Not><PropertyIsLike wildCard="%" singleChar="_" escapeChar="\"><PropertyName>name</PropertyName><Literal>A_ %</Literal></PropertyIsLike></Not>
	</And></Filter><LineSymbolizer/></Rule>
	<Rule><Filter><Or>
		<PropertyIsNull><PropertyName>ref</PropertyName></PropertyIsNull>
		<PropertyIsBetween><PropertyName>lanes</PropertyName><LowerBoundary><Literal>5</Literal></LowerBoundary><UpperBoundary><Literal>10</Literal></UpperBoundary></PropertyIsBetween>
	</Or></Filter><LineSymbolizer/></Rule>
	<Rule><Filter><PropertyIsEqualTo matchCase="false"><PropertyName>type</PropertyName><Literal>Track</Literal></PropertyIsEqualTo></Filter><LineSymbolizer/></Rule>
	</FeatureTypeStyle></UserStyle></NamedLayer></StyledLayerDescriptor>`
	fts, err := FeatureTypeStyleOf([]byte(doc))
	require.NoError(t, err)
	require.Len(t, fts.Rules, 3)
	and, or, eq := fts.Rules[0].Filter, fts.Rules[1].Filter, fts.Rules[2].Filter

	assert.True(t, and.Match(map[string]any{"lanes": 2, "name": "B road"}))
	assert.False(t, and.Match(map[string]any{"lanes": 2, "name": "A1 trunk"}))
	assert.False(t, and.Match(map[string]any{"lanes": "1", "name": "B road"}))

	assert.True(t, or.Match(map[string]any{"lanes": 1}))
	assert.True(t, or.Match(map[string]any{"ref": "x", "lanes": 7.5}))
	assert.False(t, or.Match(map[string]any{"ref": "x", "lanes": 11}))

	assert.True(t, eq.Match(map[string]any{"type": "track"}))
	assert.False(t, eq.Match(map[string]any{"type": "path"}))
}

func TestLikePattern(t *testing.T) {
	re, err := likePattern(`A\_b%`, "%", "_", "", `\`)
	require.NoError(t, err)
	assert.True(t, re.MatchString("A_b"))
	assert.True(t, re.MatchString("A_bcd"))
	assert.False(t, re.MatchString("AxB"))

	re, err = likePattern("a*.c", "", "")
	require.NoError(t, err)
	assert.True(t, re.MatchString("aXYZbc"))
	assert.False(t, re.MatchString("ac"))
}

func TestUnknownFilterOperator(t *testing.T) {
	doc := `<StyledLayerDescriptor><NamedLayer><UserStyle><FeatureTypeStyle>
	<Rule><Filter><Intersects/></Filter></Rule>
	</FeatureTypeStyle></UserStyle></NamedLayer></StyledLayerDescriptor>`
	_, err := FeatureTypeStyleOf([]byte(doc))
	assert.ErrorContains(t, err, "Intersects")
}

func TestNilFilterMatchesAll(t *testing.T) {
	var f *Filter
	assert.True(t, f.Match(nil))
}

func TestSelectRulesElseAndScale(t *testing.T) {
	fts := loadFTS(t, "roads.sld")

	got := SelectRules(fts.Rules, map[string]any{"type": "motorway"}, 10000)
	require.Len(t, got, 2)
	assert.Equal(t, "Motorway", got[0].Name)
	assert.Equal(t, "", got[1].Name, "text rule has no filter")

	// Motorway rule out of scale, so the else rule applies.
	got = SelectRules(fts.Rules[:2], map[string]any{"type": "motorway"}, 60000)
	require.Len(t, got, 1)
	assert.Equal(t, "Other", got[0].Name)

	got = SelectRules(fts.Rules[:2], map[string]any{"type": "minor"}, 100)
	assert.Empty(t, got, "else rule below its min scale")
}

func TestResolverLineStyles(t *testing.T) {
	fts := loadFTS(t, "roads.sld")
	assert.Equal(t, 1, DropTextRules(fts))
	require.Len(t, fts.Rules, 2)
	calls := 0
	fn := BuildStyleResolver(fts, ResolverOptions{
		ResolutionProvider: func() float64 { calls++; return 2.8 },
	})
	f := geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}})
	f.Properties["type"] = "motorway"

	styles := fn(f, 1e9)
	assert.Equal(t, 1, calls)
	require.Len(t, styles, 1)
	s := styles[0].Stroke
	require.NotNil(t, s)
	assert.Equal(t, color.NRGBA{0xe3, 0x1a, 0x1c, 0xff}, s.Color)
	assert.Equal(t, 3.0, s.Width)
	assert.Equal(t, []float64{4, 2}, s.Dash)

	again := fn(f, 1e9)
	require.Len(t, again, 1)
	assert.Same(t, styles[0], again[0], "style instances are reused")

	f.Properties["type"] = "minor"
	other := fn(f, 0)
	require.Len(t, other, 1)
	assert.Equal(t, 1.0, other[0].Stroke.Width)
}

func TestResolverGeometryKinds(t *testing.T) {
	fts := loadFTS(t, "sites.sld")
	fn := BuildStyleResolver(fts, ResolverOptions{})

	point := fn(geojson.NewFeature(orb.Point{1, 2}), 1)
	require.Len(t, point, 1)
	mark, ok := point[0].Image.(*maprt.Mark)
	require.True(t, ok)
	assert.Equal(t, "circle", mark.WellKnownName)
	assert.Equal(t, 5.0, mark.Radius)
	assert.Equal(t, [2]float64{11, 11}, mark.Size())

	poly := fn(geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}), 1)
	require.Len(t, poly, 1)
	require.NotNil(t, poly[0].Fill)
	assert.Equal(t, color.NRGBA{0x33, 0xa0, 0x2c, 0x80}, poly[0].Fill.Color)

	assert.Empty(t, fn(geojson.NewFeature(orb.Collection{orb.Point{0, 0}}), 1))
	assert.Empty(t, fn(geojson.NewFeature(orb.LineString{{0, 0}, {1, 0}}), 1))
}

func TestResolverPropertyDrivenStyles(t *testing.T) {
	doc := `<StyledLayerDescriptor><NamedLayer><UserStyle><FeatureTypeStyle><Rule>
	<LineSymbolizer><Stroke><CssParameter name="stroke-width"><PropertyName>w</PropertyName></CssParameter></Stroke></LineSymbolizer>
	</Rule></FeatureTypeStyle></UserStyle></NamedLayer></StyledLayerDescriptor>`
	fts, err := FeatureTypeStyleOf([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"w"}, PropertyRefs(fts))

	fn := BuildStyleResolver(fts, ResolverOptions{})
	a := geojson.NewFeature(orb.LineString{{0, 0}, {1, 0}})
	a.Properties["w"] = 2
	b := geojson.NewFeature(orb.LineString{{0, 0}, {1, 0}})
	b.Properties["w"] = 5
	assert.Equal(t, 2.0, fn(a, 1)[0].Stroke.Width)
	assert.Equal(t, 5.0, fn(b, 1)[0].Stroke.Width)
	assert.Equal(t, color.NRGBA{A: 0xff}, fn(b, 1)[0].Stroke.Color)
}

func TestScaleDenominator(t *testing.T) {
	assert.InDelta(t, 2000.0, ScaleDenominator(0.56), 1e-9)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#0f0", 1)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 0xff, 0, 0xff}, c)

	c, err = ParseColor("#11223380", 0.5)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0x11, 0x22, 0x33, 0x40}, c)

	_, err = ParseColor("red", 1)
	assert.Error(t, err)
}

func TestPointsAlong(t *testing.T) {
	pts := pointsAlong(orb.LineString{{0, 0}, {10, 0}}, 4)
	assert.Equal(t, []orb.Point{{2, 0}, {6, 0}, {10, 0}}, pts)
}

func TestTweaks(t *testing.T) {
	fts := loadFTS(t, "roads.sld")

	require.NoError(t, CopyMaxScale(fts, 0, 2))
	require.NotNil(t, fts.Rules[2].MaxScaleDenominator)
	assert.Equal(t, 50000.0, *fts.Rules[2].MaxScaleDenominator)
	assert.Error(t, CopyMaxScale(fts, 0, 9))

	ScaleDashArray(fts)
	dash, _ := fts.Rules[0].LineSymbolizers[0].Stroke.Get("stroke-dasharray")
	assert.Equal(t, "12 6", dash)
	_, ok := fts.Rules[1].LineSymbolizers[0].Stroke.Get("stroke-dasharray")
	assert.False(t, ok)
}
