package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/sld"
	"github.com/joeblew999/plat-sld/internal/styler"
)

const testConfig = `
title: Canal
projection: metric
view:
  resolution: 0.56
  center: [0, 0]
dataLayers:
  - group:
      - table: roads
      - table: rivers
    label: Network
  - table: sites
  - table: absent
sources:
  geojsonDirs: [data]
  sldDirs: [styles]
styler:
  tweaks:
    scaleDashArray: [roads]
`

const lineFeatures = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[10,10]]},"properties":{"kind":"a"}}]}`

const pointFeatures = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{}}]}`

func sldDoc(rules string) string {
	return `<StyledLayerDescriptor xmlns="http://www.opengis.net/sld" xmlns:ogc="http://www.opengis.net/ogc" version="1.0.0">` +
		`<NamedLayer><Name>t</Name><UserStyle><Name>t</Name><FeatureTypeStyle>` + rules +
		`</FeatureTypeStyle></UserStyle></NamedLayer></StyledLayerDescriptor>`
}

const (
	lineRule  = `<Rule><LineSymbolizer><Stroke><CssParameter name="stroke">#ff0000</CssParameter><CssParameter name="stroke-width">2</CssParameter></Stroke></LineSymbolizer></Rule>`
	pointRule = `<Rule><PointSymbolizer><Graphic><Mark><WellKnownName>circle</WellKnownName><Fill><CssParameter name="fill">#0000ff</CssParameter></Fill></Mark><Size>8</Size></Graphic></PointSymbolizer></Rule>`
	classes   = `<Rule><Name>Major</Name><MaxScaleDenominator>1000</MaxScaleDenominator>` +
		`<LineSymbolizer><Stroke><CssParameter name="stroke">#000000</CssParameter></Stroke></LineSymbolizer></Rule>` +
		`<Rule><Name>Minor</Name><LineSymbolizer><Stroke><CssParameter name="stroke">#888888</CssParameter></Stroke></LineSymbolizer></Rule>`
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func mapFiles() map[string]string {
	return map[string]string{
		"map.yaml":            testConfig,
		"data/roads.geojson":  lineFeatures,
		"data/rivers.geojson": lineFeatures,
		"data/sites.geojson":  pointFeatures,
		"data/unused.geojson": pointFeatures,
		"data/roads.sld":      sldDoc(lineRule),
		"data/sites.sld":      sldDoc(pointRule),
		"styles/roads.sld":    sldDoc(classes),
		"styles/readme.txt":   "not a style",
	}
}

// loaded returns a loaded service with its loop running.
func loaded(t *testing.T) (*MapService, context.Context) {
	t.Helper()
	dir := writeTree(t, mapFiles())
	cfg, err := LoadConfig(filepath.Join(dir, "map.yaml"))
	require.NoError(t, err)

	svc, err := NewMapService(cfg, MapOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, svc.Load(ctx))
	go svc.Run(ctx)
	return svc, ctx
}

func find(nodes []LayerNode, table string) *LayerNode {
	for i := range nodes {
		if nodes[i].Table == table {
			return &nodes[i]
		}
		if n := find(nodes[i].Children, table); n != nil {
			return n
		}
	}
	return nil
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfig))
	require.NoError(t, err)
	assert.Equal(t, "Canal", cfg.Title)
	assert.Len(t, cfg.DataLayers, 3)
	assert.Equal(t, []string{"roads"}, cfg.Styler.Tweaks.ScaleDashArray)

	opts := cfg.Styler.Options()
	assert.True(t, opts.SelectorSymbols)
	assert.True(t, opts.Legend)

	cfg, err = ParseConfig([]byte("title: x\ndataLayers: [{table: a}]\nstyler: {legend: false}"))
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultResolution), cfg.View.Resolution)
	assert.False(t, cfg.Styler.Options().Legend)

	_, err = ParseConfig([]byte("title: empty"))
	assert.ErrorContains(t, err, "no dataLayers")

	resolved := SourcesConfig{GeoPackages: []string{"a.gpkg", "/abs/b.gpkg"}}.Resolve("/maps")
	assert.Equal(t, []string{"/maps/a.gpkg", "/abs/b.gpkg"}, resolved.GeoPackages)
}

func TestNewMapServiceErrors(t *testing.T) {
	_, err := NewMapService(MapConfig{Projection: "EPSG:4326"}, MapOptions{})
	assert.ErrorContains(t, err, "unsupported projection")

	cfg, err := ParseConfig([]byte("dataLayers: [{label: Empty}]"))
	require.NoError(t, err)
	_, err = NewMapService(cfg, MapOptions{})
	var cerr *layerdef.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestLoadReports(t *testing.T) {
	svc, ctx := loaded(t)

	reports := svc.Reports()
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "4 tables, 4 features, 2 styles", r.Summary)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], `"unused"`)
	require.Len(t, r.Problems, 1)
	assert.Contains(t, r.Problems[0], `no style "rivers"`)

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Canal", info.Title)
	assert.Equal(t, 4, info.Layers)
	assert.Equal(t, 1, info.Groups)
	assert.Equal(t, 3, info.Symbols)
	assert.Equal(t, 1, info.ScaleGated)
	assert.Equal(t, []string{"absent"}, info.Missing)
}

func TestLoadWithoutDatabase(t *testing.T) {
	cfg, err := ParseConfig([]byte("dataLayers: [{table: a}]\nprojection: metric\nsources: {geopackages: [x.gpkg]}"))
	require.NoError(t, err)
	svc, err := NewMapService(cfg, MapOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	require.Len(t, svc.Reports(), 1)
	assert.Equal(t, ErrNoDatabase.Error(), svc.Reports()[0].Error)
}

func TestLayersSnapshot(t *testing.T) {
	svc, ctx := loaded(t)
	nodes, err := svc.Layers(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "group", nodes[0].Kind)
	assert.Equal(t, "Network", nodes[0].Label)

	roads := find(nodes, "roads")
	require.NotNil(t, roads)
	require.NotNil(t, roads.Symbology)
	assert.Equal(t, "multiSymbol", roads.Symbology.Shape)
	require.Len(t, roads.Symbology.Symbols, 2)
	major := roads.Symbology.Symbols[0]
	assert.Equal(t, "Major", major.Label)
	assert.False(t, major.InRange, "scale 2000 is past the 1000 bound")
	assert.True(t, roads.Symbology.Symbols[1].InRange)
	assert.True(t, strings.HasPrefix(major.LegendURL, SymbolPath+"/"))

	rivers := find(nodes, "rivers")
	assert.Equal(t, "style-missing", rivers.State)
	assert.True(t, rivers.Visible)

	absent := find(nodes, "absent")
	assert.Equal(t, "no-layer-data", absent.State)

	node, ok, err := svc.Layer(ctx, nodes[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, node.Children, 2)
	_, ok, err = svc.Layer(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetVisiblePublishes(t *testing.T) {
	svc, ctx := loaded(t)
	ch := svc.Bus().Subscribe()
	defer svc.Bus().Unsubscribe(ch)

	nodes, err := svc.Layers(ctx)
	require.NoError(t, err)
	group, err := svc.SetVisible(ctx, nodes[0].ID, false)
	require.NoError(t, err)
	assert.False(t, group.Visible)
	for _, c := range group.Children {
		assert.False(t, c.Visible)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Action == styler.EventVisibility && ev.ID != "" {
				return
			}
		case <-deadline:
			t.Fatal("no visibility event")
		}
	}
}

func TestSetVisibleUnknown(t *testing.T) {
	svc, ctx := loaded(t)
	_, err := svc.SetVisible(ctx, 999, true)
	assert.Error(t, err)
}

func TestMoveTo(t *testing.T) {
	svc, ctx := loaded(t)
	v, err := svc.View(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2000, v.ScaleDenominator, 1e-6)
	assert.Equal(t, "metric", v.Projection)

	v, err = svc.MoveTo(ctx, 500*sld.OGCPixelSize, [2]float64{5, 5})
	require.NoError(t, err)
	assert.InDelta(t, 500, v.ScaleDenominator, 1e-6)
	assert.Equal(t, [2]float64{5, 5}, v.Center)

	nodes, err := svc.Layers(ctx)
	require.NoError(t, err)
	assert.True(t, find(nodes, "roads").Symbology.Symbols[0].InRange)

	_, err = svc.MoveTo(ctx, 0, [2]float64{})
	assert.Error(t, err)
}

func TestPanelHTMLAndSymbols(t *testing.T) {
	svc, ctx := loaded(t)

	legend, err := svc.PanelHTML(ctx, PanelLegend)
	require.NoError(t, err)
	assert.Contains(t, legend, `class="legend-table"`)
	assert.Contains(t, legend, SymbolPath+"/")

	selector, err := svc.PanelHTML(ctx, PanelSelector)
	require.NoError(t, err)
	assert.Contains(t, selector, "layer-switcher")

	_, err = svc.PanelHTML(ctx, "toolbar")
	assert.ErrorIs(t, err, ErrNoPanel)

	nodes, err := svc.Layers(ctx)
	require.NoError(t, err)
	sym := find(nodes, "sites").Symbology.Symbols[0]
	png, err := svc.SymbolPNG(ctx, sym.ID, styler.ConsumerLegend)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = svc.SymbolPNG(ctx, 999, styler.ConsumerLegend)
	assert.ErrorIs(t, err, ErrNoSymbol)
}

func TestMissing(t *testing.T) {
	svc, ctx := loaded(t)
	tables, err := svc.Missing(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"absent"}, tables)
}

func TestSourceList(t *testing.T) {
	dir := writeTree(t, mapFiles())
	cfg, err := LoadConfig(filepath.Join(dir, "map.yaml"))
	require.NoError(t, err)
	cfg.Sources.GeoPackages = []string{filepath.Join(dir, "missing.gpkg")}

	files, err := NewSourceService(cfg.Sources).List()
	require.NoError(t, err)
	roles := map[string]string{}
	for _, f := range files {
		roles[f.Name] = f.Role
	}
	assert.Equal(t, "data", roles["missing.gpkg"])
	assert.Equal(t, "data", roles["roads.geojson"])
	assert.Equal(t, "style", roles["sites.sld"])
	assert.Equal(t, "override", roles["roads.sld"])
	assert.NotContains(t, roles, "readme.txt")
	assert.Equal(t, "GeoPackage", files[0].FileType)
	assert.Empty(t, files[0].Size)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	assert.Equal(t, 1, bus.Subscribers())
	bus.Publish(Event{Resource: "styler", Action: "zoom"})
	assert.Equal(t, Event{Resource: "styler", Action: "zoom"}, <-ch)
	bus.Unsubscribe(ch)
	assert.Equal(t, 0, bus.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}
