package styler

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
	"github.com/joeblew999/plat-sld/internal/ui"
)

const panelConfig = `
- group:
    - table: near
    - table: far
  label: Gated
- table: classes
  collapseSymbology: true
- table: labels
- table: plain
  visible: false
`

func styledPanels(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, panelConfig)
	report := f.apply(
		map[string]maprt.Source{
			"near":    lines(1),
			"far":     lines(1),
			"classes": points(2),
			"labels":  points(1),
			"plain":   lines(1),
		},
		map[string][]byte{
			"near": sldDoc(rule("", -1, 1000, lineSymbolizer)),
			"far":  sldDoc(rule("", -1, 1500, lineSymbolizer)),
			"classes": sldDoc(
				rule("Big", -1, -1, pointSymbolizer),
				rule("Small", 3000, -1, pointSymbolizer),
			),
			"labels": sldDoc(rule("Names", -1, -1, textSymbolizer)),
			"plain":  sldDoc(rule("", -1, -1, lineSymbolizer)),
		},
		symbolsOn)
	require.NoError(t, report.Err())
	return f
}

func li(t *testing.T, f *fixture, table string) *ui.Element {
	t.Helper()
	box := f.s.selectorBoxes[f.leaf(table).ID]
	require.NotNil(t, box.Parent)
	return box.Parent
}

func TestMaterializeSelectorSymbols(t *testing.T) {
	f := styledPanels(t)
	require.NoError(t, f.s.MaterializeSelectorSymbols(f.m))
	assert.ErrorIs(t, f.s.MaterializeSelectorSymbols(f.m), ErrSelectorBuilt)

	near := li(t, f, "near")
	assert.True(t, near.HasClass("li-single-symbol"))
	require.Len(t, near.Children, 3)
	assert.Equal(t, "input", near.Children[0].Tag)
	assert.Equal(t, "canvas", near.Children[1].Tag)
	assert.Equal(t, "label", near.Children[2].Tag)
	assert.True(t, near.Children[2].HasClass("label-single-symbol"))
	assert.NotNil(t, near.Children[1].Canvas)

	classes := li(t, f, "classes")
	require.Len(t, classes.Children, 4)
	toggle := classes.Children[1]
	assert.Equal(t, "button", toggle.Tag)
	assert.True(t, toggle.HasClass("symbology-opener"))
	list := classes.Children[3]
	assert.True(t, list.HasClass("ul-multi-symbol"))
	assert.True(t, list.HasClass("symbology-collapsed"))
	require.Len(t, list.Children, 2)
	sy := f.s.Symbology(f.leaf("classes").ID)
	assert.Equal(t, "ls_symbol_"+strconv.Itoa(int(sy.Symbols[0].ID)), list.Children[0].ID)
	assert.Equal(t, "Big", list.Children[0].Children[1].Text)

	collapsed, err := f.s.ToggleSymbology(f.leaf("classes").ID)
	require.NoError(t, err)
	assert.False(t, collapsed)
	assert.False(t, toggle.HasClass("symbology-opener"))
	_, err = f.s.ToggleSymbology(f.leaf("near").ID)
	assert.Error(t, err)

	labels := li(t, f, "labels")
	mock := labels.Children[1]
	assert.True(t, mock.HasClass("mock-symbol-canvas"))
	assert.Equal(t, 24.0, mock.Width)
	assert.True(t, labels.Children[2].HasClass("label-no-symbol"))

	// Every node is in the lookup and groups lose their loading marker.
	assert.Len(t, f.s.Lookup(), 6)
	for _, n := range f.s.Nodes() {
		assert.Equal(t, MarkerNone, f.s.State(n))
	}
	assert.Contains(t, f.events, EventSymbols)
}

func TestSelectorLabelsFollowZoom(t *testing.T) {
	f := styledPanels(t)
	require.NoError(t, f.s.MaterializeSelectorSymbols(f.m))

	nearLabel := li(t, f, "near").Children[2]
	small := f.s.Symbology(f.leaf("classes").ID).Symbols[1]
	smallLabel := f.s.selectorLabels[small.ID]

	// Scale 2000: near (max 1000) and Small (min 3000) are out of range.
	assert.True(t, nearLabel.HasClass(ClassNotInRange))
	assert.True(t, smallLabel.HasClass(ClassNotInRange))

	f.m.MoveTo(resolutionFor(500), orb.Point{})
	assert.False(t, nearLabel.HasClass(ClassNotInRange))
	assert.True(t, smallLabel.HasClass(ClassNotInRange))

	f.m.MoveTo(resolutionFor(4000), orb.Point{})
	assert.True(t, nearLabel.HasClass(ClassNotInRange))
	assert.False(t, smallLabel.HasClass(ClassNotInRange))
}

func TestZoomListenerIgnoresPans(t *testing.T) {
	f := styledPanels(t)
	require.NoError(t, f.s.MaterializeSelectorSymbols(f.m))
	require.NoError(t, f.s.BuildLegend(f.m, nil))

	count := func() int {
		n := 0
		for _, e := range f.events {
			if e == EventZoom {
				n++
			}
		}
		return n
	}
	before := count()
	f.m.MoveTo(f.view.Resolution(), orb.Point{100, 100})
	assert.Equal(t, before, count())
	f.m.MoveTo(resolutionFor(800), orb.Point{100, 100})
	assert.Equal(t, before+1, count(), "one listener serves both panels")
}

func TestSyncSelectorPanelIndeterminate(t *testing.T) {
	f := styledPanels(t)
	require.NoError(t, f.s.MaterializeSelectorSymbols(f.m))

	group := f.s.Nodes()[0]
	groupBox := f.s.Lookup()[group.NodeID()].Checkbox
	assert.False(t, groupBox.Indeterminate)
	assert.True(t, groupBox.Checked)

	require.NoError(t, f.s.SetVisible(f.leaf("far").ID, false))
	assert.True(t, groupBox.Indeterminate)
	assert.False(t, f.s.selectorBoxes[f.leaf("far").ID].Checked)

	require.NoError(t, f.s.SetVisible(group.NodeID(), false))
	assert.False(t, groupBox.Checked)
	assert.False(t, f.leaf("near").Layer.Visible())

	assert.Error(t, f.s.SetVisible(999, true))
}

func TestBuildLegendLayout(t *testing.T) {
	f := styledPanels(t)
	container := ui.New("div", "legend-box")
	require.NoError(t, f.s.BuildLegend(f.m, container))
	assert.ErrorIs(t, f.s.BuildLegend(f.m, container), ErrLegendBuilt)

	table := f.s.LegendPanel()
	assert.Same(t, container, table.Parent)
	// The text-only layer has no symbols and is left out.
	require.Len(t, table.Children, 3)

	group := table.Children[0]
	assert.Equal(t, "legend-group-"+strconv.Itoa(int(f.s.Nodes()[0].NodeID())), group.ID)
	assert.True(t, group.HasClass("legend-row-group"))
	assert.Equal(t, "Gated", group.Children[0].Text)
	require.Len(t, group.Children[1].Children, 2)

	classes := table.Children[1]
	assert.True(t, classes.HasClass("label-multi-symbol-layer"))
	assert.Equal(t, "classes:", classes.Children[0].Text)

	plain := table.Children[2]
	assert.True(t, plain.HasClass("label-single-symbol"))
	assert.True(t, plain.HasClass(ClassSwitchedOff))

	sym := f.s.Symbology(f.leaf("plain").ID).Symbols[0]
	c, ok := f.s.SymbolCanvas(sym.ID, ConsumerLegend)
	require.True(t, ok)
	assert.Equal(t, 34.0, c.CSSWidth())
	_, ok = f.s.SymbolCanvas(sym.ID, ConsumerSelector)
	assert.False(t, ok, "selector not materialized")
}

func TestLegendParentPropagation(t *testing.T) {
	f := styledPanels(t)
	require.NoError(t, f.s.BuildLegend(f.m, nil))

	group := f.s.LegendPanel().Children[0]
	rows := group.Children[1].Children
	near, far := rows[0], rows[1]

	// Scale 2000: near (max 1000) and far (max 1500) are both hidden.
	assert.True(t, near.HasClass(ClassNotInRange))
	assert.True(t, far.HasClass(ClassNotInRange))
	assert.True(t, group.HasClass(ClassNoChildrenVisible))

	f.m.MoveTo(resolutionFor(1200), orb.Point{})
	assert.False(t, group.HasClass(ClassNoChildrenVisible))
	assert.False(t, far.HasClass(ClassNotInRange))
	assert.True(t, near.HasClass(ClassNotInRange), "sibling untouched")

	// Switching the only shown child off hides the group again.
	require.NoError(t, f.s.SetVisible(f.leaf("far").ID, false))
	assert.True(t, far.HasClass(ClassSwitchedOff))
	assert.True(t, group.HasClass(ClassNoChildrenVisible))

	require.NoError(t, f.s.SetVisible(f.leaf("far").ID, true))
	assert.False(t, group.HasClass(ClassNoChildrenVisible))
}

func TestLegendPropagatesThroughNestedGroups(t *testing.T) {
	f := newFixture(t, `
- group:
    - group:
        - table: a
      label: Inner
  label: Outer
`)
	f.apply(map[string]maprt.Source{"a": lines(1)},
		map[string][]byte{"a": sldDoc(rule("", -1, 1000, lineSymbolizer))}, symbolsOn)
	require.NoError(t, f.s.BuildLegend(f.m, nil))

	outer := f.s.LegendPanel().Children[0]
	inner := outer.Children[1].Children[0]
	assert.True(t, inner.HasClass(ClassNoChildrenVisible))
	assert.True(t, outer.HasClass(ClassNoChildrenVisible))

	f.m.MoveTo(resolutionFor(100), orb.Point{})
	assert.False(t, inner.HasClass(ClassNoChildrenVisible))
	assert.False(t, outer.HasClass(ClassNoChildrenVisible))
}

func TestRefreshSymbolReplacesCanvases(t *testing.T) {
	f := styledPanels(t)
	require.NoError(t, f.s.MaterializeSelectorSymbols(f.m))
	require.NoError(t, f.s.BuildLegend(f.m, nil))

	leaf := f.leaf("plain")
	sym := f.s.Symbology(leaf.ID).Symbols[0]
	oldSelector, oldLegend := sym.selectorCanvas, sym.legendCanvas
	parent := oldSelector.Parent
	rev := leaf.Layer.Revision()

	f.s.Loop().Post(func() { f.s.refreshSymbol(sym.ID) })
	assert.Equal(t, 1, f.s.Loop().Drain())

	assert.NotSame(t, oldSelector, sym.selectorCanvas)
	assert.NotSame(t, oldLegend, sym.legendCanvas)
	assert.Same(t, parent, sym.selectorCanvas.Parent)
	assert.Nil(t, oldSelector.Parent)
	assert.Equal(t, rev+1, leaf.Layer.Revision())
	assert.Equal(t, EventSymbols, f.events[len(f.events)-1])
}

func TestIconLoadRefreshesEachSymbolOnce(t *testing.T) {
	var pin bytes.Buffer
	require.NoError(t, png.Encode(&pin, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write(pin.Bytes())
	}))
	defer srv.Close()
	unblock := sync.OnceFunc(func() { close(release) })
	defer unblock()

	icons, err := sld.NewIconCache(0, "")
	require.NoError(t, err)
	iconSymbolizer := fmt.Sprintf(`<PointSymbolizer><Graphic><ExternalGraphic><OnlineResource href=%q/></ExternalGraphic>`+
		`<Size>12</Size></Graphic></PointSymbolizer>`, srv.URL+"/pin.png")

	const n = 20
	var config strings.Builder
	sources := map[string]maprt.Source{}
	styles := map[string][]byte{}
	for i := range n {
		table := fmt.Sprintf("site%d", i)
		fmt.Fprintf(&config, "- table: %s\n", table)
		sources[table] = points(3)
		styles[table] = sldDoc(rule("", -1, -1, iconSymbolizer))
	}
	f := newFixture(t, config.String())
	opts := symbolsOn
	opts.Icons = icons
	require.NoError(t, f.apply(sources, styles, opts).Err())
	require.NoError(t, f.s.MaterializeSelectorSymbols(f.m))
	require.NoError(t, f.s.BuildLegend(f.m, nil))

	unblock()
	<-icons.Idle()
	assert.Equal(t, n, f.s.Loop().Drain())
	assert.Equal(t, EventSymbols, f.events[len(f.events)-1])
}

func TestSelectorHTML(t *testing.T) {
	f := styledPanels(t)
	require.NoError(t, f.s.MaterializeSelectorSymbols(f.m))
	html := ui.HTML(f.s.SelectorPanel(), ui.HTMLOptions{
		SymbolURL: func(data map[string]string) string {
			return "/symbols/" + data["symbol"] + "/" + data["consumer"] + ".png"
		},
	})
	assert.Contains(t, html, `<ul class="layer-switcher">`)
	assert.Contains(t, html, `class="symbol-canvas"`)
	assert.Contains(t, html, `/selector.png"`)
	assert.Contains(t, html, "layer-switcher-fold")
}
