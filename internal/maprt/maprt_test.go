package maprt

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebMercatorPointResolution(t *testing.T) {
	// At the equator a Mercator metre is a ground metre.
	assert.InDelta(t, 10.0, WebMercator{}.PointResolution(10, orb.Point{0, 0}), 0.05)

	// At 60 degrees north ground distance halves.
	y := 8399737.89 // latitude 60 in EPSG:3857
	assert.InDelta(t, 5.0, WebMercator{}.PointResolution(10, orb.Point{0, y}), 0.05)
}

func TestProjectionByCode(t *testing.T) {
	p, err := ProjectionByCode("epsg:27700")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:27700", p.Code())
	assert.Equal(t, 3.0, p.PointResolution(3, orb.Point{400000, 300000}))

	p, err = ProjectionByCode("")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:3857", p.Code())

	_, err = ProjectionByCode("EPSG:4326")
	assert.Error(t, err)
}

func TestViewRealResolution(t *testing.T) {
	v := NewView(Metric{}, 2, orb.Point{})
	assert.Equal(t, 2.0, v.RealResolution())
	v.SetResolution(4)
	assert.Equal(t, 4.0, v.RealResolution())
	assert.Equal(t, "metric", v.Projection().Code())
}

func TestSetVisibleFiresOnChange(t *testing.T) {
	l := NewVectorLayer(Options{Title: "roads"})
	var olds []bool
	l.OnChangeVisible(func(old bool) { olds = append(olds, old) })

	l.SetVisible(false)
	assert.Empty(t, olds, "unchanged value is a no-op")
	l.SetVisible(true)
	l.SetVisible(false)
	assert.Equal(t, []bool{false, true}, olds)
}

func TestVectorLayerRevision(t *testing.T) {
	l := NewVectorLayer(Options{Properties: map[string]any{"id": 3}})
	assert.Equal(t, 3, l.Get("id"))
	r := l.Revision()
	l.SetSource(NewVectorSource(nil))
	l.Changed()
	assert.Equal(t, r+2, l.Revision())
	assert.Empty(t, l.Source().Features())
}

func TestMapMoveEndAndIndeterminate(t *testing.T) {
	a := NewVectorLayer(Options{Visible: true})
	b := NewVectorLayer(Options{Visible: false})
	inner := NewGroup([]Layer{a, b}, Options{Visible: true})
	outer := NewGroup([]Layer{inner}, Options{Visible: true})
	solo := NewGroup([]Layer{NewVectorLayer(Options{Visible: true})}, Options{Visible: true})

	m := NewMap(NewView(Metric{}, 1, orb.Point{}))
	m.AddLayers(outer, solo)
	state := m.SyncChildVisibility()
	assert.True(t, state[inner])
	assert.True(t, state[outer])
	assert.False(t, state[solo])

	moves := 0
	m.OnMoveEnd(func() { moves++ })
	m.MoveTo(8, orb.Point{1, 2})
	assert.Equal(t, 1, moves)
	assert.Equal(t, 8.0, m.View().Resolution())
	assert.Equal(t, orb.Point{1, 2}, m.View().Center())
}

func TestMarkAndIconAnchors(t *testing.T) {
	m := &Mark{Radius: 4, Stroke: &Stroke{Width: 2}, Displacement: [2]float64{1, 2}}
	assert.Equal(t, [2]float64{10, 10}, m.Size())
	assert.Equal(t, [2]float64{4, 7}, m.Anchor())

	i := &Icon{ImgSize: [2]float64{10, 20}, AnchorFrac: [2]float64{0.5, 1}}
	assert.Equal(t, [2]float64{5, 20}, i.Anchor())
	assert.Equal(t, 1.0, i.Scale())
	assert.False(t, i.Loaded())
}

func TestLoop(t *testing.T) {
	l := NewLoop(4)
	ran := 0
	l.Post(func() { ran++ })
	l.Post(func() { ran++ })
	assert.Equal(t, 2, l.Drain())
	assert.Equal(t, 2, ran)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { l.Run(ctx); close(done) }()
	require.NoError(t, l.Do(ctx, func() { ran++ }))
	assert.Equal(t, 3, ran)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoopRunUntilServesFullBuffer(t *testing.T) {
	l := NewLoop(4)
	done := make(chan struct{})
	ran := 0
	go func() {
		for range 50 {
			l.Post(func() { ran++ })
		}
		close(done)
	}()

	finished := make(chan int)
	go func() { finished <- l.RunUntil(done) }()
	select {
	case n := <-finished:
		assert.Equal(t, 50, n)
		assert.Equal(t, 50, ran)
	case <-time.After(5 * time.Second):
		t.Fatal("RunUntil did not return")
	}
}
