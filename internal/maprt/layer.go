package maprt

import (
	"maps"

	"github.com/paulmach/orb/geojson"
)

// Source supplies the features of one table.
type Source interface {
	Features() []*geojson.Feature
}

// VectorSource is an in-memory Source.
type VectorSource struct {
	features []*geojson.Feature
}

// NewVectorSource wraps a feature collection. A nil collection is empty.
func NewVectorSource(fc *geojson.FeatureCollection) *VectorSource {
	if fc == nil {
		return &VectorSource{}
	}
	return &VectorSource{features: fc.Features}
}

func (s *VectorSource) Features() []*geojson.Feature { return s.features }

// StyleFunc resolves the styles used to draw one feature at a resolution.
type StyleFunc func(f *geojson.Feature, resolution float64) []*Style

// Layer is implemented by *VectorLayer and *Group.
type Layer interface {
	Title() string
	SetTitle(title string)
	Visible() bool
	SetVisible(visible bool)
	OnChangeVisible(fn func(old bool))
	Get(key string) any
	Set(key string, value any)
}

// Options configure a new layer or group.
type Options struct {
	Title      string
	Visible    bool
	Properties map[string]any
}

type base struct {
	title     string
	visible   bool
	props     map[string]any
	listeners []func(old bool)
}

func newBase(opts Options) base {
	props := map[string]any{}
	maps.Copy(props, opts.Properties)
	return base{title: opts.Title, visible: opts.Visible, props: props}
}

func (b *base) Title() string         { return b.title }
func (b *base) SetTitle(title string) { b.title = title }
func (b *base) Visible() bool         { return b.visible }
func (b *base) Get(key string) any    { return b.props[key] }
func (b *base) Set(key string, v any) { b.props[key] = v }

// SetVisible changes visibility and fires change:visible listeners with the
// previous value. Setting the current value is a no-op.
func (b *base) SetVisible(visible bool) {
	if b.visible == visible {
		return
	}
	old := b.visible
	b.visible = visible
	for _, fn := range b.listeners {
		fn(old)
	}
}

// OnChangeVisible registers a change:visible listener.
func (b *base) OnChangeVisible(fn func(old bool)) {
	b.listeners = append(b.listeners, fn)
}

// VectorLayer draws the features of a Source with a StyleFunc.
type VectorLayer struct {
	base
	source   Source
	style    StyleFunc
	revision int
}

// NewVectorLayer creates a layer with no source.
func NewVectorLayer(opts Options) *VectorLayer {
	return &VectorLayer{base: newBase(opts)}
}

func (l *VectorLayer) Source() Source        { return l.source }
func (l *VectorLayer) SetSource(s Source)    { l.source = s; l.Changed() }
func (l *VectorLayer) Style() StyleFunc      { return l.style }
func (l *VectorLayer) SetStyle(fn StyleFunc) { l.style = fn; l.Changed() }
func (l *VectorLayer) Revision() int         { return l.revision }

// Changed marks the layer dirty. Redraw requests coalesce: the renderer only
// compares revisions.
func (l *VectorLayer) Changed() { l.revision++ }

// Group holds child layers in draw order (last drawn on top).
type Group struct {
	base
	layers []Layer
}

// NewGroup creates a group over layers.
func NewGroup(layers []Layer, opts Options) *Group {
	return &Group{base: newBase(opts), layers: layers}
}

func (g *Group) Layers() []Layer { return g.layers }
