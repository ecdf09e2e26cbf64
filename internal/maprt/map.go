package maprt

import "github.com/paulmach/orb"

// Map ties a view to its layers and dispatches move-end events.
type Map struct {
	view    *View
	layers  []Layer
	moveEnd []func()
}

// NewMap creates a map over view.
func NewMap(view *View) *Map {
	return &Map{view: view}
}

func (m *Map) View() *View     { return m.view }
func (m *Map) Layers() []Layer { return m.layers }

// AddLayers appends layers on top of the existing ones.
func (m *Map) AddLayers(layers ...Layer) {
	m.layers = append(m.layers, layers...)
}

// OnMoveEnd registers a listener fired once at the end of every view change.
func (m *Map) OnMoveEnd(fn func()) {
	m.moveEnd = append(m.moveEnd, fn)
}

// MoveTo applies one completed interaction (zoom and/or pan) and fires
// move-end.
func (m *Map) MoveTo(resolution float64, center orb.Point) {
	m.view.SetResolution(resolution)
	m.view.SetCenter(center)
	for _, fn := range m.moveEnd {
		fn()
	}
}

// SyncChildVisibility reports, for every group reachable from the map,
// whether its children disagree on visibility (the selector's indeterminate
// state). A group is indeterminate when at least one descendant layer is
// visible and at least one is not, or when any child group is itself
// indeterminate.
func (m *Map) SyncChildVisibility() map[*Group]bool {
	out := map[*Group]bool{}
	for _, l := range m.layers {
		if g, ok := l.(*Group); ok {
			childVisibility(g, out)
		}
	}
	return out
}

func childVisibility(g *Group, out map[*Group]bool) (anyVisible, anyHidden bool) {
	indeterminate := false
	for _, l := range g.layers {
		switch l := l.(type) {
		case *Group:
			v, h := childVisibility(l, out)
			if out[l] {
				indeterminate = true
			}
			if l.Visible() {
				anyVisible = anyVisible || v
				anyHidden = anyHidden || h
			} else {
				anyHidden = true
			}
		default:
			if l.Visible() {
				anyVisible = true
			} else {
				anyHidden = true
			}
		}
	}
	out[g] = indeterminate || (anyVisible && anyHidden)
	return anyVisible, anyHidden
}
