package styler

import (
	"maps"
	"slices"
	"strconv"

	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/ui"
)

// Marker is the load state shown next to a layer label.
type Marker string

const (
	MarkerNone         Marker = ""
	MarkerLoading      Marker = "loading"
	MarkerNoFeatures   Marker = "no-features"
	MarkerStyleMissing Marker = "style-missing"
	MarkerNoLayerData  Marker = "no-layer-data"
)

// Text is the label suffix shown for the marker.
func (m Marker) Text() string {
	switch m {
	case MarkerLoading:
		return "(Loading...)"
	case MarkerNoFeatures:
		return "(No features)"
	case MarkerStyleMissing:
		return "(Style missing)"
	case MarkerNoLayerData:
		return "(No data)"
	}
	return ""
}

// Layer property keys set on placeholders.
const (
	PropID              = "id"
	PropState           = "state"
	PropFold            = "fold"
	PropSelectable      = "selectable"
	PropPopupAttributes = "popupAttributes"
)

// BuildLayerTree normalizes raw into the session's definition tree and
// creates one placeholder layer or group per node. The returned layers are
// in draw order (first-declared drawn last, so on top); selectable lists the
// selectable leaves in definition order. A ConfigurationError aborts the
// build and leaves the session without a tree.
func (s *Session) BuildLayerTree(raw []layerdef.Raw) ([]maprt.Layer, []*maprt.VectorLayer, error) {
	if s.nodes != nil {
		return nil, nil, ErrTreeBuilt
	}
	nodes, err := s.builder.Build(raw)
	if err != nil {
		return nil, nil, err
	}
	s.nodes = nodes

	var selectable []*maprt.VectorLayer
	layers := s.placeholders(nodes, &selectable)

	s.selector = ui.New("ul", "layer-switcher")
	s.selectorItems(s.selector, nodes)

	s.logger.Debug("layer tree built",
		"leaves", len(layerdef.Leaves(nodes)),
		"groups", len(layerdef.Groups(nodes)),
		"selectable", len(selectable))
	return layers, selectable, nil
}

func (s *Session) placeholders(nodes []layerdef.Node, selectable *[]*maprt.VectorLayer) []maprt.Layer {
	out := make([]maprt.Layer, 0, len(nodes))
	for _, n := range nodes {
		var l maprt.Layer
		switch n := n.(type) {
		case *layerdef.Group:
			children := s.placeholders(n.Children, selectable)
			n.Layer = maprt.NewGroup(children, maprt.Options{
				Title:   n.Label,
				Visible: n.Visible,
				Properties: map[string]any{
					PropID:    n.ID,
					PropState: MarkerLoading,
					PropFold:  string(n.Fold),
				},
			})
			l = n.Layer
		case *layerdef.Leaf:
			props := map[string]any{}
			maps.Copy(props, n.LayerOptions)
			props[PropID] = n.ID
			props[PropState] = MarkerLoading
			props[PropSelectable] = n.Selectable
			if n.PopupAttributes != nil {
				props[PropPopupAttributes] = n.PopupAttributes
			}
			// Invisible until styled.
			n.Layer = maprt.NewVectorLayer(maprt.Options{Title: n.Label, Properties: props})
			if n.Selectable {
				*selectable = append(*selectable, n.Layer)
			}
			l = n.Layer
		}
		s.watchVisibility(n.NodeID(), l)
		out = slices.Insert(out, 0, l)
	}
	return out
}

// watchVisibility keeps the selector checkbox of id in step with l.
func (s *Session) watchVisibility(id layerdef.ID, l maprt.Layer) {
	l.OnChangeVisible(func(bool) {
		if box := s.selectorBoxes[id]; box != nil {
			box.Checked = l.Visible()
		}
		if s.selectorMap != nil {
			s.SyncSelectorPanel(s.selectorMap)
		}
		s.changed(EventVisibility)
	})
}

// selectorItems renders nodes in definition order, the top of the panel
// being the top of the map.
func (s *Session) selectorItems(parent *ui.Element, nodes []layerdef.Node) {
	for _, n := range nodes {
		id := n.NodeID()
		li := ui.New("li")
		li.SetData("layer", strconv.Itoa(int(id)))

		box := ui.New("input")
		box.ID = "layer-checkbox-" + strconv.Itoa(int(id))
		box.Checked = layerOf(n).Visible()
		marker := ui.NewText("span", MarkerLoading.Text(), string(MarkerLoading))
		label := ui.New("label").Append(marker, ui.NewText("span", n.NodeLabel(), "layer-title"))
		li.Append(box, label)

		s.selectorBoxes[id] = box
		s.selectorMarkers[id] = marker

		if g, ok := n.(*layerdef.Group); ok {
			li.AddClass("group")
			li.AddClass("layer-switcher-fold")
			if g.Fold == layerdef.FoldClose {
				li.AddClass("layer-switcher-close")
			} else {
				li.AddClass("layer-switcher-open")
			}
			children := ui.New("ul")
			li.Append(children)
			s.selectorItems(children, g.Children)
		} else {
			li.AddClass("layer")
		}
		parent.Append(li)
	}
}

// setState records a load-state marker on the layer and its selector label.
func (s *Session) setState(n layerdef.Node, m Marker) {
	if l := layerOf(n); l != nil {
		l.Set(PropState, m)
		l.SetTitle(n.NodeLabel())
	}
	marker := s.selectorMarkers[n.NodeID()]
	if marker == nil {
		return
	}
	if m == MarkerNone {
		marker.Remove()
		return
	}
	marker.Classes = []string{string(m)}
	marker.Text = m.Text()
	if marker.Parent == nil {
		if label := s.selectorLabel(n.NodeID()); label != nil {
			label.InsertBefore(marker, label.FirstChild())
		}
	}
}

// selectorLabel returns the label element of a node's selector row.
func (s *Session) selectorLabel(id layerdef.ID) *ui.Element {
	box := s.selectorBoxes[id]
	if box == nil || box.Parent == nil {
		return nil
	}
	for _, c := range box.Parent.Children {
		if c.Tag == "label" {
			return c
		}
	}
	return nil
}

// State returns the load-state marker of a node.
func (s *Session) State(n layerdef.Node) Marker {
	l := layerOf(n)
	if l == nil {
		return MarkerNone
	}
	m, _ := l.Get(PropState).(Marker)
	return m
}

func layerOf(n layerdef.Node) maprt.Layer {
	switch n := n.(type) {
	case *layerdef.Group:
		if n.Layer != nil {
			return n.Layer
		}
	case *layerdef.Leaf:
		if n.Layer != nil {
			return n.Layer
		}
	}
	return nil
}
