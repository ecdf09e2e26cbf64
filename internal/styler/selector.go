package styler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/ui"
)

// ErrSelectorBuilt is returned when MaterializeSelectorSymbols is called
// twice.
var ErrSelectorBuilt = errors.New("selector symbols already materialized")

// PropIndeterminate is set on groups whose children disagree on visibility.
const PropIndeterminate = "indeterminate"

// MaterializeSelectorSymbols adds the extracted symbols to the layer
// selector, fills the visibility lookup and arms zoom updates of the
// scale-gated selector labels. It runs once, after the styling passes.
func (s *Session) MaterializeSelectorSymbols(m *maprt.Map) error {
	if s.nodes == nil {
		return ErrNoTree
	}
	if s.selectorMap != nil {
		return ErrSelectorBuilt
	}
	s.selectorMap = m

	for _, leaf := range layerdef.Leaves(s.nodes) {
		box := s.selectorBoxes[leaf.ID]
		s.lookup[leaf.ID] = Handle{Checkbox: box, Layer: leaf.Layer}
		if sy := s.symbology[leaf.ID]; sy != nil {
			s.selectorSymbols(leaf, sy, box.Parent)
		}
	}
	s.UpdateZoomDependentSymbols(m, ZoomTargets{Selector: true})

	for _, g := range layerdef.Groups(s.nodes) {
		s.lookup[g.ID] = Handle{Checkbox: s.selectorBoxes[g.ID], Layer: g.Layer}
		s.setState(g, MarkerNone)
	}
	s.SyncSelectorPanel(m)
	s.changed(EventSymbols)
	return nil
}

// selectorSymbols decorates the selector row li of a styled leaf.
func (s *Session) selectorSymbols(leaf *layerdef.Leaf, sy *Symbology, li *ui.Element) {
	label := s.selectorLabel(leaf.ID)
	switch sy.Shape {
	case NoSymbol:
		label.AddClass("label-no-symbol")
		mock := ui.New("span", "symbol-canvas", "mock-symbol-canvas")
		mock.Width = s.selectorSizing.CSSWidth()
		li.InsertBefore(mock, li.LastChild())

	case SingleSymbol:
		sym := sy.Symbols[0]
		label.AddClass("label-single-symbol")
		li.AddClass("li-single-symbol")
		s.selectorLabels[sym.ID] = label
		sym.selectorCanvas = s.symbolCanvas(s.selectorSizing, ConsumerSelector, sym, sy.Example, sy.RealResolution)
		li.InsertBefore(sym.selectorCanvas, li.LastChild())

	case MultiSymbol:
		label.AddClass("label-multi-symbol-layer")
		toggle := ui.New("button", "symbology-toggle")
		toggle.SetData("layer", strconv.Itoa(int(leaf.ID)))
		li.InsertBefore(toggle, li.LastChild())

		list := ui.New("ul", "ul-multi-symbol")
		for _, sym := range sy.Symbols {
			item := ui.New("li")
			item.ID = "ls_symbol_" + strconv.Itoa(int(sym.ID))
			sym.selectorCanvas = s.symbolCanvas(s.selectorSizing, ConsumerSelector, sym, sy.Example, sy.RealResolution)
			symLabel := ui.NewText("span", sym.Label, "label-multi-symbol")
			item.Append(sym.selectorCanvas, symLabel)
			list.Append(item)
			s.selectorLabels[sym.ID] = symLabel
		}
		if leaf.CollapseSymbology {
			toggle.AddClass("symbology-opener")
			list.AddClass("symbology-collapsed")
		}
		li.Append(list)
		s.selectorToggles[leaf.ID] = toggle
	}
}

// SyncSelectorPanel copies layer visibility onto the selector checkboxes and
// marks groups whose children disagree as indeterminate.
func (s *Session) SyncSelectorPanel(m *maprt.Map) {
	indeterminate := m.SyncChildVisibility()
	for _, h := range s.lookup {
		if h.Checkbox == nil || h.Layer == nil {
			continue
		}
		h.Checkbox.Checked = h.Layer.Visible()
		if g, ok := h.Layer.(*maprt.Group); ok {
			h.Checkbox.Indeterminate = indeterminate[g]
			g.Set(PropIndeterminate, indeterminate[g])
		}
	}
}

// ToggleSymbology opens or collapses the symbol list of a multi-symbol
// layer and reports whether it is now collapsed.
func (s *Session) ToggleSymbology(id layerdef.ID) (bool, error) {
	toggle := s.selectorToggles[id]
	if toggle == nil || toggle.Parent == nil {
		return false, fmt.Errorf("layer %d has no symbol list", id)
	}
	toggle.ToggleClass("symbology-opener")
	collapsed := false
	if list := toggle.Parent.LastChild(); list != nil && list.HasClass("ul-multi-symbol") {
		collapsed = list.ToggleClass("symbology-collapsed")
	}
	s.changed(EventSymbols)
	return collapsed, nil
}

// SetVisible switches a layer or group. Switching a group switches every
// descendant with it, as its selector checkbox does.
func (s *Session) SetVisible(id layerdef.ID, visible bool) error {
	n := layerdef.Find(s.nodes, id)
	if n == nil {
		return fmt.Errorf("no layer %d", id)
	}
	layerdef.Walk([]layerdef.Node{n}, func(n layerdef.Node) bool {
		if l := layerOf(n); l != nil {
			l.SetVisible(visible)
		}
		return true
	})
	if s.selectorMap != nil {
		s.SyncSelectorPanel(s.selectorMap)
	}
	return nil
}
