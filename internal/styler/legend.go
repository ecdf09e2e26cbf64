package styler

import (
	"errors"
	"strconv"

	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/ui"
)

// ErrLegendBuilt is returned when BuildLegend is called twice.
var ErrLegendBuilt = errors.New("legend already built")

// Legend row classes.
const (
	ClassSwitchedOff       = "switched-off"
	ClassNotInRange        = "not-in-range"
	ClassNoChildrenVisible = "no-children-visible"
)

// BuildLegend renders every styled layer into a legend list, appended to
// container when it is not nil. Rows follow layer visibility and, once
// armed here, zoom changes of scale-gated symbols.
func (s *Session) BuildLegend(m *maprt.Map, container *ui.Element) error {
	if s.nodes == nil {
		return ErrNoTree
	}
	if s.legend != nil {
		return ErrLegendBuilt
	}
	table := ui.New("ul", "legend-table")
	if container != nil {
		container.Append(table)
	}
	s.legend = table
	s.legendGroup(table, s.nodes, m.View().RealResolution())
	s.UpdateZoomDependentSymbols(m, ZoomTargets{Legend: true})
	s.logger.Debug("legend built", "rows", len(s.legendRows))
	s.changed(EventSymbols)
	return nil
}

func (s *Session) legendGroup(list *ui.Element, nodes []layerdef.Node, realResolution float64) {
	for _, n := range nodes {
		var row *ui.Element
		switch n := n.(type) {
		case *layerdef.Group:
			children := ui.New("ul")
			s.legendGroup(children, n.Children, realResolution)
			if len(children.Children) == 0 {
				continue
			}
			row = ui.New("li", "legend-row-group")
			row.ID = "legend-group-" + strconv.Itoa(int(n.ID))
			row.Append(ui.NewText("span", n.Label), children)

		case *layerdef.Leaf:
			sy := s.symbology[n.ID]
			if sy == nil || len(sy.Symbols) == 0 {
				continue
			}
			switch sy.Shape {
			case SingleSymbol:
				sym := sy.Symbols[0]
				row = ui.New("li", "label-single-symbol")
				row.ID = "legend-symbol-" + strconv.Itoa(int(sym.ID))
				sym.legendCanvas = s.symbolCanvas(s.legendSizing, ConsumerLegend, sym, sy.Example, realResolution)
				row.Append(sym.legendCanvas, ui.NewText("span", n.Label))
				s.legendRows[sym.ID] = row
			case MultiSymbol:
				row = ui.New("li", "label-multi-symbol-layer")
				row.ID = "legend-layer-" + strconv.Itoa(int(n.ID))
				symbols := ui.New("ul", "ul-multi-symbol")
				for _, sym := range sy.Symbols {
					item := ui.New("li")
					item.ID = "legend-symbol-" + strconv.Itoa(int(sym.ID))
					sym.legendCanvas = s.symbolCanvas(s.legendSizing, ConsumerLegend, sym, sy.Example, realResolution)
					item.Append(sym.legendCanvas, ui.NewText("span", sym.Label, "label-multi-symbol"))
					symbols.Append(item)
					s.legendRows[sym.ID] = item
				}
				row.Append(ui.NewText("span", n.Label+":"), symbols)
			default:
				continue
			}
		}
		list.Append(row)
		s.watchLegendRow(row, layerOf(n))
	}
}

// watchLegendRow keeps the switched-off class of row in step with l.
func (s *Session) watchLegendRow(row *ui.Element, l maprt.Layer) {
	if l == nil {
		return
	}
	row.SetClass(ClassSwitchedOff, !l.Visible())
	l.OnChangeVisible(func(old bool) {
		row.SetClass(ClassSwitchedOff, old)
		s.legendParentVisibilityUpdate(row, false)
		s.changed(EventVisibility)
	})
}

// legendParentVisibilityUpdate marks the row containing el with
// no-children-visible when none of el's siblings is shown, and walks up
// while that status changes. childVisible short-cuts the sibling scan when
// the caller already knows one child is shown.
func (s *Session) legendParentVisibilityUpdate(el *ui.Element, childVisible bool) {
	list := el.Parent
	if list == nil {
		return
	}
	row := list.Parent
	if row == nil || row.Tag != "li" {
		return
	}
	anyVisible := childVisible
	if !childVisible {
		for _, c := range list.Children {
			if !c.HasClass(ClassNotInRange) && !c.HasClass(ClassNoChildrenVisible) && !c.HasClass(ClassSwitchedOff) {
				anyVisible = true
				break
			}
		}
	}
	if !row.HasClass(ClassNoChildrenVisible) == anyVisible {
		return
	}
	row.SetClass(ClassNoChildrenVisible, !anyVisible)
	s.legendParentVisibilityUpdate(row, anyVisible && !row.HasClass(ClassSwitchedOff))
}
