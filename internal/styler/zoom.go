package styler

import (
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
)

// ZoomTargets selects the panels updated when the resolution changes.
type ZoomTargets struct {
	Selector bool
	Legend   bool
}

// UpdateZoomDependentSymbols marks every scale-gated symbol as in or out of
// range at the map's current real resolution, then keeps doing so at the
// end of every zoom.
func (s *Session) UpdateZoomDependentSymbols(m *maprt.Map, t ZoomTargets) {
	sd := sld.ScaleDenominator(m.View().RealResolution())
	for _, g := range s.registry.Gates() {
		hidden := g.Hidden(sd)
		if t.Selector {
			if label := s.selectorLabels[g.Symbol]; label != nil {
				label.SetClass(ClassNotInRange, hidden)
			} else {
				s.logger.Error("selector label missing", "symbol", g.Symbol)
			}
		}
		if t.Legend {
			row := s.legendRows[g.Symbol]
			if row == nil {
				s.logger.Error("legend row missing", "symbol", g.Symbol)
				continue
			}
			if row.HasClass(ClassNotInRange) == hidden {
				continue
			}
			row.SetClass(ClassNotInRange, hidden)
			s.legendParentVisibilityUpdate(row, false)
		}
	}
	s.ActivateUpdateOnZoom(m, t)
	s.changed(EventZoom)
}

// ActivateUpdateOnZoom arms, once per map, a move-end listener that reruns
// UpdateZoomDependentSymbols when the resolution changed. Later calls only
// add targets.
func (s *Session) ActivateUpdateOnZoom(m *maprt.Map, t ZoomTargets) {
	armed := s.zoomTargets[m]
	if armed == nil {
		armed = &ZoomTargets{}
		s.zoomTargets[m] = armed
		last := m.View().Resolution()
		m.OnMoveEnd(func() {
			res := m.View().Resolution()
			if res == last {
				return
			}
			last = res
			s.UpdateZoomDependentSymbols(m, *armed)
		})
	}
	armed.Selector = armed.Selector || t.Selector
	armed.Legend = armed.Legend || t.Legend
}
