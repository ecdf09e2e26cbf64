package service

import (
	"context"
	"fmt"

	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
	"github.com/joeblew999/plat-sld/internal/styler"
)

// Layers returns the layer tree in definition order.
func (s *MapService) Layers(ctx context.Context) ([]LayerNode, error) {
	var nodes []LayerNode
	err := s.Do(ctx, func(ss *styler.Session, m *maprt.Map) {
		realRes := m.View().RealResolution()
		for _, n := range ss.Nodes() {
			nodes = append(nodes, s.layerNode(ss, n, realRes))
		}
	})
	return nodes, err
}

// Layer returns one node of the layer tree.
func (s *MapService) Layer(ctx context.Context, id int) (LayerNode, bool, error) {
	var (
		node  LayerNode
		found bool
	)
	err := s.Do(ctx, func(ss *styler.Session, m *maprt.Map) {
		n := layerdef.Find(ss.Nodes(), layerdef.ID(id))
		if n == nil {
			return
		}
		node, found = s.layerNode(ss, n, m.View().RealResolution()), true
	})
	return node, found, err
}

// layerNode snapshots n. Must run on the loop.
func (s *MapService) layerNode(ss *styler.Session, n layerdef.Node, realRes float64) LayerNode {
	out := LayerNode{
		ID:    int(n.NodeID()),
		Label: n.NodeLabel(),
		State: string(ss.State(n)),
	}
	switch n := n.(type) {
	case *layerdef.Group:
		out.Kind = "group"
		out.Fold = string(n.Fold)
		out.Selectable = n.Selectable
		if n.Layer != nil {
			out.Title = n.Layer.Title()
			out.Visible = n.Layer.Visible()
		}
		for _, c := range n.Children {
			out.Children = append(out.Children, s.layerNode(ss, c, realRes))
		}
	case *layerdef.Leaf:
		out.Kind = "layer"
		out.Table = n.Table
		out.StyleName = n.StyleName
		out.Selectable = n.Selectable
		if n.Layer != nil {
			out.Title = n.Layer.Title()
			out.Visible = n.Layer.Visible()
		}
		if sy := ss.Symbology(n.ID); sy != nil {
			out.Symbology = s.symbology(ss, sy, realRes)
		}
	}
	return out
}

func (s *MapService) symbology(ss *styler.Session, sy *styler.Symbology, realRes float64) *Symbology {
	gates := map[styler.SymbolID]styler.ScaleGate{}
	for _, g := range ss.Registry().Gates() {
		gates[g.Symbol] = g
	}
	sd := sld.ScaleDenominator(realRes)

	out := &Symbology{Shape: sy.Shape.String(), Symbols: []Symbol{}}
	for _, sym := range sy.Symbols {
		info := Symbol{
			ID:                  int(sym.ID),
			Label:               sym.Label,
			MinScaleDenominator: sym.MinScaleDenominator,
			MaxScaleDenominator: sym.MaxScaleDenominator,
			InRange:             true,
		}
		if g, ok := gates[sym.ID]; ok {
			info.InRange = !g.Hidden(sd)
		}
		if _, ok := ss.SymbolCanvas(sym.ID, styler.ConsumerSelector); ok {
			info.SelectorURL = s.symbolURL(int(sym.ID), styler.ConsumerSelector)
		}
		if _, ok := ss.SymbolCanvas(sym.ID, styler.ConsumerLegend); ok {
			info.LegendURL = s.symbolURL(int(sym.ID), styler.ConsumerLegend)
		}
		out.Symbols = append(out.Symbols, info)
	}
	return out
}

// SymbolPath is the route symbol images are served on.
const SymbolPath = "/api/v1/symbols"

func (s *MapService) symbolURL(id int, consumer string) string {
	return fmt.Sprintf("%s/%d/%s?r=%d", SymbolPath, id, consumer, s.symbolRev)
}
