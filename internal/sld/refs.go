package sld

import (
	"slices"
	"strings"
)

// PropertyRefs lists, sorted and unique, the feature properties that
// symbolizer parameters read through ogc:PropertyName.
func PropertyRefs(fts *FeatureTypeStyle) []string {
	if fts == nil {
		return nil
	}
	seen := map[string]bool{}
	add := func(e *Expr) {
		if e != nil && strings.TrimSpace(e.PropertyName) != "" {
			seen[strings.TrimSpace(e.PropertyName)] = true
		}
	}
	var params func(p *Params)
	var graphic func(g *Graphic)
	params = func(p *Params) {
		for _, list := range [][]*Param{p.SVG, p.CSS} {
			for _, param := range list {
				add(&param.Expr)
			}
		}
	}
	fill := func(f *Fill) {
		if f == nil {
			return
		}
		params(&f.Params)
		if f.GraphicFill != nil {
			graphic(f.GraphicFill.Graphic)
		}
	}
	stroke := func(s *Stroke) {
		if s == nil {
			return
		}
		params(&s.Params)
		if s.GraphicStroke != nil {
			graphic(s.GraphicStroke.Graphic)
		}
	}
	graphic = func(g *Graphic) {
		if g == nil {
			return
		}
		add(g.Size)
		add(g.Opacity)
		add(g.Rotation)
		if g.Displacement != nil {
			add(g.Displacement.X)
			add(g.Displacement.Y)
		}
		if g.AnchorPoint != nil {
			add(g.AnchorPoint.X)
			add(g.AnchorPoint.Y)
		}
		for _, m := range g.Marks {
			fill(m.Fill)
			stroke(m.Stroke)
		}
	}
	for _, r := range fts.Rules {
		for _, ps := range r.PointSymbolizers {
			graphic(ps.Graphic)
		}
		for _, ls := range r.LineSymbolizers {
			stroke(ls.Stroke)
		}
		for _, ps := range r.PolygonSymbolizers {
			fill(ps.Fill)
			stroke(ps.Stroke)
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
