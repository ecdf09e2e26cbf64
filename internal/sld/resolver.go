package sld

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-sld/internal/maprt"
)

// OGCPixelSize is the standardised rendering pixel size in metres.
const OGCPixelSize = 0.00028

// ScaleDenominator converts a real resolution (metres per pixel) into an
// OGC scale denominator.
func ScaleDenominator(realResolution float64) float64 {
	return realResolution / OGCPixelSize
}

// Kind is the simplified geometry class used to pick symbolizers.
type Kind int

const (
	KindUnknown Kind = iota
	KindPoint
	KindLine
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// KindOf classifies a geometry. Collections are unknown.
func KindOf(g orb.Geometry) Kind {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return KindPoint
	case orb.LineString, orb.MultiLineString:
		return KindLine
	case orb.Polygon, orb.MultiPolygon, orb.Ring:
		return KindPolygon
	default:
		return KindUnknown
	}
}

// ResolverOptions configure BuildStyleResolver.
type ResolverOptions struct {
	// ResolutionProvider, when set, replaces the resolution passed to the
	// style function on every call (the view's real resolution).
	ResolutionProvider func() float64

	// OnImageLoaded is called from the loading goroutine when an external
	// graphic this resolver asked for finishes loading. Renders that hit the
	// same href while it loads share one call.
	OnImageLoaded func()

	// Icons loads external graphics. Without it external graphics draw as
	// their fallback mark.
	Icons *IconCache
}

type styleKey struct {
	symbolizer any
	signature  string
}

type resolver struct {
	fts   *FeatureTypeStyle
	opts  ResolverOptions
	refs  []string
	cache map[styleKey]*maprt.Style

	mu      sync.Mutex
	waiting map[string]bool
}

// BuildStyleResolver turns a rule set into a style function. Rules are
// selected by scale and filter; an ElseFilter rule applies when no filtered
// rule matched. Style instances are reused for equal inputs so callers can
// keep per-instance state.
func BuildStyleResolver(fts *FeatureTypeStyle, opts ResolverOptions) maprt.StyleFunc {
	r := &resolver{
		fts:     fts,
		opts:    opts,
		refs:    PropertyRefs(fts),
		cache:   map[styleKey]*maprt.Style{},
		waiting: map[string]bool{},
	}
	return r.resolve
}

// onLoad returns the load callback for href, or nil when this resolver
// already waits on it.
func (r *resolver) onLoad(href string) func() {
	if r.opts.OnImageLoaded == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiting[href] {
		return nil
	}
	r.waiting[href] = true
	return func() {
		r.loaded(href)
		r.opts.OnImageLoaded()
	}
}

func (r *resolver) loaded(href string) {
	r.mu.Lock()
	delete(r.waiting, href)
	r.mu.Unlock()
}

// SelectRules returns the rules that apply to a feature at a scale.
func SelectRules(rules []*Rule, props map[string]any, scaleDenominator float64) []*Rule {
	var matched, fallback []*Rule
	for _, rule := range rules {
		if !rule.InScale(scaleDenominator) {
			continue
		}
		if rule.ElseFilter != nil {
			fallback = append(fallback, rule)
			continue
		}
		if rule.Filter.Match(props) {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return fallback
	}
	return matched
}

func (r *resolver) resolve(f *geojson.Feature, resolution float64) []*maprt.Style {
	if r.fts == nil || f == nil || f.Geometry == nil {
		return nil
	}
	if r.opts.ResolutionProvider != nil {
		resolution = r.opts.ResolutionProvider()
	}
	props := map[string]any(f.Properties)
	kind := KindOf(f.Geometry)
	var out []*maprt.Style
	for _, rule := range SelectRules(r.fts.Rules, props, ScaleDenominator(resolution)) {
		switch kind {
		case KindPoint:
			for _, ps := range rule.PointSymbolizers {
				out = r.appendStyle(out, ps, props, func() *maprt.Style { return r.pointStyle(ps, props) })
			}
		case KindLine:
			for _, ls := range rule.LineSymbolizers {
				out = r.appendStyle(out, ls, props, func() *maprt.Style { return r.lineStyle(ls.Stroke, props) })
			}
		case KindPolygon:
			for _, ps := range rule.PolygonSymbolizers {
				out = r.appendStyle(out, ps, props, func() *maprt.Style { return r.polygonStyle(ps, props) })
			}
			for _, ls := range rule.LineSymbolizers {
				out = r.appendStyle(out, ls, props, func() *maprt.Style { return r.lineStyle(ls.Stroke, props) })
			}
		}
	}
	for i, s := range out {
		s.ZIndex = i
	}
	return out
}

// appendStyle builds (or reuses) the style of one symbolizer. Styles waiting
// for an external graphic are not cached, so the loaded image is picked up on
// the next call.
func (r *resolver) appendStyle(out []*maprt.Style, sym any, props map[string]any, build func() *maprt.Style) []*maprt.Style {
	key := styleKey{symbolizer: sym, signature: r.signature(props)}
	if s, ok := r.cache[key]; ok {
		return append(out, s)
	}
	s := build()
	if s == nil {
		return out
	}
	if !pending(s) {
		r.cache[key] = s
	}
	return append(out, s)
}

func pending(s *maprt.Style) bool {
	icon, ok := s.Image.(*maprt.Icon)
	return ok && !icon.Loaded() && icon.Src != ""
}

func (r *resolver) signature(props map[string]any) string {
	if len(r.refs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range r.refs {
		b.WriteString(name)
		b.WriteByte('=')
		if v, ok := props[name]; ok && v != nil {
			b.WriteString(fmt.Sprint(v))
		}
		b.WriteByte(0)
	}
	return b.String()
}

func (r *resolver) pointStyle(ps *PointSymbolizer, props map[string]any) *maprt.Style {
	if ps.Graphic == nil {
		return nil
	}
	img := r.graphicImage(ps.Graphic, props)
	if img == nil {
		return nil
	}
	return &maprt.Style{Image: img}
}

func (r *resolver) lineStyle(s *Stroke, props map[string]any) *maprt.Style {
	if s == nil {
		return nil
	}
	if s.GraphicStroke != nil && s.GraphicStroke.Graphic != nil {
		img := r.graphicImage(s.GraphicStroke.Graphic, props)
		if img == nil {
			return nil
		}
		return &maprt.Style{Renderer: graphicStrokeRenderer(img)}
	}
	return &maprt.Style{Stroke: toStroke(s, props)}
}

func (r *resolver) polygonStyle(ps *PolygonSymbolizer, props map[string]any) *maprt.Style {
	style := &maprt.Style{}
	if ps.Fill != nil {
		if ps.Fill.GraphicFill != nil && ps.Fill.GraphicFill.Graphic != nil {
			if img := r.graphicImage(ps.Fill.GraphicFill.Graphic, props); img != nil {
				var background color.Color
				if c, ok := paramEval(&ps.Fill.Params, "fill", props); ok {
					if col, err := ParseColor(c, paramFloat(&ps.Fill.Params, "fill-opacity", props, 1)); err == nil {
						background = col
					}
				}
				var outline *maprt.Stroke
				if ps.Stroke != nil {
					outline = toStroke(ps.Stroke, props)
				}
				style.Renderer = graphicFillRenderer(img, background, outline)
				return style
			}
		} else if c, ok := fillColor(ps.Fill, props); ok {
			style.Fill = &maprt.Fill{Color: c}
		}
	}
	if ps.Stroke != nil {
		style.Stroke = toStroke(ps.Stroke, props)
	}
	if style.Fill == nil && style.Stroke == nil {
		return nil
	}
	return style
}

func toStroke(s *Stroke, props map[string]any) *maprt.Stroke {
	c, ok := strokeColor(s, props)
	if !ok {
		return nil
	}
	out := &maprt.Stroke{
		Color:      c,
		Width:      paramFloat(&s.Params, "stroke-width", props, 1),
		DashOffset: paramFloat(&s.Params, "stroke-dashoffset", props, 0),
		LineCap:    "butt",
		LineJoin:   "miter",
	}
	if v, ok := paramEval(&s.Params, "stroke-dasharray", props); ok {
		out.Dash = dashArray(v)
	}
	if v, ok := paramEval(&s.Params, "stroke-linecap", props); ok {
		out.LineCap = v
	}
	if v, ok := paramEval(&s.Params, "stroke-linejoin", props); ok {
		out.LineJoin = v
	}
	return out
}

// graphicImage builds the point image of a Graphic: the first loadable
// external graphic, else the first mark, else a default square.
func (r *resolver) graphicImage(g *Graphic, props map[string]any) maprt.Image {
	size := g.Size.Float(props, 0)
	rotation := g.Rotation.Float(props, 0) * math.Pi / 180
	opacity := g.Opacity.Float(props, 1)
	var disp [2]float64
	if g.Displacement != nil {
		disp = [2]float64{g.Displacement.X.Float(props, 0), g.Displacement.Y.Float(props, 0)}
	}
	anchor := [2]float64{0.5, 0.5}
	if g.AnchorPoint != nil {
		anchor = [2]float64{g.AnchorPoint.X.Float(props, 0.5), 1 - g.AnchorPoint.Y.Float(props, 0.5)}
	}

	for _, eg := range g.ExternalGraphics {
		href := strings.TrimSpace(eg.OnlineResource.Href)
		if href == "" {
			continue
		}
		icon := &maprt.Icon{
			Src:          href,
			AnchorFrac:   anchor,
			Displacement: disp,
			Rot:          rotation,
			Opacity:      opacity,
		}
		if r.opts.Icons == nil {
			return fallbackMark(size, rotation, disp)
		}
		onLoad := r.onLoad(href)
		img, ready, err := r.opts.Icons.Get(href, onLoad)
		if ready && onLoad != nil {
			r.loaded(href)
		}
		if !ready {
			// Drawn as an empty icon until the load callback fires.
			icon.ImgSize = [2]float64{size, size}
			return icon
		}
		if err != nil || img == nil {
			return fallbackMark(size, rotation, disp)
		}
		b := img.Bounds()
		icon.Img = img
		icon.ImgSize = [2]float64{float64(b.Dx()), float64(b.Dy())}
		if size > 0 && b.Dy() > 0 {
			icon.IconScale = size / float64(b.Dy())
		}
		return icon
	}

	if size == 0 {
		size = 6
	}
	m := &maprt.Mark{WellKnownName: "square", Radius: size / 2, Rot: rotation, Displacement: disp}
	if len(g.Marks) > 0 {
		mark := g.Marks[0]
		if wkn := strings.ToLower(strings.TrimSpace(mark.WellKnownName)); wkn != "" {
			m.WellKnownName = wkn
		}
		if mark.Fill != nil {
			if c, ok := fillColor(mark.Fill, props); ok {
				m.Fill = &maprt.Fill{Color: scaleAlpha(c, opacity)}
			}
		}
		if mark.Stroke != nil {
			m.Stroke = toStroke(mark.Stroke, props)
		}
		return m
	}
	m.Fill = &maprt.Fill{Color: scaleAlpha(color.NRGBA{0x80, 0x80, 0x80, 0xff}, opacity)}
	m.Stroke = &maprt.Stroke{Color: color.NRGBA{A: 0xff}, Width: 1}
	return m
}

func fallbackMark(size, rotation float64, disp [2]float64) *maprt.Mark {
	if size == 0 {
		size = 8
	}
	return &maprt.Mark{
		WellKnownName: "square",
		Radius:        size / 2,
		Fill:          &maprt.Fill{Color: color.NRGBA{0xc0, 0xc0, 0xc0, 0xff}},
		Stroke:        &maprt.Stroke{Color: color.NRGBA{0x60, 0x60, 0x60, 0xff}, Width: 1},
		Rot:           rotation,
		Displacement:  disp,
	}
}

func scaleAlpha(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(float64(c.A)*min(max(opacity, 0), 1) + 0.5)
	return c
}

// graphicFillRenderer tiles img over the polygon, one copy per cell whose
// centre falls inside.
func graphicFillRenderer(img maprt.Image, background color.Color, outline *maprt.Stroke) maprt.Renderer {
	return func(geom orb.Geometry, state maprt.RenderState) {
		var polys []orb.Polygon
		switch g := geom.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{g}
		case orb.MultiPolygon:
			polys = g
		default:
			return
		}
		size := img.Size()
		step := max(size[0], size[1]) * img.Scale()
		if step < 1 {
			step = 1
		}
		for _, p := range polys {
			if background != nil {
				state.Context.FillPolygon(p, background)
			}
			b := p.Bound()
			for y := b.Min[1] + step/2; y < b.Max[1]; y += step {
				for x := b.Min[0] + step/2; x < b.Max[0]; x += step {
					pt := orb.Point{x, y}
					if planar.PolygonContains(p, pt) {
						state.Context.DrawImage(img, pt)
					}
				}
			}
			if outline != nil {
				for _, ring := range p {
					state.Context.StrokeLine(orb.LineString(ring), outline)
				}
			}
		}
	}
}

// graphicStrokeRenderer repeats img along each line at intervals of its
// size.
func graphicStrokeRenderer(img maprt.Image) maprt.Renderer {
	return func(geom orb.Geometry, state maprt.RenderState) {
		var lines []orb.LineString
		switch g := geom.(type) {
		case orb.LineString:
			lines = []orb.LineString{g}
		case orb.MultiLineString:
			lines = g
		case orb.Polygon:
			for _, ring := range g {
				lines = append(lines, orb.LineString(ring))
			}
		default:
			return
		}
		size := img.Size()
		step := max(size[0], size[1]) * img.Scale()
		if step < 1 {
			step = 1
		}
		for _, ls := range lines {
			for _, pt := range pointsAlong(ls, step) {
				state.Context.DrawImage(img, pt)
			}
		}
	}
}

// pointsAlong returns points every step along ls, starting half a step in.
func pointsAlong(ls orb.LineString, step float64) []orb.Point {
	var out []orb.Point
	next := step / 2
	travelled := 0.0
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		seg := planar.Distance(a, b)
		for seg > 0 && next <= travelled+seg {
			t := (next - travelled) / seg
			out = append(out, orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])})
			next += step
		}
		travelled += seg
	}
	return out
}
