package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/paulmach/orb"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/joeblew999/plat-sld/internal/maprt"
)

// surface is an immediate-mode maprt.DrawContext over an RGBA raster.
// Callers use CSS pixel coordinates; the surface applies its pixel ratio.
type surface struct {
	img   *image.RGBA
	ratio float64
	cssW  float64
	cssH  float64
}

func newSurface(cssW, cssH, ratio float64) *surface {
	return &surface{
		img:   image.NewRGBA(image.Rect(0, 0, pixels(cssW*ratio), pixels(cssH*ratio))),
		ratio: ratio,
		cssW:  cssW,
		cssH:  cssH,
	}
}

func (s *surface) Bounds() orb.Bound {
	return orb.Bound{Max: orb.Point{s.cssW, s.cssH}}
}

func (s *surface) rasterizer() *vector.Rasterizer {
	b := s.img.Bounds()
	return vector.NewRasterizer(b.Dx(), b.Dy())
}

func (s *surface) paint(z *vector.Rasterizer, c color.Color) {
	z.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{})
}

// path adds a closed ring to z.
func (s *surface) path(z *vector.Rasterizer, ring []orb.Point) {
	if len(ring) < 3 {
		return
	}
	z.MoveTo(float32(ring[0][0]*s.ratio), float32(ring[0][1]*s.ratio))
	for _, p := range ring[1:] {
		z.LineTo(float32(p[0]*s.ratio), float32(p[1]*s.ratio))
	}
	z.ClosePath()
}

func (s *surface) FillPolygon(p orb.Polygon, c color.Color) {
	if c == nil || len(p) == 0 {
		return
	}
	z := s.rasterizer()
	for _, ring := range p {
		s.path(z, ring)
	}
	s.paint(z, c)
}

func (s *surface) StrokeLine(ls orb.LineString, st *maprt.Stroke) {
	if st == nil || st.Color == nil || st.Width <= 0 || len(ls) < 2 {
		return
	}
	z := s.rasterizer()
	for _, part := range dashes(ls, st.Dash, st.DashOffset) {
		for _, quad := range strokeOutline(part, st.Width, st.LineCap, st.LineJoin) {
			s.path(z, quad)
		}
	}
	s.paint(z, st.Color)
}

func (s *surface) DrawImage(img maprt.Image, at orb.Point) {
	scale := img.Scale()
	anchor := img.Anchor()
	topLeft := orb.Point{at[0] - anchor[0]*scale, at[1] - anchor[1]*scale}
	switch img := img.(type) {
	case *maprt.Mark:
		size := img.Size()
		centre := orb.Point{topLeft[0] + size[0]/2*scale, topLeft[1] + size[1]/2*scale}
		shape := markShape(img.WellKnownName, centre, img.Radius*scale, img.Rot)
		if img.Fill != nil && !openShape(img.WellKnownName) {
			s.FillPolygon(orb.Polygon{shape}, img.Fill.Color)
		}
		if img.Stroke != nil {
			st := *img.Stroke
			st.Width *= scale
			s.StrokeLine(orb.LineString(shape), &st)
		}
	case *maprt.Icon:
		if !img.Loaded() {
			return
		}
		size := img.Size()
		r := image.Rect(
			int(math.Round(topLeft[0]*s.ratio)),
			int(math.Round(topLeft[1]*s.ratio)),
			int(math.Round((topLeft[0]+size[0]*scale)*s.ratio)),
			int(math.Round((topLeft[1]+size[1]*scale)*s.ratio)),
		)
		var opts *xdraw.Options
		if img.Opacity > 0 && img.Opacity < 1 {
			opts = &xdraw.Options{DstMask: image.NewUniform(color.Alpha{A: uint8(img.Opacity*255 + 0.5)})}
		}
		xdraw.ApproxBiLinear.Scale(s.img, r, img.Img, img.Img.Bounds(), draw.Over, opts)
	}
}

// openShape marks are stroked only.
func openShape(wkn string) bool {
	switch strings.ToLower(wkn) {
	case "cross", "x", "shape://vertline", "shape://horline", "shape://slash", "shape://backslash":
		return true
	}
	return false
}

// markShape returns the outline of a well-known mark as a closed ring.
func markShape(wkn string, c orb.Point, r, rot float64) []orb.Point {
	var pts []orb.Point
	switch strings.ToLower(wkn) {
	case "circle":
		pts = regular(24, r, 0)
	case "triangle":
		pts = regular(3, r, -math.Pi/2)
	case "star":
		for i := 0; i < 10; i++ {
			rr := r
			if i%2 == 1 {
				rr = r * 0.4
			}
			a := -math.Pi/2 + float64(i)*math.Pi/5
			pts = append(pts, orb.Point{rr * math.Cos(a), rr * math.Sin(a)})
		}
	case "cross", "shape://vertline", "shape://horline":
		pts = []orb.Point{{0, -r}, {0, r}, {0, 0}, {-r, 0}, {r, 0}, {0, 0}}
	case "x", "shape://slash", "shape://backslash":
		d := r / math.Sqrt2
		pts = []orb.Point{{-d, -d}, {d, d}, {0, 0}, {-d, d}, {d, -d}, {0, 0}}
	default:
		pts = []orb.Point{{-r, -r}, {r, -r}, {r, r}, {-r, r}}
	}
	sin, cos := math.Sincos(rot)
	out := make([]orb.Point, 0, len(pts)+1)
	for _, p := range pts {
		out = append(out, orb.Point{c[0] + p[0]*cos - p[1]*sin, c[1] + p[0]*sin + p[1]*cos})
	}
	return append(out, out[0])
}

func regular(n int, r, start float64) []orb.Point {
	pts := make([]orb.Point, n)
	for i := range pts {
		a := start + 2*math.Pi*float64(i)/float64(n)
		pts[i] = orb.Point{r * math.Cos(a), r * math.Sin(a)}
	}
	return pts
}
