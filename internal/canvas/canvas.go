// Package canvas draws symbol previews: one symbol's styles applied to a
// synthetic point, line or square on a small raster.
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	xdraw "golang.org/x/image/draw"

	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
)

// Sizing is a symbol size in CSS pixels. The canvas is the symbol plus a
// margin on every side.
type Sizing struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Margin float64 `json:"margin" yaml:"margin"`
}

var (
	// SelectorSizing is the default for layer selector symbols.
	SelectorSizing = Sizing{Width: 20, Height: 18, Margin: 2}
	// LegendSizing is the default for legend symbols.
	LegendSizing = Sizing{Width: 30, Height: 18, Margin: 2}
)

// CSSWidth is the on-screen canvas width including margins.
func (s Sizing) CSSWidth() float64 { return s.Width + 2*s.Margin }

// CSSHeight is the on-screen canvas height including margins.
func (s Sizing) CSSHeight() float64 { return s.Height + 2*s.Margin }

// Canvas is a rendered symbol.
type Canvas struct {
	Sizing     Sizing
	PixelRatio float64
	// Blank is set when nothing could be drawn (unsupported geometry).
	Blank bool
	// Scaled is set when the symbol was drawn oversized and shrunk to fit.
	Scaled bool
	Img    *image.RGBA
}

// CSSWidth is the on-screen width of the canvas element.
func (c *Canvas) CSSWidth() float64 { return c.Sizing.CSSWidth() }

// CSSHeight is the on-screen height of the canvas element.
func (c *Canvas) CSSHeight() float64 { return c.Sizing.CSSHeight() }

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.Img)
}

// PNG returns the canvas as PNG bytes.
func (c *Canvas) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnsupportedGeometryError is returned, with a blank canvas, for example
// features that are not points, lines or polygons.
type UnsupportedGeometryError struct {
	Type string
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("unsupported geometry type: %s", e.Type)
}

// Render draws the styles fn resolves for feature at realResolution.
func Render(sizing Sizing, fn maprt.StyleFunc, feature *geojson.Feature, realResolution, pixelRatio float64) (*Canvas, error) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	cssW, cssH := sizing.CSSWidth(), sizing.CSSHeight()
	out := &Canvas{Sizing: sizing, PixelRatio: pixelRatio}

	kind := sld.KindUnknown
	if feature != nil && feature.Geometry != nil {
		kind = sld.KindOf(feature.Geometry)
	}
	if kind == sld.KindUnknown {
		out.Blank = true
		out.Img = image.NewRGBA(image.Rect(0, 0, pixels(cssW*pixelRatio), pixels(cssH*pixelRatio)))
		typ := "null"
		if feature != nil && feature.Geometry != nil {
			typ = feature.Geometry.GeoJSONType()
		}
		return out, &UnsupportedGeometryError{Type: typ}
	}

	styles := fn(feature, realResolution)

	// Point images are centred on the extent of their anchors, and drawn
	// oversized when that extent would not fit.
	var offX, offY float64
	tempScaling := 1.0
	if kind == sld.KindPoint {
		var extent orb.Bound
		found := false
		scale := 1.0
		for _, s := range styles {
			if s.Image == nil {
				continue
			}
			anchor, size := s.Image.Anchor(), s.Image.Size()
			dx, dy := anchor[0]-size[0], anchor[1]-size[1]
			b := orb.Bound{Min: orb.Point{dx, dy}, Max: orb.Point{dx + size[0], dy + size[1]}}
			if !found {
				extent, found = b, true
			} else {
				extent = extent.Union(b)
			}
			// Assumes one scale for every image of the symbol.
			scale = s.Image.Scale()
		}
		if found {
			offX = (extent.Max[0] + extent.Min[0]) / 2 * scale
			offY = (extent.Max[1] + extent.Min[1]) / 2 * scale
			tempScaling = max(1.0,
				(extent.Max[0]-extent.Min[0])*scale/sizing.Width,
				(extent.Max[1]-extent.Min[1])*scale/sizing.Height)
		}
	}

	surf := newSurface(cssW*tempScaling, cssH*tempScaling, pixelRatio)
	cx, cy := cssW*tempScaling/2, cssH*tempScaling/2
	sx, sy := sizing.Width/2, sizing.Height/2

	// Half-pixel coordinates keep 1px strokes crisp.
	xmin := math.Floor(cx-sx) + 0.5
	xmax := math.Floor(cx+sx+0.5) - 0.5
	ymin := math.Floor(cy-sy) + 0.5
	ymid := math.Floor(cy) + 0.5
	ymax := math.Floor(cy+sy+0.5) - 0.5
	line := orb.LineString{{xmin, ymid}, {xmax, ymid}}
	square := orb.Polygon{{{xmin, ymin}, {xmax, ymin}, {xmax, ymax}, {xmin, ymax}, {xmin, ymin}}}

	for _, s := range styles {
		switch kind {
		case sld.KindPoint:
			if s.Image != nil {
				surf.DrawImage(s.Image, orb.Point{cx + offX, cy + offY})
			}
		case sld.KindLine:
			if s.Renderer != nil {
				s.Renderer(line, renderState(surf, line, feature, realResolution))
			} else if s.Stroke != nil {
				surf.StrokeLine(line, s.Stroke)
			}
		case sld.KindPolygon:
			if s.Renderer != nil {
				s.Renderer(square, renderState(surf, square, feature, realResolution))
				continue
			}
			if s.Fill != nil {
				surf.FillPolygon(square, s.Fill.Color)
			}
			if s.Stroke != nil {
				surf.StrokeLine(orb.LineString(square[0]), s.Stroke)
			}
		}
	}

	out.Img = surf.img
	if tempScaling != 1 {
		out.Scaled = true
		out.Img = image.NewRGBA(image.Rect(0, 0, pixels(cssW*pixelRatio), pixels(cssH*pixelRatio)))
		xdraw.CatmullRom.Scale(out.Img, out.Img.Bounds(), surf.img, surf.img.Bounds(), xdraw.Src, nil)
	}
	return out, nil
}

// renderState is handed to custom renderers. The surface already scales by
// the device pixel ratio, so renderers see a ratio of 1.
func renderState(surf *surface, geom orb.Geometry, feature *geojson.Feature, realResolution float64) maprt.RenderState {
	return maprt.RenderState{
		Context:    surf,
		PixelRatio: 1,
		Resolution: realResolution,
		Geometry:   geom,
		Feature:    feature,
	}
}

func pixels(v float64) int {
	return max(1, int(math.Ceil(v-1e-9)))
}
