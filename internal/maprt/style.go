package maprt

import (
	"image"
	"image/color"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Style is one drawing instruction for a feature. A feature may be drawn
// with several styles, in order.
type Style struct {
	Fill   *Fill
	Stroke *Stroke
	Image  Image
	ZIndex int

	// Renderer, when set, replaces the generic draw path for lines and
	// polygons (pattern fills, graphic strokes).
	Renderer Renderer
}

// Fill paints polygon interiors.
type Fill struct {
	Color color.Color
}

// Stroke outlines lines and polygons. Width is in pixels.
type Stroke struct {
	Color      color.Color
	Width      float64
	Dash       []float64
	DashOffset float64
	LineCap    string
	LineJoin   string
}

// Image is a point symbol. Anchor and Size are in unscaled image pixels.
type Image interface {
	Anchor() [2]float64
	Size() [2]float64
	Scale() float64
	Rotation() float64
}

// Icon is an external raster graphic.
type Icon struct {
	Src          string
	Img          image.Image
	ImgSize      [2]float64
	AnchorFrac   [2]float64
	Displacement [2]float64
	IconScale    float64
	Rot          float64
	Opacity      float64
}

// Anchor is the anchor position in pixels, shifted by the displacement.
func (i *Icon) Anchor() [2]float64 {
	return [2]float64{
		i.AnchorFrac[0]*i.ImgSize[0] - i.Displacement[0],
		i.AnchorFrac[1]*i.ImgSize[1] + i.Displacement[1],
	}
}

func (i *Icon) Size() [2]float64  { return i.ImgSize }
func (i *Icon) Rotation() float64 { return i.Rot }

func (i *Icon) Scale() float64 {
	if i.IconScale == 0 {
		return 1
	}
	return i.IconScale
}

// Loaded reports whether the raster is available.
func (i *Icon) Loaded() bool { return i.Img != nil }

// Mark is a well-known vector shape (circle, square, triangle, star, cross,
// x).
type Mark struct {
	WellKnownName string
	Radius        float64
	Fill          *Fill
	Stroke        *Stroke
	Rot           float64
	Displacement  [2]float64
}

// Size includes the stroke so outlines are never clipped.
func (m *Mark) Size() [2]float64 {
	w := 0.0
	if m.Stroke != nil {
		w = m.Stroke.Width
	}
	s := 2*m.Radius + w
	return [2]float64{s, s}
}

// Anchor is the centre, shifted by the displacement.
func (m *Mark) Anchor() [2]float64 {
	s := m.Size()
	return [2]float64{s[0]/2 - m.Displacement[0], s[1]/2 + m.Displacement[1]}
}

func (m *Mark) Scale() float64    { return 1 }
func (m *Mark) Rotation() float64 { return m.Rot }

// Renderer draws coordinates in pixel space directly onto a context.
type Renderer func(geom orb.Geometry, state RenderState)

// RenderState carries the drawing context for a custom Renderer.
type RenderState struct {
	Context    DrawContext
	PixelRatio float64
	Resolution float64
	Rotation   float64
	Geometry   orb.Geometry
	Feature    *geojson.Feature
}

// DrawContext is the minimal immediate-mode drawing surface renderers use.
// Coordinates are in CSS pixels; the context applies its own pixel ratio.
type DrawContext interface {
	FillPolygon(p orb.Polygon, c color.Color)
	StrokeLine(ls orb.LineString, s *Stroke)
	DrawImage(img Image, at orb.Point)
	Bounds() orb.Bound
}
