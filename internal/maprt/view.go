package maprt

import "github.com/paulmach/orb"

// View holds the current resolution and centre of a map.
type View struct {
	resolution float64
	center     orb.Point
	projection Projection
}

// NewView creates a view. A nil projection means WebMercator.
func NewView(projection Projection, resolution float64, center orb.Point) *View {
	if projection == nil {
		projection = WebMercator{}
	}
	return &View{resolution: resolution, center: center, projection: projection}
}

func (v *View) Resolution() float64        { return v.resolution }
func (v *View) Center() orb.Point          { return v.center }
func (v *View) Projection() Projection     { return v.projection }
func (v *View) SetResolution(r float64)    { v.resolution = r }
func (v *View) SetCenter(center orb.Point) { v.center = center }

// RealResolution is the resolution in metres per pixel at the view centre.
func (v *View) RealResolution() float64 {
	return v.projection.PointResolution(v.resolution, v.center)
}
