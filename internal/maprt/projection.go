package maprt

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/project"
)

// Projection converts a view resolution (projection units per pixel) at a
// point into a real-world resolution in metres per pixel.
type Projection interface {
	Code() string
	PointResolution(resolution float64, at orb.Point) float64
}

// WebMercator is EPSG:3857. Its nominal metres per pixel shrink towards the
// poles, so point resolution is measured geodesically.
type WebMercator struct{}

func (WebMercator) Code() string { return "EPSG:3857" }

// PointResolution measures one pixel horizontally and vertically on the
// ground and averages the two distances.
func (WebMercator) PointResolution(resolution float64, at orb.Point) float64 {
	h := resolution / 2
	toWGS84 := project.Mercator.ToWGS84
	width := geo.Distance(toWGS84(orb.Point{at[0] - h, at[1]}), toWGS84(orb.Point{at[0] + h, at[1]}))
	height := geo.Distance(toWGS84(orb.Point{at[0], at[1] - h}), toWGS84(orb.Point{at[0], at[1] + h}))
	return (width + height) / 2
}

// Metric is any projected CRS whose units are metres with negligible scale
// distortion (e.g. EPSG:27700 British National Grid).
type Metric struct {
	code string
}

func (m Metric) Code() string {
	if m.code == "" {
		return "metric"
	}
	return m.code
}

func (Metric) PointResolution(resolution float64, _ orb.Point) float64 { return resolution }

// ProjectionByCode resolves a configured projection name.
func ProjectionByCode(code string) (Projection, error) {
	switch strings.ToUpper(code) {
	case "", "EPSG:3857", "EPSG:900913":
		return WebMercator{}, nil
	case "METRIC":
		return Metric{}, nil
	case "EPSG:27700", "EPSG:2157", "EPSG:25832", "EPSG:25833":
		return Metric{code: strings.ToUpper(code)}, nil
	default:
		return nil, fmt.Errorf("unsupported projection %q", code)
	}
}
