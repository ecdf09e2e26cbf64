package canvas

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// dashes splits ls into the "on" parts of a dash pattern. An empty or
// all-zero pattern returns ls unchanged.
func dashes(ls orb.LineString, pattern []float64, offset float64) []orb.LineString {
	total := 0.0
	for _, d := range pattern {
		if d < 0 {
			return []orb.LineString{ls}
		}
		total += d
	}
	if total == 0 {
		return []orb.LineString{ls}
	}
	if len(pattern)%2 == 1 {
		pattern = append(append([]float64{}, pattern...), pattern...)
	}

	// Position within the pattern at the start of the line.
	idx := 0
	remaining := pattern[0]
	for pos := math.Mod(math.Mod(offset, total)+total, total); pos > 0; {
		if pos < remaining {
			remaining -= pos
			break
		}
		pos -= remaining
		idx = (idx + 1) % len(pattern)
		remaining = pattern[idx]
	}

	var out []orb.LineString
	var cur orb.LineString
	on := idx%2 == 0
	if on {
		cur = orb.LineString{ls[0]}
	}
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		seg := planar.Distance(a, b)
		done := 0.0
		for seg-done > remaining {
			done += remaining
			t := done / seg
			p := orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
			if on {
				cur = append(cur, p)
				out = append(out, cur)
				cur = nil
			} else {
				cur = orb.LineString{p}
			}
			on = !on
			idx = (idx + 1) % len(pattern)
			remaining = pattern[idx]
		}
		remaining -= seg - done
		if on {
			cur = append(cur, b)
		}
	}
	if on && len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}

// strokeOutline returns closed rings whose union is the stroked line. Every
// ring has the same orientation so overlapping pieces never cancel under
// the rasterizer's accumulation.
func strokeOutline(ls orb.LineString, width float64, lineCap, lineJoin string) [][]orb.Point {
	h := width / 2
	var rings [][]orb.Point
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		ux, uy := dx/l, dy/l
		if lineCap == "square" {
			if i == 1 {
				a = orb.Point{a[0] - ux*h, a[1] - uy*h}
			}
			if i == len(ls)-1 {
				b = orb.Point{b[0] + ux*h, b[1] + uy*h}
			}
		}
		nx, ny := -uy*h, ux*h
		rings = append(rings, []orb.Point{
			{a[0] + nx, a[1] + ny},
			{b[0] + nx, b[1] + ny},
			{b[0] - nx, b[1] - ny},
			{a[0] - nx, a[1] - ny},
		})
	}
	if h <= 0.5 {
		return rings
	}
	for i, p := range ls {
		end := i == 0 || i == len(ls)-1
		if end && lineCap != "round" {
			continue
		}
		if !end && lineJoin == "bevel" {
			continue
		}
		rings = append(rings, disc(p, h))
	}
	return rings
}

// disc approximates a circle, wound like the segment quads.
func disc(c orb.Point, r float64) []orb.Point {
	const n = 12
	pts := make([]orb.Point, n)
	for i := range pts {
		a := -2 * math.Pi * float64(i) / n
		pts[i] = orb.Point{c[0] + r*math.Cos(a), c[1] + r*math.Sin(a)}
	}
	return pts
}
