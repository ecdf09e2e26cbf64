package sld

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseColor reads #rrggbb, #rgb or #rrggbbaa. opacity in [0,1] scales the
// alpha.
func ParseColor(s string, opacity float64) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("sld: bad colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("sld: bad colour %q: %w", s, err)
	}
	a := uint64(0xff)
	if len(s) == 8 {
		a = v & 0xff
		v >>= 8
	}
	opacity = min(max(opacity, 0), 1)
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: uint8(float64(a)*opacity + 0.5),
	}, nil
}

// fillColor resolves a Fill's solid colour. SLD defaults to grey.
func fillColor(f *Fill, props map[string]any) (color.NRGBA, bool) {
	if f == nil {
		return color.NRGBA{}, false
	}
	c, ok := paramEval(&f.Params, "fill", props)
	if !ok {
		if f.GraphicFill != nil {
			return color.NRGBA{}, false
		}
		c = "#808080"
	}
	col, err := ParseColor(c, paramFloat(&f.Params, "fill-opacity", props, 1))
	if err != nil {
		return color.NRGBA{}, false
	}
	return col, true
}

// strokeColor resolves a Stroke's colour. SLD defaults to black.
func strokeColor(s *Stroke, props map[string]any) (color.NRGBA, bool) {
	if s == nil {
		return color.NRGBA{}, false
	}
	c, ok := paramEval(&s.Params, "stroke", props)
	if !ok {
		c = "#000000"
	}
	col, err := ParseColor(c, paramFloat(&s.Params, "stroke-opacity", props, 1))
	if err != nil {
		return color.NRGBA{}, false
	}
	return col, true
}

func paramEval(p *Params, name string, props map[string]any) (string, bool) {
	for _, list := range [][]*Param{p.SVG, p.CSS} {
		for _, param := range list {
			if param.Name == name {
				v := param.Eval(props)
				return v, v != ""
			}
		}
	}
	return "", false
}

func paramFloat(p *Params, name string, props map[string]any, def float64) float64 {
	v, ok := paramEval(p, name, props)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

func dashArray(s string) []float64 {
	var out []float64
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' }) {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}
