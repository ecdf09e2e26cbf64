package sld

import (
	"fmt"
	"strconv"
	"strings"
)

// Helpers that patch known defects in SLD exported by QGIS "Package
// Layers". They modify the rule set in place.

// CopyMaxScale copies the max scale denominator of rule from onto rule to
// (labels lose their scale dependency on export).
func CopyMaxScale(fts *FeatureTypeStyle, from, to int) error {
	if from < 0 || to < 0 || from >= len(fts.Rules) || to >= len(fts.Rules) {
		return fmt.Errorf("copyMaxScale: rule index out of range (%d rules)", len(fts.Rules))
	}
	if m := fts.Rules[from].MaxScaleDenominator; m != nil {
		v := *m
		fts.Rules[to].MaxScaleDenominator = &v
	} else {
		fts.Rules[to].MaxScaleDenominator = nil
	}
	return nil
}

// ScaleDashArray multiplies every stroke dash array by its stroke width
// when the width exceeds 1 (predefined dash patterns are exported in units
// of the line width).
func ScaleDashArray(fts *FeatureTypeStyle) {
	scale := func(s *Stroke) {
		if s == nil {
			return
		}
		width := s.Float("stroke-width", 1)
		dash, ok := s.Get("stroke-dasharray")
		if !ok || width <= 1 {
			return
		}
		parts := strings.Fields(strings.ReplaceAll(dash, ",", " "))
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return
			}
			parts[i] = strconv.FormatFloat(f*width, 'f', -1, 64)
		}
		s.Set("stroke-dasharray", strings.Join(parts, " "))
	}
	for _, r := range fts.Rules {
		for _, ls := range r.LineSymbolizers {
			scale(ls.Stroke)
		}
		for _, ps := range r.PolygonSymbolizers {
			scale(ps.Stroke)
		}
		for _, pt := range r.PointSymbolizers {
			if pt.Graphic != nil {
				for _, m := range pt.Graphic.Marks {
					scale(m.Stroke)
				}
			}
		}
	}
}

// DropTextRules removes rules whose only symbolizers are text symbolizers
// (exported without their scale range they would apply at every zoom).
func DropTextRules(fts *FeatureTypeStyle) int {
	kept := fts.Rules[:0]
	dropped := 0
	for _, r := range fts.Rules {
		if len(r.TextSymbolizers) > 0 && r.GraphicSymbolizerCount() == 0 {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	fts.Rules = kept
	return dropped
}
