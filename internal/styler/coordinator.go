package styler

import (
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-sld/internal/canvas"
	"github.com/joeblew999/plat-sld/internal/ui"
)

// Consumers of symbol canvases.
const (
	ConsumerSelector = "selector"
	ConsumerLegend   = "legend"
)

// symbolCanvas renders one symbol preview into a canvas element. A render
// failure is logged and leaves the blank canvas in place.
func (s *Session) symbolCanvas(sizing canvas.Sizing, consumer string, sym *Symbol, example *geojson.Feature, realResolution float64) *ui.Element {
	c, err := canvas.Render(sizing, sym.Resolver, example, realResolution, s.pixelRatio)
	if err != nil {
		s.logger.Error("symbol not drawn", "symbol", sym.Label, "layer", sym.leaf.Label, "error", err)
	}
	el := ui.New("canvas", "symbol-canvas")
	el.Canvas = c
	el.SetData("symbol", strconv.Itoa(int(sym.ID)))
	el.SetData("consumer", consumer)
	return el
}

// SymbolCanvas returns the current preview of a symbol for a consumer.
func (s *Session) SymbolCanvas(id SymbolID, consumer string) (*canvas.Canvas, bool) {
	sym := s.symbols[id]
	if sym == nil {
		return nil, false
	}
	var el *ui.Element
	switch consumer {
	case ConsumerSelector:
		el = sym.selectorCanvas
	case ConsumerLegend:
		el = sym.legendCanvas
	}
	if el == nil || el.Canvas == nil {
		return nil, false
	}
	return el.Canvas, true
}

// refreshSymbol redraws the previews of a symbol after one of its external
// graphics finished loading. It runs on the loop: icon loads only post it.
func (s *Session) refreshSymbol(id SymbolID) {
	sym := s.symbols[id]
	if sym == nil {
		return
	}
	sy := s.symbology[sym.leaf.ID]
	if sy == nil {
		return
	}
	sym.selectorCanvas = s.redraw(sym.selectorCanvas, s.selectorSizing, ConsumerSelector, sym, sy)
	sym.legendCanvas = s.redraw(sym.legendCanvas, s.legendSizing, ConsumerLegend, sym, sy)
	if sym.leaf.Layer != nil {
		sym.leaf.Layer.Changed()
	}
	s.logger.Debug("symbol redrawn", "symbol", sym.Label, "layer", sym.leaf.Label)
	s.changed(EventSymbols)
}

// redraw swaps old for a fresh render. Canvases never created stay nil.
func (s *Session) redraw(old *ui.Element, sizing canvas.Sizing, consumer string, sym *Symbol, sy *Symbology) *ui.Element {
	if old == nil {
		return nil
	}
	fresh := s.symbolCanvas(sizing, consumer, sym, sy.Example, sy.RealResolution)
	if old.Parent != nil {
		old.Parent.ReplaceChild(fresh, old)
	}
	return fresh
}
