package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/styler"
	"github.com/joeblew999/plat-sld/internal/ui"
)

// Panel names.
const (
	PanelSelector = "selector"
	PanelLegend   = "legend"
)

// ErrNoPanel is returned for a panel that was not built.
var ErrNoPanel = errors.New("panel not built")

// ErrNoSymbol is returned for an unknown symbol or a consumer without a
// drawn preview.
var ErrNoSymbol = errors.New("symbol not found")

// PanelHTML renders the selector or legend panel.
func (s *MapService) PanelHTML(ctx context.Context, panel string) (string, error) {
	var (
		html  string
		found bool
	)
	err := s.Do(ctx, func(ss *styler.Session, _ *maprt.Map) {
		var el *ui.Element
		switch panel {
		case PanelSelector:
			el = ss.SelectorPanel()
		case PanelLegend:
			el = ss.LegendPanel()
		}
		if el == nil {
			return
		}
		found = true
		html = ui.HTML(el, ui.HTMLOptions{SymbolURL: func(data map[string]string) string {
			id, err := strconv.Atoi(data["symbol"])
			if err != nil {
				return ""
			}
			return s.symbolURL(id, data["consumer"])
		}})
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNoPanel
	}
	return html, nil
}

// SymbolPNG encodes the current preview of a symbol for a consumer.
func (s *MapService) SymbolPNG(ctx context.Context, id int, consumer string) ([]byte, error) {
	var (
		data   []byte
		encErr error
	)
	err := s.Do(ctx, func(ss *styler.Session, _ *maprt.Map) {
		c, ok := ss.SymbolCanvas(styler.SymbolID(id), consumer)
		if !ok {
			encErr = ErrNoSymbol
			return
		}
		data, encErr = c.PNG()
	})
	if err != nil {
		return nil, err
	}
	return data, encErr
}
