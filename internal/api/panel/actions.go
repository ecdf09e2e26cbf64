package panel

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sld/internal/humastar"
	"github.com/joeblew999/plat-sld/internal/service"
)

// Move zooms to the resolution signal, keeping the centre, and answers with
// the new view readout. The events stream patches the panels the move
// changes.
func (h *Handler) Move(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	return h.Stream(func(sse humastar.SSE) {
		view, err := h.maps.View(ctx)
		if err == nil {
			_, err = h.maps.MoveTo(ctx, signals.Float("resolution"), view.Center)
		}
		if err == nil {
			h.patchView(ctx, sse)
		}
		h.result(sse, err, "View moved")
	}), nil
}

// Visible applies a selector checkbox change from the layer and visible
// signals.
func (h *Handler) Visible(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("layer") {
		return nil, huma.Error400BadRequest("layer signal is required")
	}
	return h.Stream(func(sse humastar.SSE) {
		node, err := h.maps.SetVisible(ctx, signals.Int("layer"), signals.Bool("visible"))
		h.result(sse, err, visibilityMessage(node))
	}), nil
}

// Symbology folds or unfolds the symbol list of the layer signal.
func (h *Handler) Symbology(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("layer") {
		return nil, huma.Error400BadRequest("layer signal is required")
	}
	return h.Stream(func(sse humastar.SSE) {
		collapsed, err := h.maps.ToggleSymbology(ctx, signals.Int("layer"))
		msg := "Symbols unfolded"
		if collapsed {
			msg = "Symbols folded"
		}
		h.result(sse, err, msg)
	}), nil
}

func (h *Handler) result(sse humastar.SSE, err error, msg string) {
	switch {
	case errors.Is(err, context.Canceled):
	case err != nil:
		sse.Error(err.Error())
	default:
		sse.Signals(map[string]any{"error": ""})
		sse.Success(msg)
	}
}

func visibilityMessage(node service.LayerNode) string {
	if node.Visible {
		return node.Label + " shown"
	}
	return node.Label + " hidden"
}
