package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sld/internal/humastar"
	"github.com/joeblew999/plat-sld/internal/service"
)

// Events re-patches the panels on every session change until the client
// goes away.
func (h *Handler) Events(_ context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := h.maps.Bus().Subscribe()
			defer h.maps.Bus().Unsubscribe(ch)

			reqCtx := humaCtx.Context()
			for {
				select {
				case <-reqCtx.Done():
					return
				case ev := <-ch:
					if ev.Resource == "view" {
						h.patchView(reqCtx, sse)
					}
					h.patchPanel(reqCtx, sse, service.PanelSelector)
					h.patchPanel(reqCtx, sse, service.PanelLegend)
					sse.DispatchCustomEvent("map-changed", map[string]any{
						"resource": ev.Resource,
						"action":   ev.Action,
						"id":       ev.ID,
					})
				}
			}
		},
	}, nil
}
