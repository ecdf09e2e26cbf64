// Package panel contains the Datastar SSE handlers behind the map page:
// the layer selector and legend panels, and the controls that drive them.
package panel

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sld/internal/humastar"
	"github.com/joeblew999/plat-sld/internal/service"
	"github.com/joeblew999/plat-sld/internal/templates"
)

// Tag marks the panel operations, which stream HTML rather than JSON.
const Tag = "panel"

// Handler serves the map page and its panels.
type Handler struct {
	humastar.Handler
	maps *service.MapService
}

// NewHandler creates a new panel handler.
func NewHandler(maps *service.MapService, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		maps:    maps,
	}
}

// RegisterPanels registers the panel streams and controls.
func (h *Handler) RegisterPanels(api huma.API) {
	huma.Get(api, "/api/v1/panel/selector", h.Selector, huma.OperationTags(Tag))
	huma.Get(api, "/api/v1/panel/legend", h.Legend, huma.OperationTags(Tag))
	huma.Get(api, "/api/v1/panel/events", h.Events, huma.OperationTags(Tag))
	huma.Put(api, "/api/v1/panel/view", h.Move, huma.OperationTags(Tag))
	huma.Put(api, "/api/v1/panel/visible", h.Visible, huma.OperationTags(Tag))
	huma.Put(api, "/api/v1/panel/symbology", h.Symbology, huma.OperationTags(Tag))
}

type pageData struct {
	Title   string
	View    service.ViewState
	Reports []service.LoadReport
}

// ServePage renders the map page; the panels fill in over SSE.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	view, err := h.maps.View(r.Context())
	if err != nil {
		http.Error(w, "map session not running", http.StatusServiceUnavailable)
		return
	}
	html, err := h.Renderer.Render("page", pageData{
		Title:   h.maps.Config().Title,
		View:    view,
		Reports: h.maps.Reports(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// Selector streams the layer selector panel.
func (h *Handler) Selector(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.patchPanel(ctx, sse, service.PanelSelector)
	}), nil
}

// Legend streams the legend panel.
func (h *Handler) Legend(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.patchPanel(ctx, sse, service.PanelLegend)
	}), nil
}

func (h *Handler) patchPanel(ctx context.Context, sse humastar.SSE, panel string) {
	html, err := h.maps.PanelHTML(ctx, panel)
	switch {
	case errors.Is(err, service.ErrNoPanel):
		html = h.RenderList("", nil, "No "+panel, "Disabled in the map configuration")
	case err != nil:
		sse.Error(err.Error())
		return
	}
	sse.Patch(html, "#"+panel)
}

func (h *Handler) patchView(ctx context.Context, sse humastar.SSE) {
	view, err := h.maps.View(ctx)
	if err != nil {
		sse.Error(err.Error())
		return
	}
	html, err := h.Renderer.Render("view", view)
	if err != nil {
		sse.Error(err.Error())
		return
	}
	sse.Replace(html, "#view")
	sse.Signals(map[string]any{"resolution": view.Resolution})
}
