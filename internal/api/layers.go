package api

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sld/internal/humastar"
	"github.com/joeblew999/plat-sld/internal/service"
)

// LayerBody is a layer tree node with its state-dependent actions.
type LayerBody struct {
	service.LayerNode
}

// Actions links the visibility switch and, for multi-symbol layers, the
// symbol list fold.
func (b LayerBody) Actions() []humastar.Action {
	rel, verb := "hide", "Hide"
	if !b.Visible {
		rel, verb = "show", "Show"
	}
	actions := []humastar.Action{{
		Rel:    rel,
		Href:   fmt.Sprintf("/api/v1/layers/%d/visible", b.ID),
		Method: "PUT",
		Title:  verb + " " + b.Label,
	}}
	if b.Symbology != nil && b.Symbology.Shape == "multiSymbol" {
		actions = append(actions, humastar.Action{
			Rel:    "toggle-symbology",
			Href:   fmt.Sprintf("/api/v1/layers/%d/symbology", b.ID),
			Method: "PUT",
			Title:  "Fold " + b.Label + " symbols",
		})
	}
	return actions
}

type LayerOutput struct {
	Body LayerBody
}

type LayersOutput struct {
	Body []service.LayerNode
}

type VisibleInput struct {
	IDInput
	Body struct {
		Visible bool `json:"visible" doc:"Switch the layer or group on or off"`
	}
}

type SymbologyBody struct {
	Collapsed bool `json:"collapsed" doc:"Whether the symbol list is now folded"`
}

// RegisterLayers registers layer tree routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/visible", h.PutVisible, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/symbology", h.ToggleSymbology, huma.OperationTags("layers"))
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return &LayersOutput{Body: []service.LayerNode{}}, nil
	}
	nodes, err := h.svc.Map.Layers(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	if nodes == nil {
		nodes = []service.LayerNode{}
	}
	return &LayersOutput{Body: nodes}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	node, err := h.layer(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LayerOutput{Body: LayerBody{node}}, nil
}

func (h *APIHandler) PutVisible(ctx context.Context, input *VisibleInput) (*LayerOutput, error) {
	if _, err := h.layer(ctx, input.ID); err != nil {
		return nil, err
	}
	node, err := h.svc.Map.SetVisible(ctx, input.ID, input.Body.Visible)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &LayerOutput{Body: LayerBody{node}}, nil
}

func (h *APIHandler) ToggleSymbology(ctx context.Context, input *IDInput) (*struct{ Body SymbologyBody }, error) {
	if _, err := h.layer(ctx, input.ID); err != nil {
		return nil, err
	}
	collapsed, err := h.svc.Map.ToggleSymbology(ctx, input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body SymbologyBody }{Body: SymbologyBody{Collapsed: collapsed}}, nil
}

func (h *APIHandler) layer(ctx context.Context, id int) (service.LayerNode, error) {
	if h.svc == nil || h.svc.Map == nil {
		return service.LayerNode{}, huma.Error404NotFound("map not loaded")
	}
	node, ok, err := h.svc.Map.Layer(ctx, id)
	if err != nil {
		return service.LayerNode{}, sessionError(err)
	}
	if !ok {
		return service.LayerNode{}, huma.Error404NotFound("layer not found")
	}
	return node, nil
}
