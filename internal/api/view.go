package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sld/internal/service"
)

type ViewOutput struct {
	Body service.ViewState
}

// MoveInput is one completed view change. A missing center keeps the
// current one.
type MoveInput struct {
	Body struct {
		Resolution float64     `json:"resolution" exclusiveMinimum:"0" doc:"Projection units per pixel" example:"2.5"`
		Center     *[2]float64 `json:"center,omitempty" doc:"View centre in projection units"`
	}
}

// RegisterView registers view routes.
func (h *APIHandler) RegisterView(api huma.API) {
	huma.Get(api, "/api/v1/view", h.GetView, huma.OperationTags("view"))
	huma.Put(api, "/api/v1/view", h.PutView, huma.OperationTags("view"))
}

func (h *APIHandler) GetView(ctx context.Context, input *struct{}) (*ViewOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not loaded")
	}
	v, err := h.svc.Map.View(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	return &ViewOutput{Body: v}, nil
}

func (h *APIHandler) PutView(ctx context.Context, input *MoveInput) (*ViewOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not loaded")
	}
	var center [2]float64
	if input.Body.Center != nil {
		center = *input.Body.Center
	} else {
		v, err := h.svc.Map.View(ctx)
		if err != nil {
			return nil, sessionError(err)
		}
		center = v.Center
	}
	v, err := h.svc.Map.MoveTo(ctx, input.Body.Resolution, center)
	if err != nil {
		return nil, sessionError(err)
	}
	return &ViewOutput{Body: v}, nil
}
