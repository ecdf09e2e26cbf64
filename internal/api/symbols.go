package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sld/internal/service"
)

type SymbolInput struct {
	ID       int    `path:"id" doc:"Symbol ID" example:"4"`
	Consumer string `path:"consumer" enum:"selector,legend" doc:"Which preview to draw"`
	Rev      int    `query:"r" doc:"Redraw revision, for cache busting"`
}

type SymbolOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// RegisterSymbols registers the symbol image route.
func (h *APIHandler) RegisterSymbols(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-symbol",
		Method:      http.MethodGet,
		Path:        service.SymbolPath + "/{id}/{consumer}",
		Summary:     "Get symbol image",
		Description: "PNG preview of one symbol as drawn for the layer selector or the legend.",
		Tags:        []string{"symbols"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Symbol image",
				Content:     map[string]*huma.MediaType{"image/png": {}},
			},
		},
	}, h.GetSymbol)
}

func (h *APIHandler) GetSymbol(ctx context.Context, input *SymbolInput) (*SymbolOutput, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error404NotFound("map not loaded")
	}
	data, err := h.svc.Map.SymbolPNG(ctx, input.ID, input.Consumer)
	if errors.Is(err, service.ErrNoSymbol) {
		return nil, huma.Error404NotFound("symbol not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to draw symbol", err)
	}
	cache := "no-cache"
	if input.Rev != 0 {
		cache = "public, max-age=31536000, immutable"
	}
	return &SymbolOutput{ContentType: "image/png", CacheControl: cache, Body: data}, nil
}
