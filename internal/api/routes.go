// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sld/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Map    *service.MapService
	Source *service.SourceService
}

// Types

type IDInput struct {
	ID int `path:"id" doc:"Layer definition node ID" example:"2"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
	huma.Get(api, "/api/v1/missing", h.GetMissing, huma.OperationTags("sources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body service.Info }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not loaded")
	}
	info, err := h.svc.Map.Info(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	return &struct{ Body service.Info }{Body: info}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list sources", err)
	}
	if sources == nil {
		sources = []service.SourceFile{}
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

// MissingBody lists the tables no source supplied.
type MissingBody struct {
	Tables []string `json:"tables" doc:"Tables of layers left without data"`
}

func (h *APIHandler) GetMissing(ctx context.Context, input *struct{}) (*struct{ Body MissingBody }, error) {
	if h.svc == nil || h.svc.Map == nil {
		return nil, huma.Error503ServiceUnavailable("map not loaded")
	}
	tables, err := h.svc.Map.Missing(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	if tables == nil {
		tables = []string{}
	}
	return &struct{ Body MissingBody }{Body: MissingBody{Tables: tables}}, nil
}

// sessionError maps a failed session call: a stopped or cancelled loop is
// reported as unavailable.
func sessionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return huma.Error503ServiceUnavailable("map session not running", err)
	}
	return huma.Error500InternalServerError("map session failed", err)
}
