// Package server wires the map session, the REST API and the Datastar
// panels onto one HTTP mux.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-sld/internal/api"
	"github.com/joeblew999/plat-sld/internal/api/panel"
	"github.com/joeblew999/plat-sld/internal/db"
	"github.com/joeblew999/plat-sld/internal/humastar"
	"github.com/joeblew999/plat-sld/internal/service"
	"github.com/joeblew999/plat-sld/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	ConfigPath string // Map configuration file; empty serves the API without a map
	DataDir    string // DuckDB files; empty keeps the database in memory

	// DBExtensions are loaded into DuckDB; nil loads the spatial and
	// sqlite extensions GeoPackage sources need.
	DBExtensions []string
	Logger       *slog.Logger
}

// Server is the SLD styler HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	maps     *service.MapService
	services *api.Services
	renderer *templates.Renderer
	logger   *slog.Logger
}

// New creates a server and loads the map. Source failures end up in the
// load reports; only an unusable configuration is returned as an error.
func New(ctx context.Context, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	links := &humastar.Links{}

	humaConfig := huma.DefaultConfig("plat-sld API", "1.0.0")
	humaConfig.Info.Description = "Styles map layers from SLD documents and serves the layer selector, legend and symbol previews."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		links:    links,
		services: &api.Services{},
		renderer: renderer,
		logger:   logger,
	}

	conn, err := db.Open(db.Config{
		DataDir:    cfg.DataDir,
		DBName:     "sld",
		Extensions: cfg.DBExtensions,
	})
	if err != nil {
		logger.Warn("database not available, geopackage sources will fail", "error", err)
	} else {
		s.db = conn
	}

	if cfg.ConfigPath != "" {
		if err := s.loadMap(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.routes()
	return s, nil
}

func (s *Server) loadMap(ctx context.Context) error {
	mapCfg, err := service.LoadConfig(s.config.ConfigPath)
	if err != nil {
		return err
	}
	maps, err := service.NewMapService(mapCfg, service.MapOptions{
		DB:      s.db,
		Logger:  s.logger,
		IconDir: filepath.Dir(s.config.ConfigPath),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", s.config.ConfigPath, err)
	}
	if err := maps.Load(ctx); err != nil {
		return err
	}
	s.maps = maps
	s.services.Map = maps
	s.services.Source = service.NewSourceService(mapCfg.Sources)
	return nil
}

// Run executes map session tasks until ctx is cancelled. Handlers that
// touch the session block until Run is started.
func (s *Server) Run(ctx context.Context) {
	if s.maps != nil {
		s.maps.Run(ctx)
	}
}

// Map is the loaded map session, or nil when no configuration was given.
func (s *Server) Map() *service.MapService { return s.maps }

// OpenAPI returns the API description.
func (s *Server) OpenAPI() *huma.OpenAPI { return s.humaAPI.OpenAPI() }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Server) routes() {
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	huma.AutoRegister(s.humaAPI, api.NewDBHandler(s.db))

	if s.maps != nil {
		panels := panel.NewHandler(s.maps, s.renderer)
		huma.AutoRegister(s.humaAPI, panels)
		s.mux.HandleFunc("GET /{$}", panels.ServePage)
	} else {
		s.mux.HandleFunc("GET /{$}", s.handleRoot)
	}

	s.links.Build(s.humaAPI, panel.Tag)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	for _, link := range s.links.For(humastar.EntryPath) {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"service": "plat-sld", "status": "no map loaded"}`)
}
