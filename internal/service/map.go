package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/sld"
	"github.com/joeblew999/plat-sld/internal/source"
	"github.com/joeblew999/plat-sld/internal/styler"
)

// ErrNoDatabase is reported for GeoPackage sources when no DuckDB
// connection is configured.
var ErrNoDatabase = errors.New("geopackage sources need a database")

// MapOptions configure NewMapService.
type MapOptions struct {
	// DB reads GeoPackages. Nil disables GeoPackage sources.
	DB     *sql.DB
	Bus    *EventBus
	Logger *slog.Logger
	// IconDir resolves relative external graphic hrefs. Empty uses the
	// working directory.
	IconDir string
}

// MapService owns one map session. Load must finish before Run; after
// that every access goes through the session loop.
type MapService struct {
	cfg    MapConfig
	db     *sql.DB
	bus    *EventBus
	logger *slog.Logger

	loop    *maprt.Loop
	session *styler.Session
	view    *maprt.View
	m       *maprt.Map
	icons   *sld.IconCache
	opts    styler.Options

	// symbolRev counts symbol redraws; symbol URLs carry it so clients
	// refetch redrawn images.
	symbolRev int
	reports   []LoadReport
}

// NewMapService builds the session and its layer tree from cfg. A layer
// definition error is returned as is (a *layerdef.ConfigurationError).
func NewMapService(cfg MapConfig, opts MapOptions) (*MapService, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = NewEventBus()
	}
	proj, err := maprt.ProjectionByCode(cfg.Projection)
	if err != nil {
		return nil, err
	}
	icons, err := sld.NewIconCache(cfg.Styler.IconCacheSize, opts.IconDir)
	if err != nil {
		return nil, err
	}

	s := &MapService{
		cfg:    cfg,
		db:     opts.DB,
		bus:    bus,
		logger: logger,
		loop:   maprt.NewLoop(256),
		icons:  icons,
	}
	s.view = maprt.NewView(proj, cfg.View.Resolution, orb.Point(cfg.View.Center))
	s.m = maprt.NewMap(s.view)
	s.session = styler.NewSession(
		styler.WithLogger(logger.With("component", "styler")),
		styler.WithLoop(s.loop),
		styler.WithNotifier(func(event string) {
			if event == styler.EventSymbols {
				s.symbolRev++
			}
			bus.Publish(Event{Resource: "styler", Action: event})
		}),
	)
	s.opts = cfg.Styler.Options()
	s.opts.Icons = icons
	s.opts.TweakFeatureTypeStyle = cfg.Styler.Tweaks.FeatureTypeStyleTweak(logger)

	layers, _, err := s.session.BuildLayerTree(cfg.DataLayers)
	if err != nil {
		return nil, err
	}
	s.m.AddLayers(layers...)
	return s, nil
}

// Bus is the bus session changes are published on.
func (s *MapService) Bus() *EventBus { return s.bus }

// Config is the map configuration the service was built from.
func (s *MapService) Config() MapConfig { return s.cfg }

// Load reads every configured source and styles the layers it binds, then
// flags the layers left without data and builds the panels. Source failures
// are logged and reported, never returned; the error is for failures that
// leave the session unusable.
func (s *MapService) Load(ctx context.Context) error {
	override, err := s.overrideStyles()
	if err != nil {
		return err
	}

	for _, path := range s.cfg.Sources.GeoPackages {
		if s.db == nil {
			s.failed(path, ErrNoDatabase)
			continue
		}
		set, err := source.LoadGeoPackage(ctx, s.db, path, source.GeoPackageOptions{
			TargetCRS: s.view.Projection().Code(),
			Logger:    s.logger,
		})
		if err != nil {
			s.failed(path, err)
			continue
		}
		s.apply(set, override)
	}
	for _, dir := range s.cfg.Sources.GeoJSONDirs {
		set, err := source.LoadGeoJSONDir(dir, source.GeoJSONOptions{
			Project: source.ProjectionFor(s.view.Projection().Code()),
			Logger:  s.logger,
		})
		if err != nil {
			s.failed(dir, err)
			continue
		}
		s.apply(set, override)
	}

	s.session.ReportMissingBindings()
	if s.opts.SelectorSymbols {
		if err := s.session.MaterializeSelectorSymbols(s.m); err != nil {
			return err
		}
	}
	if s.opts.Legend {
		if err := s.session.BuildLegend(s.m, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *MapService) overrideStyles() (map[string][]byte, error) {
	override := map[string][]byte{}
	for _, dir := range s.cfg.Sources.SLDDirs {
		styles, err := source.LoadSLDDir(dir)
		if err != nil {
			return nil, err
		}
		maps.Copy(override, styles)
	}
	styles, err := source.LoadSLDFiles(s.cfg.Sources.SLDFiles...)
	if err != nil {
		return nil, err
	}
	maps.Copy(override, styles)
	return override, nil
}

func (s *MapService) apply(set *source.Set, override map[string][]byte) {
	report := s.session.ApplyStyles(s.view, set.Label, set.Tables, set.Styles, override, s.opts)
	lr := LoadReport{Source: set.Label, Summary: set.Summary()}
	warnings := report.Warnings()
	for _, err := range report {
		if slices.Contains(warnings, err) {
			lr.Warnings = append(lr.Warnings, err.Error())
		} else {
			lr.Problems = append(lr.Problems, err.Error())
		}
	}
	s.reports = append(s.reports, lr)
}

func (s *MapService) failed(label string, err error) {
	s.logger.Error("source not loaded", "source", label, "error", err)
	s.reports = append(s.reports, LoadReport{Source: label, Error: err.Error()})
}

// Run executes session tasks until ctx is cancelled.
func (s *MapService) Run(ctx context.Context) {
	s.loop.Run(ctx)
}

// Settle waits for pending icon loads and applies their redraws. It is for
// callers that never start Run. Redraws run while loads are in flight, and
// a redraw that starts another load is waited for as well.
func (s *MapService) Settle() {
	for s.loop.RunUntil(s.icons.Idle()) > 0 {
	}
}

// Do runs fn on the session loop.
func (s *MapService) Do(ctx context.Context, fn func(*styler.Session, *maprt.Map)) error {
	return s.loop.Do(ctx, func() { fn(s.session, s.m) })
}

// Reports returns the source load reports. Only valid once Load returned.
func (s *MapService) Reports() []LoadReport { return s.reports }

// Info summarizes the session.
func (s *MapService) Info(ctx context.Context) (Info, error) {
	var info Info
	err := s.Do(ctx, func(ss *styler.Session, _ *maprt.Map) {
		info = Info{
			Title:      s.cfg.Title,
			Layers:     len(layerdef.Leaves(ss.Nodes())),
			Groups:     len(layerdef.Groups(ss.Nodes())),
			Symbols:    ss.SymbolCount(),
			ScaleGated: ss.Registry().Len(),
			Sources:    s.reports,
		}
		for _, leaf := range ss.Unbound() {
			info.Missing = append(info.Missing, leaf.Table)
		}
	})
	return info, err
}

// View returns the view state.
func (s *MapService) View(ctx context.Context) (ViewState, error) {
	var v ViewState
	err := s.Do(ctx, func(_ *styler.Session, m *maprt.Map) { v = viewState(m.View()) })
	return v, err
}

// MoveTo applies one completed view change and fires move-end.
func (s *MapService) MoveTo(ctx context.Context, resolution float64, center [2]float64) (ViewState, error) {
	if resolution <= 0 {
		return ViewState{}, fmt.Errorf("resolution must be positive, got %g", resolution)
	}
	var v ViewState
	err := s.Do(ctx, func(_ *styler.Session, m *maprt.Map) {
		m.MoveTo(resolution, orb.Point(center))
		v = viewState(m.View())
	})
	if err == nil {
		s.bus.Publish(Event{Resource: "view", Action: "moveend"})
	}
	return v, err
}

func viewState(v *maprt.View) ViewState {
	realRes := v.RealResolution()
	return ViewState{
		Resolution:       v.Resolution(),
		Center:           v.Center(),
		RealResolution:   realRes,
		ScaleDenominator: sld.ScaleDenominator(realRes),
		Projection:       v.Projection().Code(),
	}
}

// Missing flags the layers still without data and returns their tables.
func (s *MapService) Missing(ctx context.Context) ([]string, error) {
	var tables []string
	err := s.Do(ctx, func(ss *styler.Session, _ *maprt.Map) {
		ss.ReportMissingBindings()
		for _, leaf := range ss.Unbound() {
			tables = append(tables, leaf.Table)
		}
	})
	return tables, err
}

// SetVisible switches a layer or group, and everything under it, on or off.
func (s *MapService) SetVisible(ctx context.Context, id int, visible bool) (LayerNode, error) {
	var (
		node    LayerNode
		callErr error
	)
	err := s.Do(ctx, func(ss *styler.Session, m *maprt.Map) {
		if callErr = ss.SetVisible(layerdef.ID(id), visible); callErr != nil {
			return
		}
		node = s.layerNode(ss, layerdef.Find(ss.Nodes(), layerdef.ID(id)), m.View().RealResolution())
	})
	if err != nil {
		return LayerNode{}, err
	}
	if callErr != nil {
		return LayerNode{}, callErr
	}
	s.bus.Publish(Event{Resource: "styler", Action: styler.EventVisibility, ID: strconv.Itoa(id)})
	return node, nil
}

// ToggleSymbology folds or unfolds the symbol list of a multi-symbol layer
// in the selector and reports whether it is now collapsed.
func (s *MapService) ToggleSymbology(ctx context.Context, id int) (bool, error) {
	var (
		collapsed bool
		callErr   error
	)
	err := s.Do(ctx, func(ss *styler.Session, _ *maprt.Map) {
		collapsed, callErr = ss.ToggleSymbology(layerdef.ID(id))
	})
	if err != nil {
		return false, err
	}
	if callErr == nil {
		s.bus.Publish(Event{Resource: "styler", Action: "symbology", ID: strconv.Itoa(id)})
	}
	return collapsed, callErr
}
