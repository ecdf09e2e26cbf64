// Package styler binds map data to SLD styling and keeps the layer
// selector and legend in step with zoom and layer visibility.
//
// A Session owns every piece of mutable state (ID counters, the scale-gated
// symbol registry, the selector lookup and the panels) and is not safe for
// concurrent use: drive it from one goroutine, normally the maprt.Loop it
// posts image-load events to.
package styler

import (
	"errors"
	"log/slog"
	"math"

	"github.com/joeblew999/plat-sld/internal/canvas"
	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
	"github.com/joeblew999/plat-sld/internal/ui"
)

// ErrTreeBuilt is returned when BuildLayerTree is called twice.
var ErrTreeBuilt = errors.New("layer tree already built")

// ErrNoTree is returned by operations that need BuildLayerTree first.
var ErrNoTree = errors.New("layer tree not built")

// Event names passed to the change notifier.
const (
	EventStyled     = "styled"
	EventVisibility = "visibility"
	EventZoom       = "zoom"
	EventSymbols    = "symbols"
	EventMissing    = "missing"
)

// Session is one map session.
type Session struct {
	logger  *slog.Logger
	loop    *maprt.Loop
	notify  func(event string)
	builder *layerdef.Builder

	nodes      []layerdef.Node
	nextSymbol SymbolID
	registry   ScaleGateRegistry
	lookup     VisibilityLookup
	symbology  map[layerdef.ID]*Symbology
	symbols    map[SymbolID]*Symbol

	selectorSizing canvas.Sizing
	legendSizing   canvas.Sizing
	pixelRatio     float64

	selector        *ui.Element
	selectorBoxes   map[layerdef.ID]*ui.Element
	selectorMarkers map[layerdef.ID]*ui.Element
	selectorLabels  map[SymbolID]*ui.Element
	selectorToggles map[layerdef.ID]*ui.Element
	selectorMap     *maprt.Map
	legend          *ui.Element
	legendRows      map[SymbolID]*ui.Element
	zoomTargets     map[*maprt.Map]*ZoomTargets
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithLoop sets the loop image-load events are posted to.
func WithLoop(l *maprt.Loop) Option {
	return func(s *Session) { s.loop = l }
}

// WithNotifier sets a callback run after every state change visible in the
// panels.
func WithNotifier(fn func(event string)) Option {
	return func(s *Session) { s.notify = fn }
}

// NewSession creates an empty session. Without WithLoop it owns a loop that
// the caller must Run or Drain for image-load events to apply.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger:          slog.Default().With("component", "styler"),
		builder:         layerdef.NewBuilder(),
		nextSymbol:      1,
		lookup:          VisibilityLookup{},
		symbology:       map[layerdef.ID]*Symbology{},
		symbols:         map[SymbolID]*Symbol{},
		selectorSizing:  canvas.SelectorSizing,
		legendSizing:    canvas.LegendSizing,
		pixelRatio:      1,
		selectorBoxes:   map[layerdef.ID]*ui.Element{},
		selectorMarkers: map[layerdef.ID]*ui.Element{},
		selectorLabels:  map[SymbolID]*ui.Element{},
		selectorToggles: map[layerdef.ID]*ui.Element{},
		legendRows:      map[SymbolID]*ui.Element{},
		zoomTargets:     map[*maprt.Map]*ZoomTargets{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loop == nil {
		s.loop = maprt.NewLoop(256)
	}
	return s
}

// Loop is the loop the session posts asynchronous work to.
func (s *Session) Loop() *maprt.Loop { return s.loop }

// Nodes is the definition tree.
func (s *Session) Nodes() []layerdef.Node { return s.nodes }

// Registry is the scale-gated symbol registry.
func (s *Session) Registry() *ScaleGateRegistry { return &s.registry }

// Lookup is the selector checkbox lookup, filled by
// MaterializeSelectorSymbols.
func (s *Session) Lookup() VisibilityLookup { return s.lookup }

// Symbology returns the extracted symbology of a leaf, or nil when the leaf
// was never styled.
func (s *Session) Symbology(id layerdef.ID) *Symbology { return s.symbology[id] }

// Symbol returns a symbol by ID.
func (s *Session) Symbol(id SymbolID) *Symbol { return s.symbols[id] }

// SymbolCount is the number of symbols extracted so far.
func (s *Session) SymbolCount() int { return len(s.symbols) }

// SelectorPanel is the layer selector element tree.
func (s *Session) SelectorPanel() *ui.Element { return s.selector }

// LegendPanel is the legend element tree, nil until BuildLegend.
func (s *Session) LegendPanel() *ui.Element { return s.legend }

func (s *Session) changed(event string) {
	if s.notify != nil {
		s.notify(event)
	}
}

// Handle pairs a selector checkbox with its map layer or group.
type Handle struct {
	Checkbox *ui.Element
	Layer    maprt.Layer
}

// VisibilityLookup maps definition node IDs to their selector handles.
type VisibilityLookup map[layerdef.ID]Handle

// ScaleGate is a symbol visible only within a scale denominator range.
type ScaleGate struct {
	Symbol SymbolID
	Min    float64
	Max    float64
}

// Hidden reports whether the symbol is out of range at scaleDenominator.
func (g ScaleGate) Hidden(scaleDenominator float64) bool {
	return scaleDenominator < g.Min || scaleDenominator > g.Max
}

// ScaleGateRegistry lists every scale-gated symbol of the session. Entries
// are never removed.
type ScaleGateRegistry struct {
	gates []ScaleGate
}

// Register adds a gate. Missing bounds are nil and widen to 0 and +Inf.
func (r *ScaleGateRegistry) Register(id SymbolID, lo, hi *float64) ScaleGate {
	g := ScaleGate{Symbol: id, Min: 0, Max: math.Inf(1)}
	if lo != nil {
		g.Min = *lo
	}
	if hi != nil {
		g.Max = *hi
	}
	r.gates = append(r.gates, g)
	return g
}

// Gates returns the registered gates in registration order.
func (r *ScaleGateRegistry) Gates() []ScaleGate { return r.gates }

// Len is the number of registered gates.
func (r *ScaleGateRegistry) Len() int { return len(r.gates) }
