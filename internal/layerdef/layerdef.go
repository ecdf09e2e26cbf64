// Package layerdef holds the user-authored layer/group definition tree.
//
// Raw descriptors (decoded from YAML or JSON map configs) are normalized by a
// Builder into a tree of *Group and *Leaf nodes with every inferred default
// filled in and a session-unique ID assigned in pre-order.
package layerdef

import (
	"encoding/json"
	"fmt"

	"github.com/joeblew999/plat-sld/internal/maprt"
)

// ID identifies a definition node. IDs are assigned by a Builder and never
// reused within a session.
type ID int

// Fold is the initial fold state of a group in the layer selector.
type Fold string

const (
	FoldOpen  Fold = "open"
	FoldClose Fold = "close"
)

// Raw is one user-supplied node. A node is a group when Group and Label are
// both present, otherwise it must be a leaf with a Table.
type Raw struct {
	Group             []Raw          `json:"group,omitempty" yaml:"group,omitempty"`
	Label             *string        `json:"label,omitempty" yaml:"label,omitempty"`
	Fold              Fold           `json:"fold,omitempty" yaml:"fold,omitempty"`
	Table             string         `json:"table,omitempty" yaml:"table,omitempty"`
	StyleName         string         `json:"styleName,omitempty" yaml:"styleName,omitempty"`
	Visible           *bool          `json:"visible,omitempty" yaml:"visible,omitempty"`
	Selectable        *bool          `json:"selectable,omitempty" yaml:"selectable,omitempty"`
	PopupAttributes   [][]string     `json:"popupAttributes,omitempty" yaml:"popupAttributes,omitempty"`
	ForceSingleSymbol bool           `json:"forceSingleSymbol,omitempty" yaml:"forceSingleSymbol,omitempty"`
	CollapseSymbology bool           `json:"collapseSymbology,omitempty" yaml:"collapseSymbology,omitempty"`
	LayerOptions      map[string]any `json:"layerOptions,omitempty" yaml:"layerOptions,omitempty"`
}

// String renders the raw node as compact JSON for diagnostics.
func (r Raw) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%+v", map[string]any{"table": r.Table, "children": len(r.Group)})
	}
	return string(b)
}

// Node is either a *Group or a *Leaf.
type Node interface {
	NodeID() ID
	NodeLabel() string
	InitiallyVisible() bool
	isNode()
}

// Group is a container of other nodes.
type Group struct {
	ID         ID
	Label      string
	Fold       Fold
	Visible    bool
	Selectable bool
	Children   []Node

	// Layer is the map group built for this node by the placeholder builder.
	Layer *maprt.Group
}

// Leaf is a single data layer bound to one table.
type Leaf struct {
	ID                ID
	Label             string
	Table             string
	StyleName         string
	Visible           bool
	Selectable        bool
	PopupAttributes   [][]string
	ForceSingleSymbol bool
	CollapseSymbology bool
	LayerOptions      map[string]any

	// Layer is the placeholder vector layer. Its source is set when the
	// table named by Table arrives.
	Layer *maprt.VectorLayer
}

func (g *Group) NodeID() ID             { return g.ID }
func (g *Group) NodeLabel() string      { return g.Label }
func (g *Group) InitiallyVisible() bool { return g.Visible }
func (*Group) isNode()                  {}
func (l *Leaf) NodeID() ID              { return l.ID }
func (l *Leaf) NodeLabel() string       { return l.Label }
func (l *Leaf) InitiallyVisible() bool  { return l.Visible }
func (*Leaf) isNode()                   {}

// Bound reports whether a feature source has been attached to the leaf.
func (l *Leaf) Bound() bool {
	return l.Layer != nil && l.Layer.Source() != nil
}
