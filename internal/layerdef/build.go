package layerdef

import "fmt"

// ConfigurationError reports a raw node that is neither a group nor a leaf.
type ConfigurationError struct {
	Raw    Raw
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid data layer/group definition (%s): %s", e.Reason, e.Raw)
}

// Builder normalizes raw descriptors. It owns the ID counter, so one Builder
// must be used per session to keep IDs unique.
type Builder struct {
	next ID
}

// NewBuilder returns a Builder whose first assigned ID is 1.
func NewBuilder() *Builder {
	return &Builder{next: 1}
}

// Build normalizes raws into a definition tree. It fails on the first
// malformed node; IDs consumed before the failure are not reused.
func (b *Builder) Build(raws []Raw) ([]Node, error) {
	nodes := make([]Node, 0, len(raws))
	for _, raw := range raws {
		n, err := b.build(raw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (b *Builder) build(raw Raw) (Node, error) {
	id := b.next
	b.next++

	visible := boolOr(raw.Visible, true)
	selectable := boolOr(raw.Selectable, true)

	switch {
	case raw.Group != nil && raw.Label != nil:
		if len(raw.Group) == 0 {
			return nil, &ConfigurationError{Raw: raw, Reason: "group has no children"}
		}
		fold := raw.Fold
		if fold == "" {
			fold = FoldOpen
		}
		if fold != FoldOpen && fold != FoldClose {
			return nil, &ConfigurationError{Raw: raw, Reason: fmt.Sprintf("unknown fold %q", fold)}
		}
		children, err := b.Build(raw.Group)
		if err != nil {
			return nil, err
		}
		return &Group{
			ID:         id,
			Label:      *raw.Label,
			Fold:       fold,
			Visible:    visible,
			Selectable: selectable,
			Children:   children,
		}, nil

	case raw.Table != "":
		leaf := &Leaf{
			ID:                id,
			Label:             raw.Table,
			Table:             raw.Table,
			StyleName:         raw.Table,
			Visible:           visible,
			Selectable:        selectable,
			PopupAttributes:   raw.PopupAttributes,
			ForceSingleSymbol: raw.ForceSingleSymbol,
			CollapseSymbology: raw.CollapseSymbology,
			LayerOptions:      raw.LayerOptions,
		}
		if raw.Label != nil {
			leaf.Label = *raw.Label
		}
		if raw.StyleName != "" {
			leaf.StyleName = raw.StyleName
		}
		return leaf, nil

	default:
		return nil, &ConfigurationError{Raw: raw, Reason: "need group+label or table"}
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
