package styler

import "github.com/joeblew999/plat-sld/internal/layerdef"

// ReportMissingBindings flags every leaf still without a source, once all
// data loads have finished, and reports whether there was any.
func (s *Session) ReportMissingBindings() bool {
	missing := false
	for _, leaf := range layerdef.Leaves(s.nodes) {
		if leaf.Bound() {
			continue
		}
		missing = true
		s.logger.Error("no data for layer", "table", leaf.Table, "layer", leaf.Label)
		s.setState(leaf, MarkerNoLayerData)
	}
	if missing {
		s.changed(EventMissing)
	}
	return missing
}

// Unbound lists the leaves without a source.
func (s *Session) Unbound() []*layerdef.Leaf {
	var out []*layerdef.Leaf
	for _, leaf := range layerdef.Leaves(s.nodes) {
		if !leaf.Bound() {
			out = append(out, leaf)
		}
	}
	return out
}
