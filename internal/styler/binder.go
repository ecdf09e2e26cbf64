package styler

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/joeblew999/plat-sld/internal/layerdef"
	"github.com/joeblew999/plat-sld/internal/maprt"
)

// Report collects the recoverable conditions of one call. Warnings and
// per-leaf errors never stop the processing of sibling leaves.
type Report []error

// Err joins every entry, or returns nil for an empty report.
func (r Report) Err() error { return errors.Join(r...) }

// Warnings returns the informational entries.
func (r Report) Warnings() []error {
	var out []error
	for _, err := range r {
		switch err.(type) {
		case *UnusedTableWarning, *OverwriteWarning:
			out = append(out, err)
		}
	}
	return out
}

// UnusedTableWarning reports a loaded table that no leaf displays.
type UnusedTableWarning struct {
	Table  string
	Source string
}

func (w *UnusedTableWarning) Error() string {
	return fmt.Sprintf("%s table %q loaded, but not used by any layer", w.Source, w.Table)
}

// OverwriteWarning reports a source replacing the one already bound to a
// leaf. The new source is kept.
type OverwriteWarning struct {
	Table string
	Leaf  layerdef.ID
	Label string
}

func (w *OverwriteWarning) Error() string {
	return fmt.Sprintf("table %q already bound to layer %q: source overwritten", w.Table, w.Label)
}

// BindSources attaches each named source to every leaf displaying that
// table and returns the leaves bound for the first time, ready for styling.
// Tables are processed in name order.
func (s *Session) BindSources(label string, sources map[string]maprt.Source) ([]*layerdef.Leaf, Report) {
	if s.nodes == nil {
		return nil, Report{ErrNoTree}
	}
	leaves := layerdef.Leaves(s.nodes)

	var bound []*layerdef.Leaf
	var report Report
	for _, table := range slices.Sorted(maps.Keys(sources)) {
		src := sources[table]
		used := false
		for _, leaf := range leaves {
			if leaf.Table != table {
				continue
			}
			used = true
			if leaf.Bound() {
				w := &OverwriteWarning{Table: table, Leaf: leaf.ID, Label: leaf.Label}
				s.logger.Warn("source overwritten", "source", label, "table", table, "layer", leaf.Label)
				report = append(report, w)
			} else {
				bound = append(bound, leaf)
			}
			leaf.Layer.SetSource(src)
		}
		if !used {
			s.logger.Info("table loaded but not used", "source", label, "table", table)
			report = append(report, &UnusedTableWarning{Table: table, Source: label})
		}
	}
	return bound, report
}
