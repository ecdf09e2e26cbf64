package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/joeblew999/plat-sld/internal/server"
	"github.com/joeblew999/plat-sld/internal/service"
)

// errProblems is returned by runCheck when a layer failed to style.
var errProblems = errors.New("map has problems")

// openMap loads the configured map and starts its session loop. The
// returned func stops the loop and releases the database.
func openMap(opts *Options) (*service.MapService, func(), error) {
	if opts.Config == "" {
		return nil, nil, errors.New("no map configuration given (--config)")
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := server.New(ctx, server.Config{ConfigPath: opts.Config, DataDir: opts.DataDir})
	if err != nil {
		cancel()
		return nil, nil, err
	}
	maps := srv.Map()
	maps.Settle()
	go srv.Run(ctx)
	return maps, func() {
		cancel()
		srv.Close()
	}, nil
}

func runCheck(w io.Writer, opts *Options) error {
	maps, closeMap, err := openMap(opts)
	if err != nil {
		return err
	}
	defer closeMap()

	info, err := maps.Info(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d layers in %d groups, %d symbols (%d scale-gated)\n",
		info.Title, info.Layers, info.Groups, info.Symbols, info.ScaleGated)
	failed := false
	for _, r := range info.Sources {
		printReport(w, r)
		failed = failed || r.Error != "" || len(r.Problems) > 0
	}
	for _, table := range info.Missing {
		fmt.Fprintf(w, "  missing: %s\n", table)
	}
	if failed || len(info.Missing) > 0 {
		return errProblems
	}
	return nil
}

func printReport(w io.Writer, r service.LoadReport) {
	if r.Error != "" {
		fmt.Fprintf(w, "  %s: %s\n", r.Source, r.Error)
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", r.Source, r.Summary)
	for _, p := range r.Problems {
		fmt.Fprintf(w, "    error: %s\n", p)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "    warning: %s\n", warn)
	}
}

// runSymbols writes <table>-<symbol>-<consumer>.png for every drawn
// preview and returns how many it wrote.
func runSymbols(outDir string, opts *Options) (int, error) {
	maps, closeMap, err := openMap(opts)
	if err != nil {
		return 0, err
	}
	defer closeMap()

	ctx := context.Background()
	nodes, err := maps.Layers(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, err
	}

	var (
		written int
		bytes   uint64
		walk    func([]service.LayerNode) error
	)
	walk = func(nodes []service.LayerNode) error {
		for _, n := range nodes {
			if err := walk(n.Children); err != nil {
				return err
			}
			if n.Symbology == nil {
				continue
			}
			for _, sym := range n.Symbology.Symbols {
				for consumer, url := range map[string]string{"selector": sym.SelectorURL, "legend": sym.LegendURL} {
					if url == "" {
						continue
					}
					data, err := maps.SymbolPNG(ctx, sym.ID, consumer)
					if err != nil {
						return err
					}
					name := fmt.Sprintf("%s-%d-%s.png", n.Table, sym.ID, consumer)
					if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
						return err
					}
					written++
					bytes += uint64(len(data))
				}
			}
		}
		return nil
	}
	if err := walk(nodes); err != nil {
		return written, err
	}
	fmt.Printf("%s of PNG\n", humanize.Bytes(bytes))
	return written, nil
}
