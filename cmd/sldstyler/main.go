package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-sld/internal/server"
)

// Options defines all CLI flags and env vars for the styler server.
// Flags: --host, --port, --config, --data-dir
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_CONFIG, SERVICE_DATA_DIR
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	Config  string `doc:"Map configuration file (YAML or JSON)" short:"c" default:"map.yaml"`
	DataDir string `doc:"Directory for DuckDB files, empty for in-memory" default:".data"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			ctx := context.Background()
			srv, err := server.New(ctx, server.Config{
				Host:       opts.Host,
				Port:       fmt.Sprintf("%d", opts.Port),
				ConfigPath: opts.Config,
				DataDir:    opts.DataDir,
			})
			if err != nil {
				log.Fatalf("Server error: %v", err)
			}
			defer srv.Close()
			go srv.Run(ctx)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-sld styler starting...\n")
			fmt.Printf("  Map:     %s\n", opts.Config)
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			if m := srv.Map(); m != nil {
				for _, r := range m.Reports() {
					printReport(os.Stdout, r)
				}
			}
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
	})

	cli.Root().Use = "sldstyler"
	cli.Root().Short = "Style map layers from SLD documents and serve their selector and legend"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := server.New(context.Background(), server.Config{
				Host:         opts.Host,
				Port:         fmt.Sprintf("%d", opts.Port),
				DBExtensions: []string{},
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building API: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// check subcommand: load the map and report what did not bind
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Load the map, print source reports and exit non-zero on problems",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			if err := runCheck(os.Stdout, opts); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
		}),
	}
	cli.Root().AddCommand(checkCmd)

	// symbols subcommand: write every symbol preview as PNG
	symbolsCmd := &cobra.Command{
		Use:   "symbols",
		Short: "Write the selector and legend symbol previews as PNG files",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			outDir, _ := cmd.Flags().GetString("output")
			n, err := runSymbols(outDir, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error writing symbols: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%d symbol images written to %s/\n", n, outDir)
		}),
	}
	symbolsCmd.Flags().StringP("output", "o", "symbols", "Output directory for symbol images")
	cli.Root().AddCommand(symbolsCmd)

	cli.Run()
}
