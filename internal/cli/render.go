package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liuji1031/visualize-architecture/pkg/pipeline"
	"github.com/liuji1031/visualize-architecture/pkg/render"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// Output formats.
const (
	formatDOT       = "dot"        // Graphviz DOT text
	formatSVG       = "svg"        // SVG rendered through Graphviz
	formatSVGNative = "svg-native" // SVG from the built-in layout engine
	formatPNG       = "png"        // PNG rendered through Graphviz
)

// validFormats is the set of supported output formats.
var validFormats = map[string]bool{
	formatDOT:       true,
	formatSVG:       true,
	formatSVGNative: true,
	formatPNG:       true,
}

// validateFormats checks that all requested formats are valid.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', 'svg-native', or 'png')", f)
		}
	}
	return nil
}

// renderCommand creates the render command for generating visualizations.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
		detailed   bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [config.yaml]",
		Short: "Render a model configuration to a graph image",
		Long: `Render a model configuration to a graph image.

The render command reads a model configuration file, resolves variable
interpolations and config references, builds the module graph, computes
a layered layout, and writes the result in one or more formats.

The svg and png formats are rendered through Graphviz and let it lay the
graph out; svg-native uses the built-in layered layout engine, so node
positions match the interactive frontend exactly.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if err := validateFormats(formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], formats, opts, output, noCache, detailed)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "rebuild even when a cached graph exists")

	// Render flags
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), svg-native, dot, png (comma-separated)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include module class and parameter count in labels")

	// Layout flags
	cmd.Flags().StringVar(&opts.Orientation, "orientation", "", "layout orientation: TB (default), LR")
	cmd.Flags().Float64Var(&opts.NodeWidth, "node-width", 0, "node width in pixels")
	cmd.Flags().Float64Var(&opts.NodeHeight, "node-height", 0, "node height in pixels")
	cmd.Flags().Float64Var(&opts.RankGap, "rank-gap", 0, "gap between layers in pixels")
	cmd.Flags().Float64Var(&opts.NodeGap, "node-gap", 0, "gap between nodes within a layer in pixels")

	return cmd
}

// runRender builds the graph and writes every requested format.
func (c *CLI) runRender(ctx context.Context, input string, formats []string, opts pipeline.Options, output string, noCache, detailed bool) error {
	s, err := c.settings()
	if err != nil {
		return err
	}
	defaults := layoutOptions(s)
	fillLayoutDefaults(&opts, defaults)
	opts.Source = input
	opts.Logger = c.Logger

	runner, err := c.newRunner(ctx, store.OS{}, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spin := startSpinner(ctx, fmt.Sprintf("Building %s...", input))

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spin.Fail("Build failed")
		return err
	}
	spin.Stop()
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.GraphHit)

	base := basePath(output, input)
	single := len(formats) == 1

	for _, format := range formats {
		data, err := c.renderFormat(ctx, result, format, opts, detailed)
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}

		path := output
		if !single || path == "" {
			path = base + "." + formatExt(format)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

// renderFormat produces the bytes for one output format.
func (c *CLI) renderFormat(ctx context.Context, result *pipeline.Result, format string, opts pipeline.Options, detailed bool) ([]byte, error) {
	switch format {
	case formatSVGNative:
		return render.SVG(result.Graph, render.SVGOptions{Orientation: opts.Orientation}), nil
	case formatDOT, formatSVG, formatPNG:
		dot := render.ToDOT(result.Graph, render.DOTOptions{
			Orientation: opts.Orientation,
			Detailed:    detailed,
		})
		switch format {
		case formatDOT:
			return []byte(dot), nil
		case formatSVG:
			return render.RenderSVG(ctx, dot)
		default:
			return render.RenderPNG(ctx, dot)
		}
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// formatExt returns the file extension for a format. The native renderer
// gets a distinct extension so both SVG variants can coexist.
func formatExt(format string) string {
	if format == formatSVGNative {
		return "native.svg"
	}
	return format
}

// basePath derives the base output path from the output and input file
// paths. If output is empty, it strips the extension from input. If output
// carries a known format extension, that extension is stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// fillLayoutDefaults copies settings-derived layout values into opts for
// every field the user left at its zero value.
func fillLayoutDefaults(opts *pipeline.Options, defaults pipeline.Options) {
	if opts.Orientation == "" {
		opts.Orientation = defaults.Orientation
	}
	if opts.NodeWidth == 0 {
		opts.NodeWidth = defaults.NodeWidth
	}
	if opts.NodeHeight == 0 {
		opts.NodeHeight = defaults.NodeHeight
	}
	if opts.RankGap == 0 {
		opts.RankGap = defaults.RankGap
	}
	if opts.NodeGap == 0 {
		opts.NodeGap = defaults.NodeGap
	}
}
