// Package render turns built graphs into viewable artifacts: Graphviz DOT
// text, SVG (either via Graphviz or the native renderer that honors the
// layout engine's positions), and PNG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/liuji1031/visualize-architecture/pkg/graph"
)

// DOTOptions configures DOT generation.
type DOTOptions struct {
	// Orientation is "TB" or "LR"; empty means TB.
	Orientation string
	// Detailed includes the module class and parameter count in labels.
	Detailed bool
}

// ToDOT converts a graph to Graphviz DOT. Pseudo input/output nodes render
// as ellipses, composite modules with doubled borders so drill-down targets
// stand out, and unresolved modules with a dashed red outline.
func ToDOT(g *graph.Graph, opts DOTOptions) string {
	rankdir := "TB"
	if opts.Orientation == "LR" {
		rankdir = "LR"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph model {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		attrs := nodeAttrs(n, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if e.Label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q, fontsize=10];\n", e.From, e.To, e.Label)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *graph.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, detailed))}
	switch {
	case n.Kind != graph.KindRegular:
		attrs = append(attrs, "shape=ellipse", "fillcolor=lightgrey")
	case n.Unresolved != "":
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "color=red")
	case n.Composite:
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

func nodeLabel(n *graph.Node, detailed bool) string {
	if !detailed || n.Kind != graph.KindRegular {
		return n.Label
	}
	parts := []string{n.Label}
	if n.Class != "" {
		parts = append(parts, n.Class)
	}
	if n.Params.IsMap() && n.Params.Len() > 0 {
		parts = append(parts, fmt.Sprintf("%d params", n.Params.Len()))
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders DOT text to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// RenderPNG renders DOT text to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the Graphviz svg tag so the drawing starts at
// the origin with explicit pixel dimensions, which embedding frontends
// expect.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
