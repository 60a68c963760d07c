package render

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/liuji1031/visualize-architecture/pkg/geom"
	"github.com/liuji1031/visualize-architecture/pkg/graph"
)

// SVGOptions configures the native SVG renderer.
type SVGOptions struct {
	// Orientation is "TB" or "LR"; it selects which node border edges
	// attach to. Empty means TB.
	Orientation string
	// Margin is the padding around the drawing. Zero means DefaultMargin.
	Margin float64
	// LabelOffset is how far edge labels sit off their curve.
	LabelOffset float64
}

// DefaultMargin pads the drawing so strokes at the bounds are not clipped.
const DefaultMargin = 24.0

// SVG renders an already laid-out graph to SVG, drawing edges as the same
// cubic Bézier curves the interactive frontend uses. Unlike [RenderSVG]
// this does not re-layout through Graphviz, so positions match the layout
// engine exactly.
func SVG(g *graph.Graph, opts SVGOptions) []byte {
	if opts.Margin == 0 {
		opts.Margin = DefaultMargin
	}
	if opts.LabelOffset == 0 {
		opts.LabelOffset = 10
	}
	axis := geom.AxisY
	if opts.Orientation == "LR" {
		axis = geom.AxisX
	}

	minX, minY, maxX, maxY := g.Bounds()
	width := maxX - minX + 2*opts.Margin
	height := maxY - minY + 2*opts.Margin
	dx, dy := opts.Margin-minX, opts.Margin-minY

	var buf bytes.Buffer
	fmt.Fprintf(&buf,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)

	buf.WriteString(`  <g fill="none" stroke="#444" stroke-width="1.5">` + "\n")
	for _, e := range g.Edges {
		src, dst := portPoints(g, e, axis)
		src.X, src.Y = src.X+dx, src.Y+dy
		dst.X, dst.Y = dst.X+dx, dst.Y+dy
		c := geom.Link(src, dst, axis)
		fmt.Fprintf(&buf, `    <path d="M %.2f %.2f C %.2f %.2f, %.2f %.2f, %.2f %.2f"/>`+"\n",
			c.P0.X, c.P0.Y, c.P1.X, c.P1.Y, c.P2.X, c.P2.Y, c.P3.X, c.P3.Y)
		if e.Label != "" {
			lp := c.LabelPoint(opts.LabelOffset)
			fmt.Fprintf(&buf,
				`    <text x="%.2f" y="%.2f" fill="#666" stroke="none" font-size="10" text-anchor="middle">%s</text>`+"\n",
				lp.X, lp.Y, escape(e.Label))
		}
	}
	buf.WriteString("  </g>\n")

	for _, n := range g.Nodes {
		x, y := n.X+dx-n.Width/2, n.Y+dy-n.Height/2
		fill, stroke := "#ffffff", "#333"
		if n.Kind != graph.KindRegular {
			fill = "#e8e8e8"
		}
		if n.Unresolved != "" {
			stroke = "#cc3333"
		}
		dash := ""
		if n.Composite {
			dash = ` stroke-dasharray="6 3"`
		}
		fmt.Fprintf(&buf,
			`  <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="6" fill="%s" stroke="%s" stroke-width="1.5"%s/>`+"\n",
			x, y, n.Width, n.Height, fill, stroke, dash)
		fmt.Fprintf(&buf,
			`  <text x="%.2f" y="%.2f" font-size="12" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
			n.X+dx, n.Y+dy, escape(n.Label))
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// portPoints returns where an edge attaches on the source and target node
// borders: the outgoing side of the source, the incoming side of the
// target, with multi-port nodes spreading their ports evenly.
func portPoints(g *graph.Graph, e graph.Edge, axis geom.Axis) (geom.Point, geom.Point) {
	from, to := g.Node(e.From), g.Node(e.To)
	src := borderPoint(from, e.FromPort, from.OutPorts, axis, true)
	dst := borderPoint(to, e.ToPort, to.InPorts, axis, false)
	return src, dst
}

func borderPoint(n *graph.Node, port, total int, axis geom.Axis, outgoing bool) geom.Point {
	if n == nil {
		return geom.Point{}
	}
	frac := 0.5
	if total > 1 {
		frac = (float64(port) + 1) / (float64(total) + 1)
	}
	if axis == geom.AxisX {
		x := n.X - n.Width/2
		if outgoing {
			x = n.X + n.Width/2
		}
		return geom.Point{X: x, Y: n.Y - n.Height/2 + frac*n.Height}
	}
	y := n.Y - n.Height/2
	if outgoing {
		y = n.Y + n.Height/2
	}
	return geom.Point{X: n.X - n.Width/2 + frac*n.Width, Y: y}
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
