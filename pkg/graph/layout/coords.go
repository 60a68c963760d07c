package layout

import "github.com/liuji1031/visualize-architecture/pkg/graph"

// assignCoords turns the final rank ordering into center positions. Ranks
// advance along the primary axis; within a rank, nodes spread along the
// secondary axis centered on zero so sibling rows share a midline.
func assignCoords(g *graph.Graph, order [][]string, opts Options) {
	// Extent of a node along the primary and secondary axes.
	primarySize, secondarySize := opts.NodeHeight, opts.NodeWidth
	if opts.Orientation == LeftToRight {
		primarySize, secondarySize = opts.NodeWidth, opts.NodeHeight
	}

	primary := primarySize / 2
	for _, row := range order {
		if len(row) == 0 {
			continue
		}
		rowSpan := float64(len(row))*secondarySize + float64(len(row)-1)*opts.NodeGap
		secondary := -rowSpan/2 + secondarySize/2

		for _, id := range row {
			n := g.Node(id)
			n.Width = opts.NodeWidth
			n.Height = opts.NodeHeight
			if opts.Orientation == LeftToRight {
				n.X, n.Y = primary, secondary
			} else {
				n.X, n.Y = secondary, primary
			}
			secondary += secondarySize + opts.NodeGap
		}
		primary += primarySize + opts.RankGap
	}
}
