package layout

import (
	"slices"
	"sort"

	"github.com/liuji1031/visualize-architecture/pkg/graph"
)

// adjacency holds the per-node neighbor lists the sweeps consult. Neighbor
// order follows edge declaration order, keeping sweeps deterministic.
type adjacency struct {
	parents  map[string][]string
	children map[string][]string
}

func buildAdjacency(g *graph.Graph) adjacency {
	adj := adjacency{
		parents:  make(map[string][]string, len(g.Nodes)),
		children: make(map[string][]string, len(g.Nodes)),
	}
	for _, e := range g.Edges {
		adj.parents[e.To] = append(adj.parents[e.To], e.From)
		adj.children[e.From] = append(adj.children[e.From], e.To)
	}
	return adj
}

// reduceCrossings runs alternating down and up barycenter sweeps over the
// rank ordering, mutating order in place. A reordering is kept only when it
// does not increase the total crossing count, so the result is never worse
// than the declaration order.
func reduceCrossings(g *graph.Graph, order [][]string, sweeps int) {
	adj := buildAdjacency(g)
	best := countCrossings(order, adj)
	if best == 0 {
		return
	}

	for s := 0; s < sweeps; s++ {
		candidate := cloneOrder(order)
		if s%2 == 0 {
			for r := 1; r < len(candidate); r++ {
				sortByBarycenter(candidate[r], candidate[r-1], adj.parents)
			}
		} else {
			for r := len(candidate) - 2; r >= 0; r-- {
				sortByBarycenter(candidate[r], candidate[r+1], adj.children)
			}
		}
		if c := countCrossings(candidate, adj); c <= best {
			copyOrder(order, candidate)
			if c == 0 {
				return
			}
			best = c
		}
	}
}

// sortByBarycenter stably reorders row by the mean position of each node's
// neighbors in the fixed adjacent row. Nodes without neighbors keep their
// current relative position.
func sortByBarycenter(row, fixed []string, neighbors map[string][]string) {
	pos := make(map[string]int, len(fixed))
	for i, id := range fixed {
		pos[id] = i
	}

	weight := make(map[string]float64, len(row))
	for i, id := range row {
		sum, count := 0.0, 0
		for _, nb := range neighbors[id] {
			if p, ok := pos[nb]; ok {
				sum += float64(p)
				count++
			}
		}
		if count == 0 {
			weight[id] = float64(i)
		} else {
			weight[id] = sum / float64(count)
		}
	}
	sort.SliceStable(row, func(i, j int) bool {
		return weight[row[i]] < weight[row[j]]
	})
}

// countCrossings sums the edge crossings between every pair of adjacent
// ranks for the given ordering.
func countCrossings(order [][]string, adj adjacency) int {
	total := 0
	for r := 0; r < len(order)-1; r++ {
		total += countLayerCrossings(order[r], order[r+1], adj.children)
	}
	return total
}

// countLayerCrossings counts crossings between two adjacent ranks with a
// Fenwick tree in O(E log V). Two edges (u1,v1) and (u2,v2) cross iff
// pos(u1) < pos(u2) and pos(v1) > pos(v2), so after sorting edges by
// source position the answer is the number of inversions among target
// positions.
func countLayerCrossings(upper, lower []string, children map[string][]string) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}

	lowerPos := make(map[string]int, len(lower))
	for i, id := range lower {
		lowerPos[id] = i
	}

	type link struct{ upper, lower int }
	links := make([]link, 0, len(upper)*2)
	for i, id := range upper {
		for _, child := range children[id] {
			if p, ok := lowerPos[child]; ok {
				links = append(links, link{i, p})
			}
		}
	}
	if len(links) < 2 {
		return 0
	}

	slices.SortFunc(links, func(a, b link) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, total := 0, 0
	for _, l := range links {
		lessOrEqual := 0
		for q := l.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += total - lessOrEqual

		total++
		for idx := l.lower + 1; idx < len(fenwick); idx += idx & (-idx) {
			fenwick[idx]++
		}
	}
	return crossings
}

func cloneOrder(order [][]string) [][]string {
	out := make([][]string, len(order))
	for i, row := range order {
		out[i] = slices.Clone(row)
	}
	return out
}

func copyOrder(dst, src [][]string) {
	for i := range src {
		copy(dst[i], src[i])
	}
}
