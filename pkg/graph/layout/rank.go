package layout

import (
	"github.com/liuji1031/visualize-architecture/pkg/graph"
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

// assignRanks computes longest-path ranks with a topological traversal
// (Kahn's algorithm). Every source node starts at rank 0 and each node
// lands one below its deepest parent. The pseudo-output node, when present,
// is then pinned to the bottom rank so terminal edges always point at the
// last layer.
func assignRanks(g *graph.Graph) (map[string]int, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	children := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		inDegree[e.To]++
		children[e.From] = append(children[e.From], e.To)
	}

	ranks := make(map[string]int, len(g.Nodes))
	queue := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	processed := 0
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		processed++

		for _, child := range children[curr] {
			if r := ranks[curr] + 1; r > ranks[child] {
				ranks[child] = r
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if processed != len(g.Nodes) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			"module connections contain a cycle")
	}

	maxRank := 0
	for _, r := range ranks {
		maxRank = max(maxRank, r)
	}
	for _, n := range g.Nodes {
		if n.Kind == graph.KindOutput {
			ranks[n.ID] = maxRank
		}
	}
	return ranks, nil
}

// initialOrder groups node ids by rank in declaration order, which is the
// deterministic seed the barycenter sweeps refine.
func initialOrder(g *graph.Graph, ranks map[string]int) [][]string {
	maxRank := 0
	for _, r := range ranks {
		maxRank = max(maxRank, r)
	}
	order := make([][]string, maxRank+1)
	for _, n := range g.Nodes {
		r := ranks[n.ID]
		order[r] = append(order[r], n.ID)
	}
	return order
}
