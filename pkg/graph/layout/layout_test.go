package layout

import (
	"testing"

	"github.com/liuji1031/visualize-architecture/pkg/config"
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/graph"
)

func buildGraph(t *testing.T, src string) *graph.Graph {
	t.Helper()
	root, err := config.ParseBytes([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := config.FromValue(root)
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	g, err := graph.Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

const chain = `
modules:
  input: [x]
  convA:
    cls: Conv2d
    inp_src: [x]
    out_num: 1
  convB:
    cls: Split
    inp_src: [convA]
    out_num: 2
  output:
    y: convB.1
`

func TestApplyRanks(t *testing.T) {
	g := buildGraph(t, chain)
	ranks, err := Apply(g, DefaultOptions())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := map[string]int{"input": 0, "convA": 1, "convB": 2, "output": 3}
	for id, r := range want {
		if ranks[id] != r {
			t.Errorf("rank[%s] = %d, want %d", id, ranks[id], r)
		}
	}
}

func TestApplyPinsOutputToBottom(t *testing.T) {
	// "side" feeds output directly, but the output node must still sit on
	// the deepest rank, below the longer branch.
	g := buildGraph(t, `
modules:
  input: [x]
  side:
    cls: Identity
    inp_src: [x]
    out_num: 1
  deepA:
    cls: Conv2d
    inp_src: [x]
    out_num: 1
  deepB:
    cls: Conv2d
    inp_src: [deepA]
    out_num: 1
  output: [side, deepB]
`)
	ranks, err := Apply(g, DefaultOptions())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ranks["output"] != 3 {
		t.Errorf("rank[output] = %d, want 3", ranks["output"])
	}
	if ranks["side"] != 1 || ranks["deepB"] != 2 {
		t.Errorf("ranks = %v", ranks)
	}
}

func TestApplyTopToBottomCoords(t *testing.T) {
	g := buildGraph(t, chain)
	opts := DefaultOptions()
	if _, err := Apply(g, opts); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	in, a, b := g.Node("input"), g.Node("convA"), g.Node("convB")
	if in.Y >= a.Y || a.Y >= b.Y {
		t.Errorf("ranks not descending: input.Y=%v convA.Y=%v convB.Y=%v", in.Y, a.Y, b.Y)
	}
	// Single-node ranks sit on the midline.
	for _, n := range g.Nodes {
		if n.X != 0 {
			t.Errorf("node %s X = %v, want 0", n.ID, n.X)
		}
		if n.Width != opts.NodeWidth || n.Height != opts.NodeHeight {
			t.Errorf("node %s size = %vx%v", n.ID, n.Width, n.Height)
		}
	}
	step := opts.NodeHeight + opts.RankGap
	if got := a.Y - in.Y; got != step {
		t.Errorf("rank spacing = %v, want %v", got, step)
	}
}

func TestApplyLeftToRight(t *testing.T) {
	g := buildGraph(t, chain)
	opts := DefaultOptions()
	opts.Orientation = LeftToRight
	if _, err := Apply(g, opts); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	in, a := g.Node("input"), g.Node("convA")
	if in.X >= a.X {
		t.Errorf("ranks not advancing along X: input.X=%v convA.X=%v", in.X, a.X)
	}
	if in.Y != 0 || a.Y != 0 {
		t.Errorf("midline broken: input.Y=%v convA.Y=%v", in.Y, a.Y)
	}
}

func TestApplyDeterministic(t *testing.T) {
	type pos struct{ x, y float64 }
	run := func() map[string]pos {
		g := buildGraph(t, chain)
		if _, err := Apply(g, DefaultOptions()); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		out := make(map[string]pos)
		for _, n := range g.Nodes {
			out[n.ID] = pos{n.X, n.Y}
		}
		return out
	}
	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); len(got) != len(first) {
			t.Fatalf("node count changed")
		} else {
			for id, p := range first {
				if got[id] != p {
					t.Fatalf("run %d: node %s moved from %v to %v", i, id, p, got[id])
				}
			}
		}
	}
}

func TestApplyCycleFails(t *testing.T) {
	g := buildGraph(t, `
modules:
  input: [x]
  a:
    cls: Loop
    inp_src: [b]
    out_num: 1
  b:
    cls: Loop
    inp_src: [a]
    out_num: 1
  output: [a]
`)
	_, err := Apply(g, DefaultOptions())
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if apperrors.GetCode(err) != apperrors.ErrCodeInvalidConfig {
		t.Errorf("code = %s", apperrors.GetCode(err))
	}
}

func TestCountLayerCrossings(t *testing.T) {
	children := map[string][]string{
		"a": {"y"},
		"b": {"x"},
	}
	// a->y and b->x cross when the orders are [a b] and [x y].
	if got := countLayerCrossings([]string{"a", "b"}, []string{"x", "y"}, children); got != 1 {
		t.Errorf("crossings = %d, want 1", got)
	}
	if got := countLayerCrossings([]string{"a", "b"}, []string{"y", "x"}, children); got != 0 {
		t.Errorf("crossings = %d, want 0", got)
	}
	if got := countLayerCrossings(nil, []string{"x"}, children); got != 0 {
		t.Errorf("empty layer crossings = %d, want 0", got)
	}
}

func TestReduceCrossingsUntangles(t *testing.T) {
	// Declaration order pairs a with d and b with c, so the edges between
	// ranks 1 and 2 start out crossed.
	g := buildGraph(t, `
modules:
  input: [x]
  a:
    cls: Conv2d
    inp_src: [x]
    out_num: 1
  b:
    cls: Conv2d
    inp_src: [x]
    out_num: 1
  c:
    cls: Conv2d
    inp_src: [b]
    out_num: 1
  d:
    cls: Conv2d
    inp_src: [a]
    out_num: 1
  output: [c, d]
`)
	adj := buildAdjacency(g)
	ranks, err := assignRanks(g)
	if err != nil {
		t.Fatalf("assignRanks: %v", err)
	}
	order := initialOrder(g, ranks)
	before := countCrossings(order, adj)
	if before == 0 {
		t.Fatal("fixture should start with crossings")
	}
	reduceCrossings(g, order, DefaultOptions().Sweeps)
	if after := countCrossings(order, adj); after >= before {
		t.Errorf("crossings went from %d to %d", before, after)
	}
}
