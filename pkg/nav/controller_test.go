package nav

import (
	"context"
	"errors"
	"testing"

	"github.com/liuji1031/visualize-architecture/pkg/config"
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/graph/layout"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// countingFetcher serves from a map and records per-path fetch counts.
type countingFetcher struct {
	files  map[string]string
	counts map[string]int
	// hook runs before each fetch; used to interleave requests.
	hook func(path string)
}

func newCountingFetcher(files map[string]string) *countingFetcher {
	return &countingFetcher{files: files, counts: make(map[string]int)}
}

func (f *countingFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	if f.hook != nil {
		f.hook(path)
	}
	f.counts[path]++
	data, ok := f.files[path]
	if !ok {
		return nil, store.ErrNotFound
	}
	return []byte(data), nil
}

const rootYAML = `
modules:
  input: [x]
  enc:
    cls: ComposableModel
    inp_src: [x]
    out_num: 1
    config: enc.yaml
  dec:
    cls: ComposableModel
    inp_src: [enc]
    out_num: 1
    config: dec.yaml
  output: [dec]
`

const leafYAML = `
modules:
  input: [x]
  conv:
    cls: Conv2d
    inp_src: [x]
    out_num: 1
  output: [conv]
`

func newTestController(t *testing.T, files map[string]string) (*Controller, *countingFetcher) {
	t.Helper()
	f := newCountingFetcher(files)
	c, err := New(f, nil, layout.DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, f
}

func defaultFiles() map[string]string {
	return map[string]string{
		"model.yaml": rootYAML,
		"enc.yaml":   leafYAML,
		"dec.yaml":   leafYAML,
	}
}

func TestLoadRoot(t *testing.T) {
	c, _ := newTestController(t, defaultFiles())
	state, err := c.LoadRoot(context.Background(), "model.yaml")
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	if state.Path != "model.yaml" || state.NodeID != "" {
		t.Errorf("state = %+v", state)
	}
	if len(state.Graph.Nodes) != 4 {
		t.Errorf("got %d nodes, want 4", len(state.Graph.Nodes))
	}
	if enc := state.Config.Module("enc"); enc == nil || enc.Class != config.ClassComposable {
		t.Errorf("enc module = %+v", enc)
	}
	if c.Depth() != 1 || c.Current() != state {
		t.Errorf("history depth %d", c.Depth())
	}
	if c.Loading() {
		t.Error("controller still loading after LoadRoot")
	}
}

func TestLoadRootUnresolvableInterpolation(t *testing.T) {
	src := `
modules:
  input: [x]
  conv:
    cls: Conv2d
    inp_src: [x]
    out_num: 1
    config:
      channels: ${missing.channels}
  output: [conv]
`
	c, _ := newTestController(t, map[string]string{"model.yaml": src})

	// A dangling interpolation keeps the raw value instead of failing
	// the load.
	state, err := c.LoadRoot(context.Background(), "model.yaml")
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	ch, _ := state.Config.Module("conv").Params.Get("channels")
	if s, _ := ch.AsString(); s != "${missing.channels}" {
		t.Errorf("channels = %#v, want the raw expression", ch)
	}
}

func TestExpandPushesAndCaches(t *testing.T) {
	c, f := newTestController(t, defaultFiles())
	ctx := context.Background()
	if _, err := c.LoadRoot(ctx, "model.yaml"); err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	baseline := f.counts["enc.yaml"] // lookups made while resolving the root

	sub, err := c.Expand(ctx, "enc")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if sub.NodeID != "enc" || sub.Path != "enc.yaml" {
		t.Errorf("sub = %+v", sub)
	}
	if c.Depth() != 2 || c.Current() != sub {
		t.Errorf("depth = %d", c.Depth())
	}
	fetched := f.counts["enc.yaml"] - baseline
	if fetched != 1 {
		t.Fatalf("enc.yaml fetched %d times during expand, want 1", fetched)
	}

	// Re-entering the same module after going back hits the cache.
	if _, err := c.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	again, err := c.Expand(ctx, "enc")
	if err != nil {
		t.Fatalf("Expand again: %v", err)
	}
	if again.Graph != sub.Graph {
		t.Error("second expansion did not reuse cached state")
	}
	if got := f.counts["enc.yaml"] - baseline; got != 1 {
		t.Errorf("enc.yaml fetched %d times total, want 1", got)
	}
}

func TestExpandTruncatesForwardHistory(t *testing.T) {
	c, _ := newTestController(t, defaultFiles())
	ctx := context.Background()
	if _, err := c.LoadRoot(ctx, "model.yaml"); err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	if _, err := c.Expand(ctx, "enc"); err != nil {
		t.Fatalf("Expand enc: %v", err)
	}
	if _, err := c.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	dec, err := c.Expand(ctx, "dec")
	if err != nil {
		t.Fatalf("Expand dec: %v", err)
	}
	if c.Depth() != 2 {
		t.Fatalf("depth = %d, want 2 after truncation", c.Depth())
	}
	fwd, err := c.Forward()
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if fwd != dec {
		t.Error("forward entry should be the dec expansion")
	}
}

func TestExpandMissingFileLeavesHistory(t *testing.T) {
	files := defaultFiles()
	delete(files, "enc.yaml")
	c, _ := newTestController(t, files)
	ctx := context.Background()
	root, err := c.LoadRoot(ctx, "model.yaml")
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}

	_, err = c.Expand(ctx, "enc")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	var nfe *apperrors.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("error type %T: %v", err, err)
	}
	if nfe.Code() != apperrors.ErrCodeConfigFileNotFound {
		t.Errorf("code = %s", nfe.Code())
	}
	if nfe.Module != "enc" {
		t.Errorf("module = %q", nfe.Module)
	}
	if c.Depth() != 1 || c.Current() != root {
		t.Error("history changed by failed expansion")
	}
	if c.Loading() {
		t.Error("loading flag stuck after failure")
	}
}

func TestExpandRejectsNonComposite(t *testing.T) {
	c, _ := newTestController(t, map[string]string{"model.yaml": leafYAML})
	ctx := context.Background()
	if _, err := c.LoadRoot(ctx, "model.yaml"); err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	_, err := c.Expand(ctx, "conv")
	if apperrors.GetCode(err) != apperrors.ErrCodeInvalidInput {
		t.Errorf("err = %v", err)
	}
	_, err = c.Expand(ctx, "nope")
	if apperrors.GetCode(err) != apperrors.ErrCodeNotFound {
		t.Errorf("err = %v", err)
	}
}

func TestLoadRootInvalidatesCache(t *testing.T) {
	c, f := newTestController(t, defaultFiles())
	ctx := context.Background()
	if _, err := c.LoadRoot(ctx, "model.yaml"); err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	if _, err := c.Expand(ctx, "enc"); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	before := f.counts["enc.yaml"]

	if _, err := c.LoadRoot(ctx, "model.yaml"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := c.Expand(ctx, "enc"); err != nil {
		t.Fatalf("Expand after reload: %v", err)
	}
	// Probe plus rebuild; the point is it fetched again instead of using
	// the stale cache entry.
	if f.counts["enc.yaml"] <= before {
		t.Error("expansion after reload served from invalidated cache")
	}
}

func TestExpandSuperseded(t *testing.T) {
	c, f := newTestController(t, defaultFiles())
	ctx := context.Background()
	if _, err := c.LoadRoot(ctx, "model.yaml"); err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}

	// A newer request arrives while the expansion fetch is in flight.
	interfered := false
	f.hook = func(path string) {
		if path == "enc.yaml" && !interfered {
			interfered = true
			c.begin()
		}
	}
	_, err := c.Expand(ctx, "enc")
	if apperrors.GetCode(err) != apperrors.ErrCodeSuperseded {
		t.Fatalf("err = %v, want superseded", err)
	}
	if c.Depth() != 1 {
		t.Errorf("stale completion mutated history: depth = %d", c.Depth())
	}
}

func TestSubgraphPlacedBesideParent(t *testing.T) {
	c, _ := newTestController(t, defaultFiles())
	ctx := context.Background()
	root, err := c.LoadRoot(ctx, "model.yaml")
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	parent := root.Graph.Node("enc")

	sub, err := c.Expand(ctx, "enc")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	minX, minY, _, maxY := sub.Graph.Bounds()
	if minX <= parent.X+parent.Width/2 {
		t.Errorf("subgraph left edge %v overlaps parent right edge %v",
			minX, parent.X+parent.Width/2)
	}
	if mid := (minY + maxY) / 2; mid != parent.Y {
		t.Errorf("subgraph vertical center %v, want %v", mid, parent.Y)
	}
}

func TestNavPathQualifiesHistory(t *testing.T) {
	c, _ := newTestController(t, defaultFiles())
	ctx := context.Background()
	root, err := c.LoadRoot(ctx, "model.yaml")
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	if root.NavPath != "model.yaml" {
		t.Errorf("root NavPath = %q", root.NavPath)
	}

	sub, err := c.Expand(ctx, "enc")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if sub.NavPath != "model.yaml/enc" {
		t.Errorf("sub NavPath = %q, want model.yaml/enc", sub.NavPath)
	}

	// A cached re-entry still carries the qualified path.
	if _, err := c.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	again, err := c.Expand(ctx, "enc")
	if err != nil {
		t.Fatalf("Expand again: %v", err)
	}
	if again.NavPath != "model.yaml/enc" {
		t.Errorf("cached NavPath = %q", again.NavPath)
	}
}

func TestResetFit(t *testing.T) {
	c, _ := newTestController(t, defaultFiles())
	ctx := context.Background()
	if _, err := c.LoadRoot(ctx, "model.yaml"); err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	sub, err := c.Expand(ctx, "enc")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	if got := c.ResetFit(); got != sub {
		t.Errorf("ResetFit = %+v, want the current state", got)
	}
	if c.Depth() != 2 {
		t.Errorf("ResetFit changed history depth to %d", c.Depth())
	}
	// Before any load there is nothing to fit.
	empty, _ := New(newCountingFetcher(nil), nil, layout.DefaultOptions())
	if empty.ResetFit() != nil {
		t.Error("ResetFit on empty controller should be nil")
	}
}

func TestBackForwardAtBounds(t *testing.T) {
	c, _ := newTestController(t, defaultFiles())
	ctx := context.Background()
	root, err := c.LoadRoot(ctx, "model.yaml")
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	if s, err := c.Back(); err != nil || s != root {
		t.Errorf("Back at root = (%v, %v)", s, err)
	}
	if s, err := c.Forward(); err != nil || s != root {
		t.Errorf("Forward at newest = (%v, %v)", s, err)
	}
	// No configuration loaded at all.
	empty, _ := New(newCountingFetcher(nil), nil, layout.DefaultOptions())
	if _, err := empty.Back(); apperrors.GetCode(err) != apperrors.ErrCodeInvalidInput {
		t.Errorf("Back on empty controller: %v", err)
	}
	if empty.Current() != nil {
		t.Error("Current on empty controller should be nil")
	}
}

var _ store.Fetcher = (*countingFetcher)(nil)
