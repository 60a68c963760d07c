package config

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// mapFetcher serves raw documents from memory and counts fetches.
type mapFetcher struct {
	files   map[string]string
	fetches int
}

func (m *mapFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	m.fetches++
	raw, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	return []byte(raw), nil
}

func TestResolveReferences(t *testing.T) {
	f := &mapFetcher{files: map[string]string{
		"config/conv.yaml": "kernel: 3\nstride: ${base * 2}\nbase: 1\n",
	}}

	cfg := mustConfig(t, `
modules:
  input: [x]
  convA:
    cls: Conv2d
    inp_src: [x]
    config: config/conv.yaml
  output: [convA]
`)

	resolved, err := ResolveReferences(context.Background(), cfg, "", f, nil)
	if err != nil {
		t.Fatalf("ResolveReferences: %v", err)
	}

	convA := resolved.Module("convA")
	if convA.ConfigPath != "" {
		t.Errorf("ConfigPath should be cleared after splice, got %q", convA.ConfigPath)
	}
	if convA.ResolvedPath != "config/conv.yaml" {
		t.Errorf("ResolvedPath = %q", convA.ResolvedPath)
	}
	if k, _ := convA.Params.Get("kernel"); !k.Equal(Int(3)) {
		t.Errorf("kernel = %#v", k)
	}
	// Referenced file's own interpolations are resolved
	if s, _ := convA.Params.Get("stride"); !s.Equal(Int(2)) {
		t.Errorf("stride = %#v", s)
	}

	// Input configuration untouched
	if cfg.Module("convA").ConfigPath != "config/conv.yaml" {
		t.Error("ResolveReferences must not mutate its input")
	}
}

func TestResolveReferencesBasePath(t *testing.T) {
	f := &mapFetcher{files: map[string]string{
		"nested/config/conv.yaml": "kernel: 5\n",
	}}

	cfg := mustConfig(t, `
modules:
  input: [x]
  convA:
    cls: Conv2d
    inp_src: [x]
    config: config/conv.yaml
  output: [convA]
`)

	resolved, err := ResolveReferences(context.Background(), cfg, "nested", f, nil)
	if err != nil {
		t.Fatalf("ResolveReferences: %v", err)
	}
	if got := resolved.Module("convA").ResolvedPath; got != "nested/config/conv.yaml" {
		t.Errorf("ResolvedPath = %q", got)
	}
}

func TestResolveReferencesDegradesPerModule(t *testing.T) {
	f := &mapFetcher{files: map[string]string{
		"good.yaml": "kernel: 3\n",
	}}

	cfg := mustConfig(t, `
modules:
  input: [x]
  okMod:
    cls: Conv2d
    inp_src: [x]
    config: good.yaml
  brokenMod:
    cls: Conv2d
    inp_src: [okMod]
    config: missing.yaml
  output: [brokenMod]
`)

	resolved, err := ResolveReferences(context.Background(), cfg, "", f, nil)
	if err != nil {
		t.Fatalf("one bad reference must not abort resolution: %v", err)
	}

	if resolved.Module("okMod").RefError != nil {
		t.Error("okMod should have resolved")
	}

	broken := resolved.Module("brokenMod")
	if broken.RefError == nil {
		t.Fatal("brokenMod should carry its fetch error")
	}
	if !apperrors.Is(broken.RefError, apperrors.ErrCodeConfigRefFetch) {
		t.Errorf("code = %q, want CONFIG_REF_FETCH", apperrors.GetCode(broken.RefError))
	}
	if broken.ConfigPath != "missing.yaml" {
		t.Errorf("broken module should keep its raw path, got %q", broken.ConfigPath)
	}
}

func TestResolveReferencesKeepsCompositePath(t *testing.T) {
	f := &mapFetcher{files: map[string]string{
		"sub.yaml": "modules:\n  input: [a]\n  output: [a]\n",
	}}

	cfg := mustConfig(t, `
modules:
  input: [x]
  subnet:
    cls: ComposableModel
    inp_src: [x]
    config: sub.yaml
  output: [subnet]
`)

	resolved, err := ResolveReferences(context.Background(), cfg, "", f, nil)
	if err != nil {
		t.Fatalf("ResolveReferences: %v", err)
	}

	subnet := resolved.Module("subnet")
	if subnet.ConfigPath != "sub.yaml" {
		t.Errorf("composite module must keep its path string, got %q", subnet.ConfigPath)
	}
	if subnet.ResolvedPath != "sub.yaml" {
		t.Errorf("ResolvedPath = %q", subnet.ResolvedPath)
	}
	if !subnet.Params.IsNull() {
		t.Error("composite params must not be spliced")
	}
}

func TestFindReferences(t *testing.T) {
	f := &mapFetcher{files: map[string]string{
		"model.yaml": `
modules:
  input: [x]
  subnet:
    cls: ComposableModel
    inp_src: [x]
    config: config/sub.yaml
  conv:
    cls: Conv2d
    inp_src: [subnet]
    config: config/conv.yaml
  output: [conv]
`,
		"config/sub.yaml": `
modules:
  input: [a]
  inner:
    cls: Conv2d
    inp_src: [a]
    config: inner.yaml
  output: [inner]
`,
		"config/conv.yaml":  "kernel: 3\n",
		"config/inner.yaml": "kernel: 1\n",
	}}

	found, missing, err := FindReferences(context.Background(), f, "model.yaml")
	if err != nil {
		t.Fatalf("FindReferences: %v", err)
	}

	wantFound := map[string]bool{
		"config/sub.yaml":   true,
		"config/conv.yaml":  true,
		"config/inner.yaml": true,
	}
	if len(found) != len(wantFound) {
		t.Fatalf("found = %v", found)
	}
	for _, p := range found {
		if !wantFound[p] {
			t.Errorf("unexpected reference %q", p)
		}
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

func TestFindReferencesReportsMissing(t *testing.T) {
	f := &mapFetcher{files: map[string]string{
		"model.yaml": `
modules:
  input: [x]
  subnet:
    cls: ComposableModel
    inp_src: [x]
    config: gone.yaml
  output: [subnet]
`,
	}}

	found, missing, err := FindReferences(context.Background(), f, "model.yaml")
	if err != nil {
		t.Fatalf("FindReferences: %v", err)
	}
	if len(found) != 1 || found[0] != "gone.yaml" {
		t.Errorf("found = %v", found)
	}
	if len(missing) != 1 || missing[0] != "gone.yaml" {
		t.Errorf("missing = %v", missing)
	}
}
