package preset

import (
	"context"
	"testing"
	"testing/fstest"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"simple/model.yaml":      {Data: []byte("modules:\n  input: [x]\n  output: [x]\n")},
		"simple/README":          {Data: []byte("A minimal pass-through model.\nMore detail here.\n")},
		"nested/model.yaml":      {Data: []byte("modules: {}\n")},
		"nested/parts/conv.yaml": {Data: []byte("kernel: 3\n")},
		"notes.txt":              {Data: []byte("not a preset")},
		"empty-dir/other.yaml":   {Data: []byte("no main file here")},
	}
}

func TestFSStoreList(t *testing.T) {
	s := NewFSStore(testFS())
	presets, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("got %d presets: %+v", len(presets), presets)
	}
	if presets[0].Name != "nested" || presets[1].Name != "simple" {
		t.Errorf("names = %s, %s", presets[0].Name, presets[1].Name)
	}
	if presets[1].Description != "A minimal pass-through model." {
		t.Errorf("description = %q", presets[1].Description)
	}
}

func TestFSStoreGet(t *testing.T) {
	s := NewFSStore(testFS())
	p, err := s.Get(context.Background(), "nested")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.MainFile != "model.yaml" {
		t.Errorf("main file = %q", p.MainFile)
	}
	if _, ok := p.Files["parts/conv.yaml"]; !ok {
		t.Errorf("files = %v", p.Files)
	}

	// The preset doubles as a fetchable configuration source.
	f := p.Fetcher()
	data, err := f.Fetch(context.Background(), "parts/conv.yaml")
	if err != nil || string(data) != "kernel: 3\n" {
		t.Errorf("Fetch = (%q, %v)", data, err)
	}
	if _, err := f.Fetch(context.Background(), "missing.yaml"); err == nil {
		t.Error("expected not found for missing preset file")
	}
}

func TestFSStoreGetMissing(t *testing.T) {
	s := NewFSStore(testFS())
	for _, name := range []string{"nope", "empty-dir", "../escape", "a/b"} {
		if _, err := s.Get(context.Background(), name); apperrors.GetCode(err) != apperrors.ErrCodePresetNotFound {
			t.Errorf("Get(%q) = %v", name, err)
		}
	}
}

type stubStore struct {
	presets []Preset
}

func (s *stubStore) List(context.Context) ([]Preset, error) { return s.presets, nil }

func (s *stubStore) Get(_ context.Context, name string) (*Preset, error) {
	for i := range s.presets {
		if s.presets[i].Name == name {
			return &s.presets[i], nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodePresetNotFound, "preset %q not found", name)
}

func TestMultiStore(t *testing.T) {
	first := &stubStore{presets: []Preset{{Name: "shared", Description: "from first"}}}
	second := &stubStore{presets: []Preset{
		{Name: "shared", Description: "from second"},
		{Name: "extra"},
	}}
	m := Multi{first, second}

	presets, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("got %d presets", len(presets))
	}
	// Sorted by name, and the first store wins the conflict.
	if presets[0].Name != "extra" || presets[1].Description != "from first" {
		t.Errorf("presets = %+v", presets)
	}

	p, err := m.Get(context.Background(), "extra")
	if err != nil || p.Name != "extra" {
		t.Errorf("Get extra = (%+v, %v)", p, err)
	}
	if _, err := m.Get(context.Background(), "absent"); apperrors.GetCode(err) != apperrors.ErrCodePresetNotFound {
		t.Errorf("Get absent = %v", err)
	}
}
