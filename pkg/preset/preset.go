// Package preset manages ready-made example models that users can open
// without uploading anything. Presets come from two places: the examples
// bundled with the binary, and an optional shared MongoDB collection for
// teams that publish their own models.
package preset

import (
	"context"
	"sort"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// Preset is one example model: a main configuration file plus the sibling
// files its config references point at.
type Preset struct {
	Name        string            `json:"name" bson:"name"`
	Description string            `json:"description,omitempty" bson:"description,omitempty"`
	MainFile    string            `json:"main_file" bson:"main_file"`
	Files       map[string]string `json:"files" bson:"files"`
}

// Fetcher exposes a preset's files as a configuration source, so the
// pipeline and navigation controller run on presets exactly as they do on
// uploads.
func (p *Preset) Fetcher() store.Fetcher {
	return store.FetcherFunc(func(_ context.Context, path string) ([]byte, error) {
		content, ok := p.Files[path]
		if !ok {
			return nil, store.ErrNotFound
		}
		return []byte(content), nil
	})
}

// Store lists and retrieves presets.
type Store interface {
	// List returns all preset names and descriptions, without file bodies.
	List(ctx context.Context) ([]Preset, error)
	// Get returns the full preset by name.
	Get(ctx context.Context, name string) (*Preset, error)
}

// Multi merges several stores; earlier stores win name conflicts.
type Multi []Store

// List returns the merged listing, sorted by name.
func (m Multi) List(ctx context.Context) ([]Preset, error) {
	seen := make(map[string]bool)
	var out []Preset
	for _, s := range m {
		presets, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range presets {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the first store's match.
func (m Multi) Get(ctx context.Context, name string) (*Preset, error) {
	for _, s := range m {
		p, err := s.Get(ctx, name)
		if err == nil {
			return p, nil
		}
		if apperrors.GetCode(err) != apperrors.ErrCodePresetNotFound {
			return nil, err
		}
	}
	return nil, apperrors.New(apperrors.ErrCodePresetNotFound, "preset %q not found", name)
}

var _ Store = Multi(nil)
