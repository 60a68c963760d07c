package preset

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

// FSStore serves presets from a filesystem tree, typically the examples
// embedded in the binary. Each top-level directory is one preset; the
// preset's main file is "model.yaml", and an optional "README" first line
// becomes the description.
type FSStore struct {
	fsys fs.FS
}

// MainFileName is the entry configuration every preset directory carries.
const MainFileName = "model.yaml"

// NewFSStore creates a store over the given tree.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// List returns one preset per top-level directory containing a main file.
func (s *FSStore) List(ctx context.Context) ([]Preset, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, err
	}

	var out []Preset
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(s.fsys, path.Join(e.Name(), MainFileName)); err != nil {
			continue
		}
		out = append(out, Preset{
			Name:        e.Name(),
			Description: s.description(e.Name()),
			MainFile:    MainFileName,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get loads every file of the named preset directory.
func (s *FSStore) Get(ctx context.Context, name string) (*Preset, error) {
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		return nil, apperrors.New(apperrors.ErrCodePresetNotFound, "preset %q not found", name)
	}
	if _, err := fs.Stat(s.fsys, path.Join(name, MainFileName)); err != nil {
		return nil, apperrors.New(apperrors.ErrCodePresetNotFound, "preset %q not found", name)
	}

	p := &Preset{
		Name:        name,
		Description: s.description(name),
		MainFile:    MainFileName,
		Files:       make(map[string]string),
	}
	err := fs.WalkDir(s.fsys, name, func(fp string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(s.fsys, fp)
		if err != nil {
			return err
		}
		// File keys are relative to the preset directory, matching the
		// paths config references use.
		p.Files[strings.TrimPrefix(fp, name+"/")] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *FSStore) description(name string) string {
	data, err := fs.ReadFile(s.fsys, path.Join(name, "README"))
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	return strings.TrimSpace(first)
}

var _ Store = (*FSStore)(nil)
