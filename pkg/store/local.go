package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OS is a Fetcher that reads plain filesystem paths as-is. Used by the CLI
// where the user names files directly.
type OS struct{}

// Fetch reads the file at path.
func (OS) Fetch(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Dir is a Fetcher rooted at a directory, used for uploaded folder
// structures. All paths are interpreted relative to the root; absolute
// paths and traversal outside the root are rejected as not found, so an
// uploaded configuration cannot read arbitrary files on the host.
type Dir struct {
	root string
}

// NewDir creates a Fetcher rooted at dir.
func NewDir(dir string) *Dir {
	return &Dir{root: filepath.Clean(dir)}
}

// Root returns the root directory.
func (d *Dir) Root() string { return d.root }

// Fetch reads the file at the root-relative path.
func (d *Dir) Fetch(_ context.Context, path string) ([]byte, error) {
	resolved, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// resolve maps a root-relative path to an absolute one, rejecting escapes.
func (d *Dir) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute path %s not allowed: %w", path, ErrNotFound)
	}
	full := filepath.Clean(filepath.Join(d.root, path))
	if full != d.root && !strings.HasPrefix(full, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes upload root: %w", path, ErrNotFound)
	}
	return full, nil
}
