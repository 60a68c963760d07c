// Package store provides raw-text fetching for configuration files.
//
// The configuration pipeline never touches the filesystem or the network
// directly; it goes through the [Fetcher] interface so the same resolution
// code serves CLI runs (plain files), HTTP uploads (rooted temp dirs), and
// remote fetches (URLs). Implementations must distinguish "the file does
// not exist" from other failures by returning [ErrNotFound]: drill-down
// error reporting depends on that distinction.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested path genuinely does not exist,
// as opposed to a transient or permission failure. Callers match it with
// errors.Is.
var ErrNotFound = errors.New("not found")

// Fetcher retrieves the raw text of a configuration file.
type Fetcher interface {
	// Fetch returns the contents at path. The path convention (OS path,
	// root-relative path, URL) is implementation-defined.
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, path string) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}
