// Package pipeline runs the full configuration-to-layout flow used by the
// CLI and the HTTP server: fetch the file, resolve interpolations and
// config references, build the graph, and lay it out.
//
// A Runner caches the two expensive stages. The built graph is keyed by
// the raw file content, computed positions by the graph plus every layout
// option that affects them. Both entry points share one Runner so caching
// behavior never diverges between them.
package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/liuji1031/visualize-architecture/pkg/cache"
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/graph/layout"
)

// Options configures one pipeline run. The struct serializes to JSON so
// API requests can carry it directly.
type Options struct {
	// Source is the configuration file to visualize, relative to the
	// runner's fetcher root.
	Source string `json:"source"`

	// Layout options. Zero values take the defaults.
	Orientation string  `json:"orientation,omitempty"` // "TB" or "LR"
	NodeWidth   float64 `json:"node_width,omitempty"`
	NodeHeight  float64 `json:"node_height,omitempty"`
	RankGap     float64 `json:"rank_gap,omitempty"`
	NodeGap     float64 `json:"node_gap,omitempty"`

	// Refresh bypasses the graph cache and rebuilds from the source file.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options, not serialized.
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks required fields and fills in defaults.
// Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Source == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "source is required")
	}
	switch o.Orientation {
	case "", "TB", "LR":
	default:
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid orientation: %q (must be TB or LR)", o.Orientation)
	}

	def := layout.DefaultOptions()
	if o.Orientation == "" {
		o.Orientation = def.Orientation.String()
	}
	if o.NodeWidth == 0 {
		o.NodeWidth = def.NodeWidth
	}
	if o.NodeHeight == 0 {
		o.NodeHeight = def.NodeHeight
	}
	if o.RankGap == 0 {
		o.RankGap = def.RankGap
	}
	if o.NodeGap == 0 {
		o.NodeGap = def.NodeGap
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	o.validated = true
	return nil
}

// LayoutOptions converts the serializable options into engine options.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		Orientation: layout.ParseOrientation(o.Orientation),
		NodeWidth:   o.NodeWidth,
		NodeHeight:  o.NodeHeight,
		RankGap:     o.RankGap,
		NodeGap:     o.NodeGap,
		Sweeps:      layout.DefaultOptions().Sweeps,
	}
}

// LayoutKeyOpts returns the cache key options for the layout stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Orientation: o.Orientation,
		NodeWidth:   o.NodeWidth,
		NodeHeight:  o.NodeHeight,
		RankGap:     o.RankGap,
		NodeGap:     o.NodeGap,
	}
}
