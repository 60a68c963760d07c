// Package nav drives drill-down navigation through nested model
// configurations. A Controller owns a linear history of rendered graph
// states: loading a root configuration starts the history, expanding a
// composite module pushes a new state, and back/forward moves along it.
//
// Expanded subgraphs are cached per (module, config file) pair so stepping
// into the same module twice does not refetch or relayout. The cache is
// dropped whenever a new root configuration is loaded.
package nav

import (
	"context"
	"errors"
	"io"
	"path"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/charmbracelet/log"

	"github.com/liuji1031/visualize-architecture/pkg/config"
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/graph"
	"github.com/liuji1031/visualize-architecture/pkg/graph/layout"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// DefaultCacheSize bounds how many expanded subgraphs are kept alive.
const DefaultCacheSize = 64

// State is one entry of the navigation history: a fully resolved
// configuration plus its laid-out graph.
type State struct {
	// Path is the configuration file this state was built from.
	Path string
	// NodeID is the composite module that was expanded to produce this
	// state; empty for the root state.
	NodeID string
	// NavPath is the fully qualified navigation path: the parent state's
	// NavPath plus "/" plus the expanded module's id. The root state's
	// NavPath is its config path. Composed when the state is pushed, so a
	// cached subgraph reached from a different parent gets the right path.
	NavPath string

	Config *config.Configuration
	Graph  *graph.Graph
}

type cacheKey struct {
	nodeID string
	path   string
}

// Controller serializes navigation over one configuration source. All
// methods are safe for concurrent use; fetching and layout run outside the
// lock, and a completion that lost the race to a newer request is discarded
// with ErrCodeSuperseded instead of clobbering the history.
type Controller struct {
	fetcher store.Fetcher
	logger  *log.Logger
	opts    layout.Options

	mu         sync.Mutex
	stack      []*State
	index      int
	cache      *lru.Cache[cacheKey, *State]
	generation uint64
	loading    bool
}

// New creates a Controller reading configuration files through fetcher.
// A nil logger disables warning output.
func New(fetcher store.Fetcher, logger *log.Logger, opts layout.Options) (*Controller, error) {
	cache, err := lru.New[cacheKey, *State](DefaultCacheSize)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "create navigation cache")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{
		fetcher: fetcher,
		logger:  logger,
		opts:    opts,
		cache:   cache,
	}, nil
}

// Current returns the state the history cursor points at, or nil before the
// first successful LoadRoot.
func (c *Controller) Current() *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[c.index]
}

// Depth returns the number of history entries.
func (c *Controller) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack)
}

// Loading reports whether a load or expansion is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LoadRoot builds the graph for the top-level configuration file and resets
// the history to it. The subgraph cache is invalidated, since cached
// expansions may belong to a different configuration tree. On failure the
// existing history and cache are left untouched.
func (c *Controller) LoadRoot(ctx context.Context, configPath string) (*State, error) {
	gen := c.begin()

	state, err := c.buildState(ctx, configPath, "")
	if err != nil {
		c.finish(gen)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return nil, apperrors.New(apperrors.ErrCodeSuperseded,
			"load of %s superseded by a newer request", configPath)
	}
	c.loading = false
	state.NavPath = configPath
	c.cache.Purge()
	c.stack = []*State{state}
	c.index = 0
	return state, nil
}

// Expand drills into the composite module nodeID of the current state. The
// resulting subgraph state is pushed onto the history, discarding any
// forward entries. If the module's configuration file does not exist the
// history is left exactly as it was and the error carries code
// CONFIG_FILE_NOT_FOUND.
func (c *Controller) Expand(ctx context.Context, nodeID string) (*State, error) {
	c.mu.Lock()
	if len(c.stack) == 0 {
		c.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no configuration loaded")
	}
	curr := c.stack[c.index]
	c.mu.Unlock()

	mod := curr.Config.Module(nodeID)
	if mod == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "module %q not found", nodeID)
	}
	if !mod.Composite() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
			"module %q is not composable", nodeID)
	}
	subPath := mod.ResolvedPath
	if subPath == "" {
		subPath = mod.ConfigPath
	}

	key := cacheKey{nodeID: nodeID, path: subPath}
	gen := c.begin()

	c.mu.Lock()
	state, hit := c.cache.Get(key)
	c.mu.Unlock()

	if !hit {
		var err error
		state, err = c.buildState(ctx, subPath, nodeID)
		if err != nil {
			c.finish(gen)
			return nil, err
		}
		c.placeNextTo(state, curr.Graph.Node(nodeID))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return nil, apperrors.New(apperrors.ErrCodeSuperseded,
			"expansion of %s superseded by a newer request", nodeID)
	}
	c.loading = false
	c.cache.Add(key, state)
	// The history entry is a shallow copy so the cached state stays free
	// of any particular parent's navigation path.
	entry := *state
	entry.NavPath = curr.NavPath + "/" + nodeID
	c.stack = append(c.stack[:c.index+1], &entry)
	c.index = len(c.stack) - 1
	return &entry, nil
}

// Back moves the cursor one entry toward the root and returns the state
// there. At the root it returns the root state unchanged.
func (c *Controller) Back() (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no configuration loaded")
	}
	if c.index > 0 {
		c.index--
	}
	return c.stack[c.index], nil
}

// Forward re-enters the next history entry after a Back. At the newest
// entry it returns that state unchanged.
func (c *Controller) Forward() (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no configuration loaded")
	}
	if c.index < len(c.stack)-1 {
		c.index++
	}
	return c.stack[c.index], nil
}

// ResetFit returns the current state without touching the history or the
// cache. It is the non-mutating "fit view" transition: callers re-fit
// their viewport to the current graph's bounds and nothing else changes.
func (c *Controller) ResetFit() *State {
	return c.Current()
}

// begin registers a new mutation attempt and returns its generation tag.
func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.loading = true
	return c.generation
}

// finish clears the loading flag if no newer request has taken over.
func (c *Controller) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen {
		c.loading = false
	}
}

// buildState runs the full pipeline for one configuration file: fetch,
// parse, interpolate, validate, resolve module references, build the graph
// and lay it out.
func (c *Controller) buildState(ctx context.Context, configPath, nodeID string) (*State, error) {
	raw, err := c.fetcher.Fetch(ctx, configPath)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &apperrors.NotFoundError{Path: configPath, Module: nodeID}
		}
		return nil, err
	}

	root, err := config.ParseBytes(raw)
	if err != nil {
		return nil, err
	}
	// Interpolation failures degrade to a best-effort render of the raw
	// values rather than refusing to show the subgraph.
	resolved, err := config.Resolve(root, root)
	if err != nil {
		c.logger.Warn("interpolation failed, rendering unresolved values",
			"path", configPath, "err", err)
		resolved = root
	}
	cfg, err := config.FromValue(resolved)
	if err != nil {
		return nil, err
	}
	cfg, err = config.ResolveReferences(ctx, cfg, path.Dir(configPath), c.fetcher, c.logger)
	if err != nil {
		return nil, err
	}

	g, err := graph.Build(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := layout.Apply(g, c.opts); err != nil {
		return nil, err
	}

	return &State{Path: configPath, NodeID: nodeID, Config: cfg, Graph: g}, nil
}

// placeNextTo shifts a freshly laid-out subgraph so it opens beside its
// parent node instead of on top of the parent graph.
func (c *Controller) placeNextTo(state *State, parent *graph.Node) {
	if parent == nil {
		return
	}
	minX, minY, _, maxY := state.Graph.Bounds()
	dx := parent.X + parent.Width/2 + c.opts.NodeGap - minX
	dy := parent.Y - (minY+maxY)/2
	state.Graph.Offset(dx, dy)
}
