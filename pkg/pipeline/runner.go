package pipeline

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/charmbracelet/log"

	"github.com/liuji1031/visualize-architecture/pkg/cache"
	"github.com/liuji1031/visualize-architecture/pkg/config"
	"github.com/liuji1031/visualize-architecture/pkg/graph"
	"github.com/liuji1031/visualize-architecture/pkg/graph/layout"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// Runner executes the pipeline with caching. It is stateless apart from
// its collaborators, so one Runner can serve concurrent requests.
type Runner struct {
	Fetcher store.Fetcher
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses the default, and a nil logger uses the package default.
func NewRunner(fetcher store.Fetcher, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Fetcher: fetcher, Cache: c, Keyer: keyer, Logger: logger}
}

// Result holds the outputs of one pipeline run.
type Result struct {
	// Config is the resolved configuration. Nil when the graph stage was
	// served from cache, since the cache stores only the built graph.
	Config *config.Configuration

	// Graph is the laid-out graph.
	Graph *graph.Graph

	// GraphHash is the content hash of the built graph, usable as an ETag.
	GraphHash string

	// Ranks maps node ids to their layer.
	Ranks map[string]int

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline timing and size information.
type Stats struct {
	NodeCount int
	EdgeCount int

	BuildTime  time.Duration
	LayoutTime time.Duration
}

// CacheInfo tracks which stages were served from cache.
type CacheInfo struct {
	GraphHit  bool
	LayoutHit bool
}

// Execute runs build and layout with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	result := &Result{}

	buildStart := time.Now()
	g, cfg, graphHit, err := r.BuildGraphWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Config = cfg
	result.CacheInfo.GraphHit = graphHit
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.EdgeCount = len(g.Edges)

	logger.Info("built graph",
		"source", opts.Source,
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"cached", graphHit,
		"duration", result.Stats.BuildTime)

	layoutStart := time.Now()
	ranks, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	result.Ranks = ranks
	result.CacheInfo.LayoutHit = layoutHit
	result.Stats.LayoutTime = time.Since(layoutStart)

	if data, err := graph.Marshal(g); err == nil {
		result.GraphHash = cache.Hash(data)
	}

	logger.Info("computed layout",
		"orientation", opts.Orientation,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	return result, nil
}

// BuildGraphWithCacheInfo fetches and resolves the source configuration
// and builds its graph, reporting whether the graph came from cache. The
// returned Configuration is nil on a cache hit.
func (r *Runner) BuildGraphWithCacheInfo(ctx context.Context, opts Options) (*graph.Graph, *config.Configuration, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, nil, false, err
	}

	raw, err := r.Fetcher.Fetch(ctx, opts.Source)
	if err != nil {
		return nil, nil, false, err
	}
	key := r.Keyer.GraphKey(cache.Hash(raw))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if g, err := graph.Unmarshal(data); err == nil {
				return g, nil, true, nil
			}
		}
	}

	root, err := config.ParseBytes(raw)
	if err != nil {
		return nil, nil, false, err
	}
	// Interpolation failures degrade to a best-effort render of the raw
	// values rather than refusing the whole graph.
	resolved, err := config.Resolve(root, root)
	if err != nil {
		opts.Logger.Warn("interpolation failed, rendering unresolved values",
			"source", opts.Source, "err", err)
		resolved = root
	}
	cfg, err := config.FromValue(resolved)
	if err != nil {
		return nil, nil, false, err
	}
	cfg, err = config.ResolveReferences(ctx, cfg, path.Dir(opts.Source), r.Fetcher, opts.Logger)
	if err != nil {
		return nil, nil, false, err
	}
	g, err := graph.Build(cfg)
	if err != nil {
		return nil, nil, false, err
	}

	if data, err := graph.Marshal(g); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.GraphTTL)
	}
	return g, cfg, false, nil
}

// BuildGraph is a convenience wrapper that discards the cache hit info.
func (r *Runner) BuildGraph(ctx context.Context, opts Options) (*graph.Graph, *config.Configuration, error) {
	g, cfg, _, err := r.BuildGraphWithCacheInfo(ctx, opts)
	return g, cfg, err
}

// layoutPayload is the cached form of a computed layout: node positions
// and sizes plus the rank assignment, keyed by node id.
type layoutPayload struct {
	Ranks     map[string]int        `json:"ranks"`
	Positions map[string][4]float64 `json:"positions"` // x, y, width, height
}

// ComputeLayoutWithCacheInfo positions the nodes of g in place, reporting
// whether the positions were restored from cache.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (map[string]int, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	graphData, err := graph.Marshal(g)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.LayoutKey(cache.Hash(graphData), opts.LayoutKeyOpts())

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var payload layoutPayload
		if err := json.Unmarshal(data, &payload); err == nil && applyPayload(g, payload) {
			return payload.Ranks, true, nil
		}
		// Corrupt or incomplete entry, recompute below.
	}

	ranks, err := layout.Apply(g, opts.LayoutOptions())
	if err != nil {
		return nil, false, err
	}

	payload := layoutPayload{Ranks: ranks, Positions: make(map[string][4]float64, len(g.Nodes))}
	for _, n := range g.Nodes {
		payload.Positions[n.ID] = [4]float64{n.X, n.Y, n.Width, n.Height}
	}
	if data, err := json.Marshal(payload); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.LayoutTTL)
	}
	return ranks, false, nil
}

// applyPayload copies cached positions onto g. It refuses payloads that do
// not cover every node, so a stale entry never half-positions a graph.
func applyPayload(g *graph.Graph, payload layoutPayload) bool {
	for _, n := range g.Nodes {
		if _, ok := payload.Positions[n.ID]; !ok {
			return false
		}
	}
	for _, n := range g.Nodes {
		p := payload.Positions[n.ID]
		n.X, n.Y, n.Width, n.Height = p[0], p[1], p[2], p[3]
	}
	return true
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
