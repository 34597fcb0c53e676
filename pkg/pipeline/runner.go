package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/fieldtrial/pkg/cache"
	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/field/geometry"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger; it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete generate → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	// Stage 1: Generate
	genStart := time.Now()
	result, tableHit, err := r.GenerateWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	result.Stats.GenerateTime = time.Since(genStart)
	result.CacheInfo.TableHit = tableHit

	r.Logger.Info("generated layout",
		"blocks", result.Stats.Blocks,
		"cells", result.Stats.Cells,
		"entries", result.Stats.Entries,
		"seed", result.Seed,
		"cached", tableHit,
		"duration", result.Stats.GenerateTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, result, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// cachedRun is the cached form of a generated table. The layout and the
// registry are recomputed from the options, which the cache key covers.
type cachedRun struct {
	Seed    uint64         `json:"seed"`
	Grid    arrange.Grid   `json:"grid"`
	Records []table.Record `json:"records"`
}

// GenerateWithCacheInfo generates the layout table with caching and returns
// cache hit info. Unseeded runs are never cached.
func (r *Runner) GenerateWithCacheInfo(ctx context.Context, opts Options) (*Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	if !opts.IsSeeded() {
		r.Logger.Debug("unseeded run, skipping table cache")
		res, err := Generate(ctx, opts)
		return res, false, err
	}

	configHash, err := opts.ConfigHash()
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.TableKey(configHash, cache.TableKeyOpts{Seed: *opts.Seed, Strategy: opts.Strategy})

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			res, err := resultFromCache(data, opts, configHash)
			if err == nil {
				return res, true, nil
			}
			r.Logger.Warn("discarding unreadable cache entry", "key", cacheKey, "error", err)
		}
	}

	res, err := Generate(ctx, opts)
	if err != nil {
		return nil, false, err
	}

	data, err := json.Marshal(cachedRun{Seed: res.Seed, Grid: res.Grid, Records: res.Table.Records})
	if err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLTable); err != nil {
			r.Logger.Warn("cache write failed", "key", cacheKey, "error", err)
		}
	}
	return res, false, nil
}

func resultFromCache(data []byte, opts Options, configHash string) (*Result, error) {
	var c cachedRun
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	layout, err := geometry.Compute(opts.Field)
	if err != nil {
		return nil, err
	}
	reg, err := opts.Registry()
	if err != nil {
		return nil, err
	}
	if len(c.Records) != layout.CellCount() {
		return nil, fmt.Errorf("cached table has %d records, layout has %d cells", len(c.Records), layout.CellCount())
	}
	tbl := table.New(c.Records)
	return &Result{
		ID:         uuid.New(),
		Name:       opts.Name,
		Seed:       c.Seed,
		Seeded:     true,
		ConfigHash: configHash,
		Layout:     layout,
		Registry:   reg,
		Grid:       c.Grid,
		Table:      tbl,
		Artifacts:  make(map[string][]byte),
		Stats:      tableStats(layout, tbl),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Generate is a convenience wrapper that calls GenerateWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Generate(ctx context.Context, opts Options) (*Result, error) {
	res, _, err := r.GenerateWithCacheInfo(ctx, opts)
	return res, err
}

// renderKey identifies everything a rendered artifact depends on besides
// its format options.
type renderKey struct {
	ConfigHash string         `json:"config"`
	Name       string         `json:"name"`
	Seed       uint64         `json:"seed"`
	Grid       arrange.Grid   `json:"grid"`
	Records    []table.Record `json:"records"`
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit
// info. Artifacts of unseeded runs are never cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, res *Result, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if res == nil || res.Table == nil || !res.Seeded {
		artifacts, err := Render(ctx, res, opts)
		return artifacts, false, err
	}

	hash, err := cache.HashJSON(renderKey{
		ConfigHash: res.ConfigHash,
		Name:       res.Name,
		Seed:       res.Seed,
		Grid:       res.Grid,
		Records:    res.Table.Records,
	})
	if err != nil {
		return nil, false, fmt.Errorf("hash table for cache key: %w", err)
	}

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	rendered, err := Render(ctx, res, opts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, res *Result, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, res, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
