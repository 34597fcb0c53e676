// Package store keeps a history of generated trial layouts.
//
// A [Run] records what was generated: the options it was generated from,
// the seed that reproduces it and the resulting table as CSV. Backends
// implement [Store]:
//   - memory: in-process storage for tests and single-shot servers
//   - sqlite: a local database for the CLI history
//   - mongo: a shared collection for multi-instance servers
//
// # Usage
//
//	run, err := store.FromResult(result, opts)
//	if err := s.SaveRun(ctx, run); err != nil {
//	    return err
//	}
//	recent, err := s.ListRuns(ctx, store.ListOptions{Limit: 10})
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// Run is one stored generation.
type Run struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name,omitempty" bson:"name,omitempty"`
	// Seed is kept as decimal text: seeds use the full uint64 range, which
	// not every backend stores natively.
	Seed       string `json:"seed" bson:"seed"`
	Seeded     bool   `json:"seeded" bson:"seeded"`
	Strategy   string `json:"strategy" bson:"strategy"`
	ConfigHash string `json:"config_hash" bson:"config_hash"`

	Blocks  int `json:"blocks" bson:"blocks"`
	Cells   int `json:"cells" bson:"cells"`
	Entries int `json:"entries" bson:"entries"`

	// Config is the options as JSON, Layout the table as CSV.
	Config string `json:"config,omitempty" bson:"config"`
	Layout string `json:"layout,omitempty" bson:"layout"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Limit caps the number of runs returned. Zero means DefaultListLimit.
	Limit int
	// Name keeps only runs with this trial name when set.
	Name string
}

// EffectiveLimit returns the limit to apply.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Store is the interface for run storage backends.
type Store interface {
	// SaveRun inserts or replaces a run by ID.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID. A missing run is a NOT_FOUND error.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns run summaries (see [Run.Summary]) newest first.
	ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error)

	// DeleteRun removes a run. A missing run is a NOT_FOUND error.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// FromResult builds a run record from a pipeline result and the options it
// was generated from.
func FromResult(res *pipeline.Result, opts pipeline.Options) (*Run, error) {
	if res == nil || res.Table == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "run has no table")
	}
	var csv bytes.Buffer
	if err := table.WriteCSV(res.Table, &csv); err != nil {
		return nil, err
	}
	// Store the seed that reproduces the run even when none was requested.
	opts = opts.WithSeed(res.Seed)
	opts.Formats = nil
	cfg, err := json.Marshal(opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode run config")
	}
	return &Run{
		ID:         res.ID.String(),
		Name:       res.Name,
		Seed:       strconv.FormatUint(res.Seed, 10),
		Seeded:     res.Seeded,
		Strategy:   opts.Strategy,
		ConfigHash: res.ConfigHash,
		Blocks:     res.Stats.Blocks,
		Cells:      res.Stats.Cells,
		Entries:    res.Stats.Entries,
		Config:     string(cfg),
		Layout:     csv.String(),
		CreatedAt:  res.CreatedAt,
	}, nil
}

// Table decodes the stored layout.
func (r *Run) Table() (*table.Table, error) {
	return table.ReadCSV(bytes.NewReader([]byte(r.Layout)))
}

// Options decodes the stored options. They carry the run's seed, so
// executing them reproduces the run.
func (r *Run) Options() (pipeline.Options, error) {
	return pipeline.ParseJSON([]byte(r.Config))
}

// SeedValue parses the stored seed.
func (r *Run) SeedValue() (uint64, error) {
	v, err := strconv.ParseUint(r.Seed, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeParse, err, "run %s seed %q", r.ID, r.Seed)
	}
	return v, nil
}

// Summary returns a copy without the bulky config and layout fields.
func (r *Run) Summary() *Run {
	c := *r
	c.Config = ""
	c.Layout = ""
	return &c
}

// NotFound returns the NOT_FOUND error for a missing run.
func NotFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "run %s not found", id)
}
