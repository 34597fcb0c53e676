package pipeline

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/field/assign"
	"github.com/matzehuels/fieldtrial/pkg/field/geo"
	"github.com/matzehuels/fieldtrial/pkg/field/geometry"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
	"github.com/matzehuels/fieldtrial/pkg/field/rng"
	"github.com/matzehuels/fieldtrial/pkg/field/sampler"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/observability"
)

// Generate runs the generation stage without caching.
//
// All randomness flows from one generator seeded by opts.Seed (or a fresh
// seed): the arrangement is drawn first, then each typed block gets two new
// samplers, A then B, in block-ID order.
func Generate(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		r      *rand.Rand
		seed   uint64
		seeded = opts.IsSeeded()
	)
	if seeded {
		seed = *opts.Seed
		r = rng.New(seed)
	} else {
		r, seed = rng.Random()
	}

	observability.Pipeline().OnGenerateStart(ctx, opts.Strategy, opts.Field.Rows*opts.Field.Cols)
	res, err := generate(ctx, opts, r)
	if err == nil {
		res.Seed = seed
		res.Seeded = seeded
		res.Stats.GenerateTime = time.Since(start)
	}
	cells := 0
	if res != nil {
		cells = res.Stats.Cells
	}
	observability.Pipeline().OnGenerateComplete(ctx, opts.Strategy, cells, time.Since(start), err)
	return res, err
}

func generate(ctx context.Context, opts Options, r *rand.Rand) (*Result, error) {
	reg, err := opts.Registry()
	if err != nil {
		return nil, err
	}
	layout, err := geometry.Compute(opts.Field)
	if err != nil {
		return nil, err
	}
	strategy, err := opts.ArrangeStrategy(reg)
	if err != nil {
		return nil, err
	}

	grid, err := strategy.Select(opts.Field.Rows, opts.Field.Cols, reg.NumTypes(), r)
	if err != nil {
		var ex *errors.ExhaustionError
		if stderrors.As(err, &ex) {
			observability.Pipeline().OnArrangeExhausted(ctx, strategy.Name(), ex.Attempts)
		}
		return nil, err
	}
	opts.Logger.Debug("arranged subblock types", "strategy", strategy.Name(), "grid", grid.String())

	records := make([]table.Record, 0, layout.CellCount())
	for _, b := range layout.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := labelBlock(opts, reg, layout, grid, b, r)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	tbl := table.New(records).WithBounds(opts.Plot.Width, opts.Plot.Height)
	if opts.Anchor != nil {
		dms, err := geo.ParseDMS(opts.Anchor.DMS)
		if err != nil {
			return nil, err
		}
		block := opts.Anchor.Block
		if block == 0 {
			block = DefaultAnchorBlock
		}
		shifted, err := geo.Apply(tbl.Records, dms, block, opts.FeetPerDegree)
		if err != nil {
			return nil, err
		}
		tbl = table.New(shifted)
		opts.Logger.Debug("anchored layout", "dms", dms.String(), "block", table.BlockName(block))
	}

	hash, err := opts.ConfigHash()
	if err != nil {
		return nil, err
	}
	return &Result{
		ID:         uuid.New(),
		Name:       opts.Name,
		ConfigHash: hash,
		Layout:     layout,
		Registry:   reg,
		Grid:       grid,
		Table:      tbl,
		Artifacts:  make(map[string][]byte),
		Stats:      tableStats(layout, tbl),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func labelBlock(opts Options, reg *pool.Registry, layout *geometry.Layout, grid arrange.Grid, b geometry.Block, r *rand.Rand) ([]table.Record, error) {
	cells := layout.CellsOf(b.ID)
	typeIdx := grid.ForBlock(b.ID)
	if typeIdx == arrange.NoType {
		return assign.Unassigned(cells), nil
	}

	st, err := reg.Type(typeIdx)
	if err != nil {
		return nil, err
	}
	a, err := source(reg, st.A, r)
	if err != nil {
		return nil, err
	}
	bs, err := source(reg, st.B, r)
	if err != nil {
		return nil, err
	}
	return assign.Assign(cells, opts.ParityRule(b.ID), a, bs), nil
}

func source(reg *pool.Registry, name string, r *rand.Rand) (assign.Source, error) {
	p, err := reg.Pool(name)
	if err != nil {
		return assign.Source{}, err
	}
	s, err := sampler.New(p, r)
	if err != nil {
		return assign.Source{}, err
	}
	return assign.Source{Pool: name, Sampler: s}, nil
}

func tableStats(layout *geometry.Layout, tbl *table.Table) Stats {
	s := Stats{
		Blocks:  len(layout.Blocks),
		Cells:   tbl.Len(),
		Entries: len(tbl.Labels()),
	}
	for _, rec := range tbl.Records {
		if rec.IsAssigned() {
			s.Assigned++
		} else {
			s.Unassigned++
		}
	}
	return s
}
