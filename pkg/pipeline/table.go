package pipeline

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/field/geometry"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
)

// FromTable wraps an existing table, typically read back from CSV, in a
// result that can be rendered. The layout and registry come from opts; the
// block arrangement is inferred from the labels.
func FromTable(opts Options, tbl *table.Table) (*Result, error) {
	if tbl == nil || tbl.Len() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "table is empty")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
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
	grid, err := InferGrid(layout, reg, tbl)
	if err != nil {
		return nil, err
	}
	hash, err := opts.ConfigHash()
	if err != nil {
		return nil, err
	}

	res := &Result{
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
	}
	if opts.Seed != nil {
		res.Seed, res.Seeded = *opts.Seed, true
	}
	return res, nil
}

// InferGrid recovers the subblock type of each block from its labels. A
// block gets the first type whose A and B pools hold every label in it,
// preferring types that both pools actually contribute to. Blocks with no
// assigned labels, or labels no single type explains, get NoType. A label
// outside every pool is an UNKNOWN_LABEL error.
func InferGrid(layout *geometry.Layout, reg *pool.Registry, tbl *table.Table) (arrange.Grid, error) {
	grid := arrange.NewGrid(layout.Spec.Rows, layout.Spec.Cols)
	types := reg.Types()

	for _, b := range layout.Blocks {
		var pools [][]string
		for _, rec := range tbl.ByBlock(b.ID) {
			if !rec.IsAssigned() {
				continue
			}
			members, err := reg.Lookup(rec.Label)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(members))
			for i, m := range members {
				names[i] = m.Pool
			}
			pools = append(pools, names)
		}
		if len(pools) == 0 {
			continue
		}

		fallback := arrange.NoType
		for i, t := range types {
			fits, usesA, usesB := true, false, false
			for _, names := range pools {
				inA, inB := slices.Contains(names, t.A), slices.Contains(names, t.B)
				if !inA && !inB {
					fits = false
					break
				}
				usesA = usesA || inA
				usesB = usesB || inB
			}
			if !fits {
				continue
			}
			if usesA && usesB {
				fallback = i
				break
			}
			if fallback == arrange.NoType {
				fallback = i
			}
		}
		grid[b.Row][b.Col] = fallback
	}
	return grid, nil
}
