package cli

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
	"github.com/matzehuels/fieldtrial/pkg/field/rng"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
)

// arrangeCommand previews the block arrangement without labeling cells.
func (c *CLI) arrangeCommand() *cobra.Command {
	var trial trialFlags

	cmd := &cobra.Command{
		Use:   "arrange [trial.toml]",
		Short: "Preview the subblock type arrangement",
		Long: `Preview the subblock type arrangement.

Draws only the block grid, the first thing generate does with its seed, and
prints it top row first as it lies on the field. The same seed gives the same
arrangement in generate.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			opts, err := loadOptions(path)
			if err != nil {
				return err
			}
			if err := trial.apply(cmd, &opts); err != nil {
				return err
			}
			return c.runArrange(opts)
		},
	}
	trial.register(cmd)
	return cmd
}

func (c *CLI) runArrange(opts pipeline.Options) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	reg, err := opts.Registry()
	if err != nil {
		return err
	}
	strategy, err := opts.ArrangeStrategy(reg)
	if err != nil {
		return err
	}

	var (
		r    *rand.Rand
		seed uint64
	)
	if opts.IsSeeded() {
		seed = *opts.Seed
		r = rng.New(seed)
	} else {
		r, seed = rng.Random()
	}

	grid, err := strategy.Select(opts.Field.Rows, opts.Field.Cols, reg.NumTypes(), r)
	if err != nil {
		return err
	}
	c.Logger.Debug("arranged", "strategy", strategy.Name(), "seed", seed)

	fmt.Println(StyleTitle.Render("Block arrangement"))
	fmt.Println(gridTable(grid, reg.Types()))
	if conflicts := arrange.Conflicts(grid); len(conflicts) > 0 {
		printWarning("%d blocks share a type with a neighbor", len(conflicts))
	} else {
		printSuccess("No adjacent blocks share a type")
	}
	printKeyValue("Strategy", strategy.Name())
	printKeyValue("Seed", fmt.Sprint(seed))
	return nil
}

// gridTable draws the arrangement top row first, one cell per block, with
// conflicting blocks highlighted.
func gridTable(grid arrange.Grid, types []pool.SubblockType) string {
	conflict := make(map[[2]int]bool)
	for _, p := range arrange.Conflicts(grid) {
		conflict[p] = true
	}

	headers := make([]string, grid.Cols())
	for j := range headers {
		headers[j] = fmt.Sprintf("col %d", j+1)
	}
	var rows [][]string
	for i := grid.Rows() - 1; i >= 0; i-- {
		row := make([]string, grid.Cols())
		for j, v := range grid[i] {
			id := i*grid.Cols() + j + 1
			name, color := "unassigned", ""
			if v != arrange.NoType && v < len(types) {
				name, color = types[v].Name, types[v].Color
			}
			cell := table.BlockName(id) + " " + name
			if conflict[[2]int{i, j}] {
				cell = StyleConflict.Render(cell)
			} else {
				cell = swatch(color, cell)
			}
			row[j] = cell
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows)
}
