package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/pipeline"
	"github.com/matzehuels/fieldtrial/pkg/store"
)

// historyCommand manages the local run history.
func (c *CLI) historyCommand() *cobra.Command {
	var opts store.ListOptions

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs",
		Long: `List past runs recorded by generate.

Each run keeps its options, its seed and its table, so it can be shown,
replayed into new artifacts or opened with 'fieldtrial view --run'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHistoryList(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", store.DefaultListLimit, "number of runs to list")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only runs of this trial")

	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyReplayCommand())
	cmd.AddCommand(c.historyRemoveCommand())
	cmd.AddCommand(c.historyPathCommand())

	return cmd
}

func (c *CLI) runHistoryList(ctx context.Context, opts store.ListOptions) error {
	hist, err := openHistory()
	if err != nil {
		return err
	}
	defer hist.Close()

	runs, err := hist.ListRuns(ctx, opts)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printInfo("No runs recorded yet")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		name := r.Name
		if name == "" {
			name = "-"
		}
		seed := r.Seed
		if !r.Seeded {
			seed += " (drawn)"
		}
		rows[i] = []string{
			shortID(r.ID),
			name,
			r.Strategy,
			seed,
			strconv.Itoa(r.Cells),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	fmt.Println(renderTable([]string{"Run", "Trial", "Strategy", "Seed", "Cells", "Created"}, rows))
	printDetail("%d runs in %s", len(runs), hist.Path())
	return nil
}

// historyShowCommand prints one run's summary and arrangement.
func (c *CLI) historyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a past run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := findRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := resultFromRun(run)
			if err != nil {
				return err
			}
			printKeyValue("Run", run.ID)
			printKeyValue("Trial", res.Title())
			printKeyValue("Strategy", run.Strategy)
			printKeyValue("Seed", run.Seed)
			printKeyValue("Created", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			printStats(res.Stats, false)
			fmt.Println(gridTable(res.Grid, res.Registry.Types()))
			return nil
		},
	}
}

// historyReplayCommand regenerates a run's artifacts from its stored options.
func (c *CLI) historyReplayCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		labels     bool
	)
	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Regenerate a past run's artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := findRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			opts, err := run.Options()
			if err != nil {
				return err
			}
			if f := parseFormats(formatsStr); len(f) > 0 {
				opts.Formats = f
			}
			opts.Labels = labels
			return c.runGenerate(cmd.Context(), opts, output, false, true)
		},
	}
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s) (default: csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: trial name)")
	cmd.Flags().BoolVar(&labels, "labels", false, "draw entry labels on the field map")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	return cmd
}

func (c *CLI) historyRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [run-id]",
		Aliases: []string{"delete"},
		Short:   "Delete a past run",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := findRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			hist, err := openHistory()
			if err != nil {
				return err
			}
			defer hist.Close()
			if err := hist.DeleteRun(cmd.Context(), run.ID); err != nil {
				return err
			}
			printSuccess("Deleted run %s", run.ID)
			return nil
		},
	}
}

func (c *CLI) historyPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the history database path",
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory()
			if err != nil {
				return err
			}
			defer hist.Close()
			fmt.Fprintln(cmd.OutOrStdout(), hist.Path())
			return nil
		},
	}
}

// findRun looks a run up by full ID or by a unique prefix of at least four
// characters, as printed by the list.
func findRun(ctx context.Context, id string) (*store.Run, error) {
	hist, err := openHistory()
	if err != nil {
		return nil, err
	}
	defer hist.Close()

	run, err := hist.GetRun(ctx, id)
	if err == nil || len(id) < 4 {
		return run, err
	}
	match, err := hist.FindByPrefix(ctx, id)
	if err != nil {
		return nil, err
	}
	return hist.GetRun(ctx, match)
}

func resultFromRun(run *store.Run) (*pipeline.Result, error) {
	opts, err := run.Options()
	if err != nil {
		return nil, err
	}
	tbl, err := run.Table()
	if err != nil {
		return nil, err
	}
	res, err := pipeline.FromTable(opts, tbl)
	if err != nil {
		return nil, err
	}
	res.Seeded = run.Seeded
	return res, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
