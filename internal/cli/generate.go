package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/field/geo"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
	"github.com/matzehuels/fieldtrial/pkg/store"
)

// trialFlags are the trial overrides shared by generate and arrange.
type trialFlags struct {
	seed        uint64
	strategy    string
	parity      string
	maxAttempts int
	anchor      string
	anchorBlock string
}

func (f *trialFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed (default: draw a fresh seed)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "arrangement strategy: rejection (default), row-pattern, fixed, none")
	cmd.Flags().StringVar(&f.parity, "parity", "", "A/B role rule: checkerboard (default), alternating")
	cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 0, "rejection sampling attempt limit")
	cmd.Flags().StringVar(&f.anchor, "anchor", "", "anchor latitude as DD-MM-SS")
	cmd.Flags().StringVar(&f.anchorBlock, "anchor-block", "", "block pinned to the anchor latitude (default: B1)")
	_ = cmd.RegisterFlagCompletionFunc("strategy", completeStrategies)
}

// apply overrides opts with the flags the user set.
func (f *trialFlags) apply(cmd *cobra.Command, opts *pipeline.Options) error {
	if cmd.Flags().Changed("seed") {
		*opts = opts.WithSeed(f.seed)
	}
	if f.strategy != "" {
		opts.Strategy = f.strategy
	}
	if f.parity != "" {
		opts.Parity = f.parity
	}
	if f.maxAttempts != 0 {
		opts.MaxAttempts = f.maxAttempts
	}
	if f.anchor != "" {
		opts.Anchor = &geo.Anchor{DMS: f.anchor}
	}
	if f.anchorBlock != "" {
		if opts.Anchor == nil {
			return fmt.Errorf("--anchor-block needs --anchor or an [anchor] table in the trial file")
		}
		id, err := table.ParseBlockName(f.anchorBlock)
		if err != nil {
			return err
		}
		opts.Anchor.Block = id
	}
	return nil
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		trial      trialFlags
		formatsStr string
		output     string
		labels     bool
		noCache    bool
		refresh    bool
		noHistory  bool
	)

	cmd := &cobra.Command{
		Use:   "generate [trial.toml]",
		Short: "Generate a trial layout and write its artifacts",
		Long: `Generate a trial layout and write its artifacts.

The trial file (default: ./trial.toml, or the built-in trial when absent)
describes the field, the entry pools and the subblock types. Flags override
the file.

Seeded runs are reproducible and cached locally. Without --seed a fresh seed
is drawn and printed so the run can be repeated. Every run is recorded in the
local history unless --no-history is given.`,
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
			if f := parseFormats(formatsStr); len(f) > 0 {
				opts.Formats = f
			}
			if labels {
				opts.Labels = true
			}
			opts.Refresh = refresh
			return c.runGenerate(cmd.Context(), opts, output, noCache, noHistory)
		},
	}

	trial.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: trial name)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): csv (default), json, svg, png, pdf, fieldbook, dot, adjacency")
	cmd.Flags().BoolVar(&labels, "labels", false, "draw entry labels on the field map")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "regenerate even when cached")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, opts pipeline.Options, output string, noCache, noHistory bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Generating layout...")
	spinner.Start()
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(res.Artifacts, opts.Formats, basePath(output, opts.Name))
	if err != nil {
		return err
	}

	if !noHistory {
		c.recordRun(ctx, res, opts)
	}

	printSuccess("Generated %s", res.Title())
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats, res.CacheInfo.TableHit)
	printKeyValue("Seed", strconv.FormatUint(res.Seed, 10))
	printKeyValue("Run", res.ID.String())
	if !res.Seeded {
		printNewline()
		printNextStep("Reproduce", fmt.Sprintf("fieldtrial generate --seed %d", res.Seed))
	}
	return nil
}

// recordRun saves a run to the local history. Failures are logged, not
// returned: the artifacts are already written.
func (c *CLI) recordRun(ctx context.Context, res *pipeline.Result, opts pipeline.Options) {
	hist, err := openHistory()
	if err != nil {
		c.Logger.Warn("history unavailable", "error", err)
		return
	}
	defer hist.Close()

	run, err := store.FromResult(res, opts)
	if err == nil {
		err = hist.SaveRun(ctx, run)
	}
	if err != nil {
		c.Logger.Warn("could not record run", "error", err)
		return
	}
	c.Logger.Debug("recorded run", "id", run.ID, "db", hist.Path())
}

// writeArtifacts writes each format to base plus its extension and returns
// the paths in format order.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		data, ok := artifacts[f]
		if !ok {
			return nil, fmt.Errorf("no %s artifact rendered", f)
		}
		path := base + formatExt(f)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
