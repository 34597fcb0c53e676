package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
)

// renderCommand renders artifacts from an existing layout CSV.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		config     string
		formatsStr string
		output     string
		labels     bool
	)

	cmd := &cobra.Command{
		Use:   "render [layout.csv]",
		Short: "Render a layout CSV to field maps, fieldbooks and diagrams",
		Long: `Render a layout CSV to field maps, fieldbooks and diagrams.

The CSV is read as written by generate (or edited by hand). The trial file
supplies the field geometry and pools; the block arrangement is recovered from
the labels. Entries not in any pool are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(config)
			if err != nil {
				return err
			}
			opts.Formats = parseFormats(formatsStr)
			if len(opts.Formats) == 0 {
				opts.Formats = []string{pipeline.FormatSVG}
			}
			if labels {
				opts.Labels = true
			}
			return c.runRender(cmd.Context(), args[0], opts, output)
		},
	}

	cmd.Flags().StringVarP(&config, "config", "c", "", "trial file (default: ./trial.toml or the built-in trial)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, fieldbook, json, dot, adjacency")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: input without extension)")
	cmd.Flags().BoolVar(&labels, "labels", false, "draw entry labels on the field map")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string) error {
	prog := newProgress(c.Logger)
	tbl, err := table.ReadCSVFile(input)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", input, err)
	}
	opts.Logger = c.Logger
	res, err := pipeline.FromTable(opts, tbl)
	if err != nil {
		return err
	}
	c.Logger.Debug("inferred arrangement", "grid", res.Grid.String())

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", strings.Join(opts.Formats, ", ")))
	spinner.Start()
	artifacts, err := pipeline.Render(ctx, res, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input))
	}
	paths, err := writeArtifacts(artifacts, opts.Formats, basePath(output, ""))
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d artifacts", len(paths)))

	printSuccess("Rendered %s", input)
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats, false)
	return nil
}
