package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/field/geo"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
)

// anchorCommand georeferences an existing layout CSV.
func (c *CLI) anchorCommand() *cobra.Command {
	var (
		dms           string
		block         string
		output        string
		feetPerDegree float64
	)

	cmd := &cobra.Command{
		Use:   "anchor [layout.csv]",
		Short: "Shift a layout so a block starts at a surveyed latitude",
		Long: `Shift a layout so a block starts at a surveyed latitude.

The latitude is given as degrees-minutes-seconds (e.g. 40-06-54) and converted
to feet. Every Y coordinate, and the plot bounds when present, moves by the
same amount so the anchor block's lowest edge lands on the latitude. X is not
changed. The anchor block defaults to the reference plot T0.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := table.ParseBlockName(block)
			if err != nil {
				return err
			}
			return c.runAnchor(args[0], dms, id, feetPerDegree, output)
		},
	}

	cmd.Flags().StringVar(&dms, "dms", "", "anchor latitude as DD-MM-SS (required)")
	cmd.Flags().StringVar(&block, "block", table.BlockName(table.AnchorBlock), "anchor block")
	cmd.Flags().Float64Var(&feetPerDegree, "feet-per-degree", geo.FeetPerDegreeLatitude, "feet per degree of latitude")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV (default: <input>.anchored.csv)")
	_ = cmd.MarkFlagRequired("dms")

	return cmd
}

func (c *CLI) runAnchor(input, dms string, block int, feetPerDegree float64, output string) error {
	tbl, err := table.ReadCSVFile(input)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", input, err)
	}
	d, err := geo.ParseDMS(dms)
	if err != nil {
		return err
	}
	offset, err := geo.Offset(tbl.Records, block, d, feetPerDegree)
	if err != nil {
		return err
	}
	shifted := table.New(geo.Shift(tbl.Records, offset))
	c.Logger.Debug("anchored", "dms", d.String(), "block", table.BlockName(block), "offset", offset)

	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".anchored.csv"
	}
	if err := table.WriteCSVFile(shifted, output); err != nil {
		return err
	}

	printSuccess("Anchored %s at %s", table.BlockName(block), d.String())
	printFile(output)
	printKeyValue("Offset", fmt.Sprintf("%.2f ft", offset))
	return nil
}
