package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/pipeline"
)

// initCommand creates the init command that writes a starter trial file.
func (c *CLI) initCommand() *cobra.Command {
	var (
		force bool
		name  string
	)

	cmd := &cobra.Command{
		Use:   "init [trial.toml]",
		Short: "Write a trial file with the default field, pools and types",
		Long: `Write a trial file with the default field, pools and subblock types.

The file holds every option generate understands, filled with the built-in
defaults, so it is a starting point for a new trial.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfig
			if len(args) == 1 {
				path = args[0]
			}
			return c.runInit(path, name, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&name, "name", "", "trial name")

	return cmd
}

func (c *CLI) runInit(path, name string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	opts := pipeline.Options{Name: name}
	opts.SetDefaults()
	data, err := pipeline.EncodeTOML(opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	c.Logger.Debug("wrote trial file", "path", path, "bytes", len(data))

	printSuccess("Created trial file")
	printFile(path)
	printNewline()
	printNextStep("Generate", "fieldtrial generate "+path)
	return nil
}
