package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/cache"
)

// cacheCommand groups the local cache subcommands.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local layout cache",
		Long: `Inspect or clear the local layout cache.

Seeded generate runs store their table and rendered artifacts under the cache
directory so repeating a run is instant. Unseeded runs are never cached.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show the number and size of cached entries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fc, err := openFileCache()
				if err != nil {
					return err
				}
				n, size, err := fc.Usage()
				if err != nil {
					return fmt.Errorf("read cache: %w", err)
				}
				printKeyValue("Directory", fc.Dir())
				printKeyValue("Entries", strconv.Itoa(n))
				printKeyValue("Size", humanize.Bytes(uint64(size)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached layout and artifact",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fc, err := openFileCache()
				if err != nil {
					return err
				}
				n, err := fc.Clear()
				if err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				if n == 0 {
					printInfo("Cache is already empty")
					return nil
				}
				printSuccess("Removed %s", plural(n, "cached entry", "cached entries"))
				c.Logger.Debug("cleared cache", "dir", fc.Dir())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := cacheDir()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), dir)
				return err
			},
		},
	)
	return cmd
}

func openFileCache() (*cache.FileCache, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, fmt.Errorf("locate cache: %w", err)
	}
	return cache.NewFileCache(dir)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
