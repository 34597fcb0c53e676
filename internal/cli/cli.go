package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldtrial/pkg/buildinfo"
	"github.com/matzehuels/fieldtrial/pkg/cache"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
	"github.com/matzehuels/fieldtrial/pkg/store/sqlite"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "fieldtrial"

	// defaultConfig is the trial file read when no path is given.
	defaultConfig = "trial.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Fieldtrial generates randomized field trial layouts",
		Long: `Fieldtrial partitions a trial field into blocks and cells, arranges
subblock types so that neighboring blocks differ, labels every cell from the
entry pools and writes the layout as CSV, field maps and fieldbooks.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.initCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.arrangeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.anchorCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// openHistory opens the local run history database.
func openHistory() (*sqlite.Store, error) {
	path, err := sqlite.DefaultPath()
	if err != nil {
		return nil, err
	}
	return sqlite.Open(path)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/fieldtrial/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// loadOptions reads the trial file at path. A missing default trial file is
// not an error: the built-in trial is used instead.
func loadOptions(path string) (pipeline.Options, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfig
	}
	if _, err := os.Stat(path); err != nil && !explicit && os.IsNotExist(err) {
		return pipeline.Options{}, nil
	}
	return pipeline.LoadConfig(path)
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// formatExt returns the file extension written for a format.
func formatExt(format string) string {
	switch format {
	case pipeline.FormatFieldbook:
		return ".fieldbook.pdf"
	case pipeline.FormatAdjacency:
		return ".adjacency.svg"
	default:
		return "." + format
	}
}

// basePath derives the base output path from the output flag and the trial
// name. Known format extensions are stripped from output.
func basePath(output, name string) string {
	if output == "" {
		if name == "" {
			return "layout"
		}
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
	}
	longest := ""
	for _, f := range pipeline.FormatNames() {
		if ext := formatExt(f); strings.HasSuffix(output, ext) && len(ext) > len(longest) {
			longest = ext
		}
	}
	return strings.TrimSuffix(output, longest)
}
