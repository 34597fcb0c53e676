// Package cli implements the fieldtrial command-line interface.
//
// The CLI is built using cobra and logs through charmbracelet/log. Commands
// share one pipeline runner factory, the local file cache and the sqlite run
// history.
//
// # Commands
//
//   - init: write a trial file with the built-in defaults
//   - generate: generate a layout and write its artifacts
//   - arrange: preview the block arrangement only
//   - render: render a layout CSV to maps, fieldbooks and diagrams
//   - anchor: georeference a layout CSV to a surveyed latitude
//   - view: browse a layout block by block in the terminal
//   - history: list, show, replay and delete past runs
//   - cache: manage the local cache
//   - serve: run the HTTP API
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Wrote 3 artifacts (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
