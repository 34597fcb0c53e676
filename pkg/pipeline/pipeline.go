// Package pipeline runs the trial layout pipeline shared by the CLI and the
// HTTP server.
//
// A run has two stages:
//
//  1. Generate: partition the field, arrange subblock types on the block
//     grid, label every cell from its block's pools and georeference the
//     resulting table.
//  2. Render: turn the table into artifacts (CSV, JSON, field map SVG/PDF/PNG,
//     fieldbook PDF, adjacency diagram).
//
// Seeded runs are reproducible and cached by configuration hash; unseeded
// runs draw a fresh seed, report it in the result and are never cached.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts, err := pipeline.LoadConfig("trial.toml")
//	opts.Formats = []string{"csv", "svg"}
//	result, err := runner.Execute(ctx, opts)
//	csv := result.Artifacts["csv"]
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/fieldtrial/pkg/cache"
	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/field/assign"
	"github.com/matzehuels/fieldtrial/pkg/field/geo"
	"github.com/matzehuels/fieldtrial/pkg/field/geometry"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
)

// Defaults shared by the CLI, the server and config files.
const (
	DefaultStrategy = "rejection"
	DefaultParity   = ParityCheckerboard

	// DefaultPlotWidth and DefaultPlotHeight are the planted plot size in feet.
	DefaultPlotWidth  = 3.3
	DefaultPlotHeight = 10.0

	// DefaultAnchorBlock is the block whose lowest plot edge is pinned to the
	// anchor latitude in generated layouts.
	DefaultAnchorBlock = 1
)

// Parity rules.
const (
	ParityCheckerboard = "checkerboard"
	ParityAlternating  = "alternating"
)

// Output formats.
const (
	FormatCSV       = "csv"
	FormatJSON      = "json"
	FormatSVG       = "svg"
	FormatPNG       = "png"
	FormatPDF       = "pdf"
	FormatFieldbook = "fieldbook"
	FormatDOT       = "dot"
	FormatAdjacency = "adjacency"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatCSV:       true,
	FormatJSON:      true,
	FormatSVG:       true,
	FormatPNG:       true,
	FormatPDF:       true,
	FormatFieldbook: true,
	FormatDOT:       true,
	FormatAdjacency: true,
}

// FormatNames lists the formats in display order.
func FormatNames() []string {
	return []string{FormatCSV, FormatJSON, FormatSVG, FormatPNG, FormatPDF, FormatFieldbook, FormatDOT, FormatAdjacency}
}

// DefaultField is the 160 × 270 ft soybean trial field: 3 × 4 blocks of
// 8 × 5 cells inside a 10 ft border with 3 ft alleys.
func DefaultField() geometry.FieldSpec {
	return geometry.FieldSpec{
		Width: 160, Height: 270, Border: 10,
		Rows: 3, Cols: 4, GapX: 3, GapY: 3,
		CellRows: 8, CellCols: 5,
	}
}

// Plot is the planted area centered on each cell.
type Plot struct {
	Width  float64 `toml:"width" json:"width"`
	Height float64 `toml:"height" json:"height"`
}

// Options configures a pipeline run. It is loaded from TOML trial files and
// decoded from JSON API requests.
type Options struct {
	Name string `toml:"name" json:"name,omitempty"`

	Field geometry.FieldSpec  `toml:"field" json:"field"`
	Pools []pool.Pool         `toml:"pools" json:"pools,omitempty"`
	Types []pool.SubblockType `toml:"types" json:"types,omitempty"`

	// Strategy is one of rejection, row-pattern, fixed or none.
	Strategy    string `toml:"strategy" json:"strategy,omitempty"`
	MaxAttempts int    `toml:"max_attempts" json:"max_attempts,omitempty"`
	// Design maps block IDs ("1", "B2") to type names for the fixed strategy.
	Design map[string]string `toml:"design" json:"design,omitempty"`
	Parity string            `toml:"parity" json:"parity,omitempty"`

	// Seed makes the run reproducible. nil draws a fresh seed.
	Seed *uint64 `toml:"seed" json:"seed,omitempty"`

	Plot          Plot        `toml:"plot" json:"plot"`
	Anchor        *geo.Anchor `toml:"anchor" json:"anchor,omitempty"`
	FeetPerDegree float64     `toml:"feet_per_degree" json:"feet_per_degree,omitempty"`

	Formats []string `toml:"formats" json:"formats,omitempty"`
	// Labels draws entry labels on the field map.
	Labels bool `toml:"labels" json:"labels,omitempty"`

	// Runtime options (not serialized)
	Refresh bool        `toml:"-" json:"-"`
	Logger  *log.Logger `toml:"-" json:"-"`

	validated bool
}

// Result is the output of one pipeline run.
type Result struct {
	ID     uuid.UUID
	Name   string
	Seed   uint64
	Seeded bool

	// ConfigHash identifies the generation inputs, seed excluded.
	ConfigHash string

	Layout   *geometry.Layout
	Registry *pool.Registry
	Grid     arrange.Grid
	Table    *table.Table

	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
	CreatedAt time.Time
}

// Stats summarizes a run.
type Stats struct {
	Blocks       int
	Cells        int
	Assigned     int
	Unassigned   int
	Entries      int
	GenerateTime time.Duration
	RenderTime   time.Duration
}

// CacheInfo records which stages were served from cache.
type CacheInfo struct {
	TableHit  bool
	RenderHit bool
}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (must be one of: %s)",
			format, strings.Join(FormatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateParity checks the parity rule name.
func ValidateParity(p string) error {
	if p != ParityCheckerboard && p != ParityAlternating {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid parity %q (must be checkerboard or alternating)", p)
	}
	return nil
}

// ValidateStrategy checks the arrangement strategy name.
func ValidateStrategy(s string) error {
	if !slices.Contains(arrange.Strategies(), s) {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid strategy %q (must be one of: %s)",
			s, strings.Join(arrange.Strategies(), ", "))
	}
	return nil
}

// SetDefaults fills zero values. It is idempotent.
func (o *Options) SetDefaults() {
	if o.Field == (geometry.FieldSpec{}) {
		o.Field = DefaultField()
	}
	if len(o.Pools) == 0 {
		o.Pools = pool.DefaultPools()
		if len(o.Types) == 0 {
			o.Types = pool.DefaultTypes()
		}
	}
	if o.Strategy == "" {
		o.Strategy = DefaultStrategy
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = arrange.DefaultMaxAttempts
	}
	if o.Parity == "" {
		o.Parity = DefaultParity
	}
	if o.Plot.Width == 0 {
		o.Plot.Width = DefaultPlotWidth
	}
	if o.Plot.Height == 0 {
		o.Plot.Height = DefaultPlotHeight
	}
	if o.FeetPerDegree == 0 {
		o.FeetPerDegree = geo.FeetPerDegreeLatitude
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatCSV}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateAndSetDefaults applies defaults and validates everything that can
// be checked without sampling.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Field.Validate(); err != nil {
		return err
	}
	if err := ValidateStrategy(o.Strategy); err != nil {
		return err
	}
	if err := ValidateParity(o.Parity); err != nil {
		return err
	}
	if o.MaxAttempts < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_attempts must be positive (got %d)", o.MaxAttempts)
	}
	if o.Plot.Width < 0 || o.Plot.Height < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "plot size cannot be negative")
	}
	if o.FeetPerDegree < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "feet_per_degree cannot be negative")
	}
	if o.Anchor != nil {
		if _, err := geo.ParseDMS(o.Anchor.DMS); err != nil {
			return err
		}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if _, err := o.Registry(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Registry builds the pool registry described by the options.
func (o *Options) Registry() (*pool.Registry, error) {
	pools, types := o.Pools, o.Types
	if len(pools) == 0 {
		pools, types = pool.DefaultPools(), pool.DefaultTypes()
	}
	r, err := pool.NewRegistry(pools, types)
	if err != nil {
		return nil, err
	}
	if r.NumTypes() == 0 && o.Strategy != "none" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "strategy %q needs at least one subblock type", o.Strategy)
	}
	return r, nil
}

// ArrangeStrategy resolves the arrangement strategy against reg.
func (o *Options) ArrangeStrategy(reg *pool.Registry) (arrange.Strategy, error) {
	var fixed map[int]int
	if o.Strategy == "fixed" {
		fixed = make(map[int]int, len(o.Design))
		for blockName, typeName := range o.Design {
			id, err := table.ParseBlockName(blockName)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "design")
			}
			idx, err := reg.TypeIndex(typeName)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "design block %s", blockName)
			}
			fixed[id] = idx
		}
	}
	return arrange.ByName(o.Strategy, o.MaxAttempts, fixed)
}

// ParityRule returns the role rule for a block.
func (o *Options) ParityRule(blockID int) assign.ParityRule {
	if o.Parity == ParityAlternating {
		return assign.AlternatingCheckerboard(blockID)
	}
	return assign.Checkerboard
}

// IsSeeded reports whether the run is reproducible.
func (o *Options) IsSeeded() bool { return o.Seed != nil }

// WithSeed returns a copy of o with the seed set.
func (o Options) WithSeed(seed uint64) Options {
	o.Seed = &seed
	return o
}

// configView is the part of Options that determines the generated table,
// seed excluded. It is hashed for cache keys.
type configView struct {
	Field         geometry.FieldSpec  `json:"field"`
	Pools         []pool.Pool         `json:"pools"`
	Types         []pool.SubblockType `json:"types"`
	Strategy      string              `json:"strategy"`
	MaxAttempts   int                 `json:"max_attempts"`
	Design        map[string]string   `json:"design,omitempty"`
	Parity        string              `json:"parity"`
	Plot          Plot                `json:"plot"`
	Anchor        *geo.Anchor         `json:"anchor,omitempty"`
	FeetPerDegree float64             `json:"feet_per_degree"`
}

// ConfigHash hashes the generation inputs. Options must have defaults set.
func (o *Options) ConfigHash() (string, error) {
	h, err := cache.HashJSON(configView{
		Field:         o.Field,
		Pools:         o.Pools,
		Types:         o.Types,
		Strategy:      o.Strategy,
		MaxAttempts:   o.MaxAttempts,
		Design:        o.Design,
		Parity:        o.Parity,
		Plot:          o.Plot,
		Anchor:        o.Anchor,
		FeetPerDegree: o.FeetPerDegree,
	})
	if err != nil {
		return "", fmt.Errorf("hash config: %w", err)
	}
	return h, nil
}

// ArtifactKeyOpts returns the cache key options for a rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format, Labels: o.Labels}
}
