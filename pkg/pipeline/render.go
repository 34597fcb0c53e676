package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/observability"
	"github.com/matzehuels/fieldtrial/pkg/render"
	"github.com/matzehuels/fieldtrial/pkg/render/adjacency"
	"github.com/matzehuels/fieldtrial/pkg/render/fieldbook"
	"github.com/matzehuels/fieldtrial/pkg/render/fieldmap"
)

// PNGScale is the resolution multiplier for PNG field maps.
const PNGScale = 2.0

// Render generates output artifacts in the requested formats.
// The field map SVG is drawn once and shared by the svg, png and pdf formats.
func Render(ctx context.Context, res *Result, opts Options) (map[string][]byte, error) {
	if res == nil || res.Table == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to render")
	}
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	artifacts, err := renderFormats(ctx, res, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, err
}

func renderFormats(ctx context.Context, res *Result, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	var mapSVG []byte

	fieldMap := func() ([]byte, error) {
		if mapSVG != nil {
			return mapSVG, nil
		}
		svg, err := RenderFieldMap(res, opts)
		mapSVG = svg
		return svg, err
	}

	for _, format := range opts.Formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var data []byte
		var err error

		switch format {
		case FormatCSV:
			var buf bytes.Buffer
			err = table.WriteCSV(res.Table, &buf)
			data = buf.Bytes()
		case FormatJSON:
			data, err = table.MarshalJSON(res.Table)
		case FormatSVG:
			data, err = fieldMap()
		case FormatPNG:
			if data, err = fieldMap(); err == nil {
				data, err = render.ToPNG(data, PNGScale)
			}
		case FormatPDF:
			if data, err = fieldMap(); err == nil {
				data, err = render.ToPDF(data)
			}
		case FormatFieldbook:
			data, err = fieldbook.RenderPDF(Fieldbook(res, opts))
		case FormatDOT:
			data, err = []byte(res.DOT()), nil
		case FormatAdjacency:
			data, err = adjacency.RenderSVG(ctx, res.DOT())
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderFieldMap draws the field map SVG of a result.
func RenderFieldMap(res *Result, opts Options) ([]byte, error) {
	if res.Layout == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "field map needs the field layout")
	}
	mapOpts := []fieldmap.Option{fieldmap.WithPerimeter()}
	if opts.Labels {
		mapOpts = append(mapOpts, fieldmap.WithLabels())
	}
	return fieldmap.RenderSVG(fieldmap.Map{
		Title:    res.Title(),
		Layout:   res.Layout,
		Table:    res.Table,
		Registry: res.Registry,
	}, mapOpts...)
}

// Fieldbook returns the fieldbook content of a result.
func Fieldbook(res *Result, opts Options) fieldbook.Book {
	b := fieldbook.Book{
		Title:      res.Title(),
		Source:     res.ID.String(),
		Table:      res.Table,
		PlotWidth:  opts.Plot.Width,
		PlotHeight: opts.Plot.Height,
	}
	if res.Seeded {
		b.Seed = strconv.FormatUint(res.Seed, 10)
	}
	return b
}

// DOT returns the block adjacency diagram of the result's arrangement.
func (r *Result) DOT() string {
	if r.Registry == nil {
		return adjacency.ToDOT(r.Grid, nil)
	}
	return adjacency.ToDOT(r.Grid, r.Registry.Types())
}

// Title is the trial name, or a generic title for unnamed trials.
func (r *Result) Title() string {
	if r.Name != "" {
		return r.Name
	}
	return "Field Trial Layout"
}
