// Package fieldmap draws a trial layout as an SVG field map.
//
// The map shows the field outline, the usable area, every block with its
// name, and every cell filled with the color of the pool its entry was drawn
// from. Entry labels are drawn rotated along the planted rows. Field units
// are scaled to pixels and the y axis is flipped so north is up.
package fieldmap

import (
	"bytes"
	"fmt"
	"math"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/geometry"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/render"
)

const (
	// DefaultScale is pixels per field unit.
	DefaultScale = 4.0

	titleHeight    = 40.0
	margin         = 20.0
	borderFill     = "#d9d9d9"
	unassignedFill = "none"
)

// Map is what gets drawn. Registry colors the assigned cells and is required
// whenever the table has any.
type Map struct {
	Title    string
	Layout   *geometry.Layout
	Table    *table.Table
	Registry *pool.Registry
}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	scale     float64
	labels    bool
	perimeter bool
}

// WithScale sets pixels per field unit.
func WithScale(s float64) Option {
	return func(r *renderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// WithLabels draws entry labels inside the cells.
func WithLabels() Option { return func(r *renderer) { r.labels = true } }

// WithPerimeter outlines the guard cells on the outer edge of the field.
func WithPerimeter() Option { return func(r *renderer) { r.perimeter = true } }

type cellKey struct{ block, row, col int }

// RenderSVG renders the map. Every record outside the anchor block must
// match a cell of the layout, and every assigned label must resolve to a
// color when a registry is given.
func RenderSVG(m Map, opts ...Option) ([]byte, error) {
	if m.Layout == nil || m.Table == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "field map needs a layout and a table")
	}
	r := renderer{scale: DefaultScale}
	for _, opt := range opts {
		opt(&r)
	}

	byCell := make(map[cellKey]table.Record, m.Table.Len())
	for _, rec := range m.Table.Records {
		if rec.Block == table.AnchorBlock {
			continue
		}
		if _, ok := m.Layout.Block(rec.Block); !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"record in block %s is outside the %d-block layout", table.BlockName(rec.Block), len(m.Layout.Blocks))
		}
		byCell[cellKey{rec.Block, rec.Row, rec.Col}] = rec
	}

	l := m.Layout
	w := l.Field.Width()*r.scale + 2*margin
	h := l.Field.Height()*r.scale + 2*margin + titleHeight

	var buf bytes.Buffer
	render.OpenSVG(&buf, w, h)
	if m.Title != "" {
		render.Text(&buf, w/2, titleHeight/2+margin/2, 16, "middle", "bold", m.Title)
	}

	r.rect(&buf, l, l.Field, borderFill, "black", 1.5, "")
	r.rect(&buf, l, l.Usable, "white", "none", 0, "")

	for _, b := range l.Blocks {
		r.rect(&buf, l, b.Rect, "white", "black", 1.5, "")
		for _, c := range l.CellsOf(b.ID) {
			rec, ok := byCell[cellKey{c.Block, c.Row, c.Col}]
			fill := unassignedFill
			if ok && rec.IsAssigned() {
				color, err := CellColor(m.Registry, rec)
				if err != nil {
					return nil, err
				}
				fill = color
			}
			dash := ""
			if r.perimeter && l.IsPerimeter(c) {
				dash = "4 2"
			}
			r.rect(&buf, l, c.Rect, fill, "lightgray", 0.8, dash)
			if r.labels && ok && rec.IsAssigned() {
				x, y := r.point(l, c.CenterX(), c.CenterY())
				render.RotatedText(&buf, x, y, labelSize(c.Width()*r.scale, c.Height()*r.scale, rec.Label), -90, rec.Label)
			}
		}
	}

	// Block names go on top of the cells.
	for _, b := range l.Blocks {
		x, y := r.point(l, b.CenterX(), b.CenterY())
		fmt.Fprintf(&buf, `  <text x="%.2f" y="%.2f" font-family="%s" font-size="%.1f" font-weight="bold" text-anchor="middle" dominant-baseline="central" fill="black" fill-opacity="0.6">%s</text>`+"\n",
			x, y, render.FontFamily, math.Max(10, b.Width()*r.scale/6), table.BlockName(b.ID))
	}

	render.CloseSVG(&buf)
	return buf.Bytes(), nil
}

// CellColor resolves the fill of an assigned record. Records that carry
// their pool use it directly; records read back from CSV are resolved
// through the registry's label lookup. A label outside every pool is an
// UNKNOWN_LABEL error and a nil registry is INVALID_INPUT.
func CellColor(reg *pool.Registry, rec table.Record) (string, error) {
	if reg == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "no pool registry to color %q", rec.Label)
	}
	poolName := rec.Pool
	if poolName == "" {
		members, err := reg.Lookup(rec.Label)
		if err != nil {
			return "", err
		}
		poolName = members[0].Pool
	}
	return reg.Color(poolName, rec.Label)
}

// point maps field coordinates to SVG pixels.
func (r renderer) point(l *geometry.Layout, x, y float64) (float64, float64) {
	return margin + (x-l.Field.Left)*r.scale, margin + titleHeight + (l.Field.Top-y)*r.scale
}

func (r renderer) rect(buf *bytes.Buffer, l *geometry.Layout, rc geometry.Rect, fill, stroke string, width float64, dash string) {
	x, y := r.point(l, rc.Left, rc.Top)
	fmt.Fprintf(buf, `  <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="%s" stroke-width="%.1f"`,
		x, y, rc.Width()*r.scale, rc.Height()*r.scale, fill, stroke, width)
	if dash != "" {
		fmt.Fprintf(buf, ` stroke-dasharray="%s"`, dash)
	}
	buf.WriteString("/>\n")
}

// labelSize fits a label rotated along the cell height.
func labelSize(cellW, cellH float64, label string) float64 {
	n := max(len(label), 1)
	return math.Max(4, math.Min(cellW*0.5, 1.6*cellH/float64(n)))
}
