// Package geometry partitions a rectangular trial field into blocks and cells.
//
// The field is a nested rectangle hierarchy:
//
//	field (Width × Height)
//	└── usable area (field minus Border on every side)
//	    └── Rows × Cols blocks, separated by GapX / GapY
//	        └── CellRows × CellCols cells, no gaps
//
// All coordinates are in field units (feet in practice) with the origin at the
// lower-left corner of the field. [Compute] is a pure function: the same spec
// always yields the same layout, and no randomness is involved.
package geometry

import (
	"github.com/matzehuels/fieldtrial/pkg/errors"
)

// Rect is an axis-aligned rectangle in field units.
type Rect struct {
	Left, Right float64
	Bottom, Top float64
}

// Width returns the horizontal span of the rectangle.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical span of the rectangle.
func (r Rect) Height() float64 { return r.Top - r.Bottom }

// CenterX returns the horizontal center point of the rectangle.
func (r Rect) CenterX() float64 { return (r.Left + r.Right) / 2 }

// CenterY returns the vertical center point of the rectangle.
func (r Rect) CenterY() float64 { return (r.Bottom + r.Top) / 2 }

// FieldSpec describes the field and its two-level grid.
type FieldSpec struct {
	Width    float64 `toml:"width" json:"width"`
	Height   float64 `toml:"height" json:"height"`
	Border   float64 `toml:"border" json:"border"`
	Rows     int     `toml:"rows" json:"rows"`
	Cols     int     `toml:"cols" json:"cols"`
	GapX     float64 `toml:"gap_x" json:"gap_x"`
	GapY     float64 `toml:"gap_y" json:"gap_y"`
	CellRows int     `toml:"cell_rows" json:"cell_rows"`
	CellCols int     `toml:"cell_cols" json:"cell_cols"`
}

// UsableWidth returns the field width minus the border on both sides.
func (s FieldSpec) UsableWidth() float64 { return s.Width - 2*s.Border }

// UsableHeight returns the field height minus the border on both sides.
func (s FieldSpec) UsableHeight() float64 { return s.Height - 2*s.Border }

// Validate checks the spec without computing any geometry.
func (s FieldSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "field dimensions must be positive (got %v × %v)", s.Width, s.Height)
	}
	if s.Border < 0 || s.GapX < 0 || s.GapY < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "border and gaps cannot be negative")
	}
	if s.Rows < 1 || s.Cols < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "block grid must be at least 1×1 (got %d×%d)", s.Rows, s.Cols)
	}
	if s.CellRows < 1 || s.CellCols < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "cell grid must be at least 1×1 (got %d×%d)", s.CellRows, s.CellCols)
	}
	if s.UsableWidth() <= 0 || s.UsableHeight() <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"border %v leaves no usable area in a %v × %v field", s.Border, s.Width, s.Height)
	}
	if blockSize(s.UsableWidth(), s.Cols, s.GapX) <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"gap_x %v leaves no room for %d block columns in usable width %v", s.GapX, s.Cols, s.UsableWidth())
	}
	if blockSize(s.UsableHeight(), s.Rows, s.GapY) <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"gap_y %v leaves no room for %d block rows in usable height %v", s.GapY, s.Rows, s.UsableHeight())
	}
	return nil
}

// Block is one macro-partition of the usable area.
// IDs are 1-based and assigned in row-major order starting at the bottom row.
type Block struct {
	ID  int
	Row int
	Col int
	Rect
}

// Cell is the smallest spatial unit of a block.
type Cell struct {
	Block     int // owning block ID
	Row       int // row within the block
	Col       int // column within the block
	GlobalRow int // row within the whole field's cell grid
	GlobalCol int // column within the whole field's cell grid
	Rect
}

// Layout is the computed hierarchy for one FieldSpec.
type Layout struct {
	Spec   FieldSpec
	Field  Rect
	Usable Rect
	Blocks []Block
	// Cells holds the cells of Blocks[i] at index i, in row-major order.
	Cells [][]Cell
}

// Compute partitions the field described by spec.
//
// Block width is (usable width − (Cols−1)·GapX) / Cols, and likewise for the
// height; cell size is block size divided by the cell grid shape. Fractional
// sizes are expected. On error no partial layout is returned.
func Compute(spec FieldSpec) (*Layout, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	usable := Rect{
		Left:   spec.Border,
		Right:  spec.Width - spec.Border,
		Bottom: spec.Border,
		Top:    spec.Height - spec.Border,
	}
	rects, err := Subdivide(usable, spec.Rows, spec.Cols, spec.GapX, spec.GapY)
	if err != nil {
		return nil, err
	}

	l := &Layout{
		Spec:   spec,
		Field:  Rect{Right: spec.Width, Top: spec.Height},
		Usable: usable,
		Blocks: make([]Block, 0, len(rects)),
		Cells:  make([][]Cell, 0, len(rects)),
	}
	for i, r := range rects {
		b := Block{ID: i + 1, Row: i / spec.Cols, Col: i % spec.Cols, Rect: r}
		l.Blocks = append(l.Blocks, b)
		l.Cells = append(l.Cells, cellsOf(b, spec.CellRows, spec.CellCols))
	}
	return l, nil
}

// Subdivide splits r into a rows×cols grid of equal rectangles separated by
// gapX and gapY, returned in row-major order from the bottom-left. It is the
// building block for both blocks-in-field and subblocks-in-block hierarchies.
func Subdivide(r Rect, rows, cols int, gapX, gapY float64) ([]Rect, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "grid must be at least 1×1 (got %d×%d)", rows, cols)
	}
	w := blockSize(r.Width(), cols, gapX)
	h := blockSize(r.Height(), rows, gapY)
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"gaps leave no room for a %d×%d grid in %v × %v", rows, cols, r.Width(), r.Height())
	}

	out := make([]Rect, 0, rows*cols)
	for i := range rows {
		for j := range cols {
			x0 := r.Left + float64(j)*(w+gapX)
			y0 := r.Bottom + float64(i)*(h+gapY)
			out = append(out, Rect{Left: x0, Right: x0 + w, Bottom: y0, Top: y0 + h})
		}
	}
	return out, nil
}

func blockSize(total float64, n int, gap float64) float64 {
	return (total - float64(n-1)*gap) / float64(n)
}

func cellsOf(b Block, rows, cols int) []Cell {
	w := b.Width() / float64(cols)
	h := b.Height() / float64(rows)
	cells := make([]Cell, 0, rows*cols)
	for r := range rows {
		for c := range cols {
			x0 := b.Left + float64(c)*w
			y0 := b.Bottom + float64(r)*h
			cells = append(cells, Cell{
				Block:     b.ID,
				Row:       r,
				Col:       c,
				GlobalRow: b.Row*rows + r,
				GlobalCol: b.Col*cols + c,
				Rect:      Rect{Left: x0, Right: x0 + w, Bottom: y0, Top: y0 + h},
			})
		}
	}
	return cells
}

// Block returns the block with the given ID.
func (l *Layout) Block(id int) (Block, bool) {
	if id < 1 || id > len(l.Blocks) {
		return Block{}, false
	}
	return l.Blocks[id-1], true
}

// CellsOf returns the cells of the block with the given ID.
func (l *Layout) CellsOf(id int) []Cell {
	if id < 1 || id > len(l.Cells) {
		return nil
	}
	return l.Cells[id-1]
}

// CellWidth returns the width of every cell in the layout.
func (l *Layout) CellWidth() float64 {
	return l.Blocks[0].Width() / float64(l.Spec.CellCols)
}

// CellHeight returns the height of every cell in the layout.
func (l *Layout) CellHeight() float64 {
	return l.Blocks[0].Height() / float64(l.Spec.CellRows)
}

// IsPerimeter reports whether c lies on the outer edge of the field's global
// cell grid. Perimeter cells are commonly planted as guard rows.
func (l *Layout) IsPerimeter(c Cell) bool {
	lastRow := l.Spec.Rows*l.Spec.CellRows - 1
	lastCol := l.Spec.Cols*l.Spec.CellCols - 1
	return c.GlobalRow == 0 || c.GlobalCol == 0 || c.GlobalRow == lastRow || c.GlobalCol == lastCol
}

// CellCount returns the total number of cells in the layout.
func (l *Layout) CellCount() int {
	return len(l.Blocks) * l.Spec.CellRows * l.Spec.CellCols
}
