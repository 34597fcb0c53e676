// Package table holds the cell-record table produced by the layout engine.
//
// The table is the sole contract between the engine and everything that
// consumes its output (CSV writers, map and fieldbook renderers, the terminal
// viewer, the HTTP API). Consumers read it; they never re-derive labels or
// coordinates.
//
// # CSV Format
//
// The CSV layout matches what field crews load into GPS and fieldbook tools:
//
//	Block,Row,Col,X,Y,Label[,X_start,X_stop,Y_start,Y_stop]
//
// Block IDs are written as "B<n>"; the GPS anchor plot is written as "T0".
// Coordinates are rounded to two decimals on write.
package table

import (
	"cmp"
	"slices"
)

// Unassigned is the explicit label of cells in blocks with no subblock type.
const Unassigned = ""

// AnchorBlock is the block ID of the GPS reference plot "T0".
const AnchorBlock = 0

// Bounds is the physical extent of a planted plot centered on a record.
type Bounds struct {
	XStart float64 `json:"x_start"`
	XStop  float64 `json:"x_stop"`
	YStart float64 `json:"y_start"`
	YStop  float64 `json:"y_stop"`
}

// Record is one row of the output table, one per cell.
type Record struct {
	Block int     `json:"block"`
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`

	// Role and Pool say where the label came from; both are empty for
	// unassigned cells and for tables read back from CSV.
	Role string `json:"role,omitempty"`
	Pool string `json:"pool,omitempty"`

	Bounds *Bounds `json:"bounds,omitempty"`
}

// IsAssigned reports whether the record carries a label.
func (r Record) IsAssigned() bool { return r.Label != Unassigned }

// Table is an ordered list of records.
type Table struct {
	Records []Record `json:"records"`
}

// New wraps records in a table.
func New(records []Record) *Table {
	return &Table{Records: records}
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Records: make([]Record, len(t.Records))}
	for i, r := range t.Records {
		if r.Bounds != nil {
			b := *r.Bounds
			r.Bounds = &b
		}
		out.Records[i] = r
	}
	return out
}

// Blocks returns the distinct block IDs in ascending order.
func (t *Table) Blocks() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, r := range t.Records {
		if !seen[r.Block] {
			seen[r.Block] = true
			ids = append(ids, r.Block)
		}
	}
	slices.Sort(ids)
	return ids
}

// ByBlock returns the records of one block sorted by row, then column.
func (t *Table) ByBlock(id int) []Record {
	var out []Record
	for _, r := range t.Records {
		if r.Block == id {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})
	return out
}

// Labels returns the distinct assigned labels in first-seen order, skipping
// the anchor block.
func (t *Table) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Records {
		if r.Block == AnchorBlock || !r.IsAssigned() || seen[r.Label] {
			continue
		}
		seen[r.Label] = true
		out = append(out, r.Label)
	}
	return out
}

// LabelCounts returns how many cells carry each assigned label.
func (t *Table) LabelCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range t.Records {
		if r.IsAssigned() {
			counts[r.Label]++
		}
	}
	return counts
}

// HasBounds reports whether every record carries bounds.
func (t *Table) HasBounds() bool {
	if len(t.Records) == 0 {
		return false
	}
	for _, r := range t.Records {
		if r.Bounds == nil {
			return false
		}
	}
	return true
}

// WithBounds returns a copy of the table where every record carries the
// bounds of a plot of width × height centered on its (X, Y).
func (t *Table) WithBounds(width, height float64) *Table {
	out := t.Clone()
	for i := range out.Records {
		r := &out.Records[i]
		r.Bounds = &Bounds{
			XStart: r.X - width/2,
			XStop:  r.X + width/2,
			YStart: r.Y - height/2,
			YStop:  r.Y + height/2,
		}
	}
	return out
}
