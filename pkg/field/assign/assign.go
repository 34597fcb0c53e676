// Package assign labels the cells of a block from two samplers.
//
// A [ParityRule] splits a block's cells into role A and role B. The canonical
// [Checkerboard] rule assigns role A where (row + col) is even, so within a
// block every A cell's orthogonal neighbors are B cells and vice versa. Each
// role draws from its own sampler in cell order, which keeps every pool
// balanced across the block.
package assign

import (
	"github.com/matzehuels/fieldtrial/pkg/field/geometry"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
	"github.com/matzehuels/fieldtrial/pkg/field/sampler"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
)

// ParityRule decides the role of a cell from its in-block position.
type ParityRule func(row, col int) pool.Role

// Checkerboard assigns role A to cells with an even row + col.
func Checkerboard(row, col int) pool.Role {
	if (row+col)%2 == 0 {
		return pool.RoleA
	}
	return pool.RoleB
}

// AlternatingCheckerboard returns a checkerboard whose starting role flips
// with the block ID: odd blocks start with A, even blocks start with B.
func AlternatingCheckerboard(blockID int) ParityRule {
	if blockID%2 == 1 {
		return Checkerboard
	}
	return func(row, col int) pool.Role {
		if Checkerboard(row, col) == pool.RoleA {
			return pool.RoleB
		}
		return pool.RoleA
	}
}

// Source is a sampler bound to the pool it draws from.
type Source struct {
	Pool    string
	Sampler sampler.Sampler
}

// Assign labels cells in order. Role A cells take the next label of a and role
// B cells the next label of b. Records carry the cell center as X/Y.
func Assign(cells []geometry.Cell, rule ParityRule, a, b Source) []table.Record {
	out := make([]table.Record, 0, len(cells))
	for _, c := range cells {
		src := a
		role := rule(c.Row, c.Col)
		if role == pool.RoleB {
			src = b
		}
		rec := record(c)
		rec.Label = src.Sampler.Next()
		rec.Role = string(role)
		rec.Pool = src.Pool
		out = append(out, rec)
	}
	return out
}

// Unassigned returns records for cells of a block with no subblock type.
// Every record carries the explicit [table.Unassigned] label.
func Unassigned(cells []geometry.Cell) []table.Record {
	out := make([]table.Record, 0, len(cells))
	for _, c := range cells {
		out = append(out, record(c))
	}
	return out
}

// Split returns how many cells of a rows × cols block rule assigns to each
// role.
func Split(rows, cols int, rule ParityRule) (a, b int) {
	for r := range rows {
		for c := range cols {
			if rule(r, c) == pool.RoleA {
				a++
			} else {
				b++
			}
		}
	}
	return a, b
}

func record(c geometry.Cell) table.Record {
	return table.Record{
		Block: c.Block,
		Row:   c.Row,
		Col:   c.Col,
		X:     c.CenterX(),
		Y:     c.CenterY(),
		Label: table.Unassigned,
	}
}
