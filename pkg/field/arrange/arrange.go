// Package arrange places subblock types on the block grid so that no two
// orthogonally adjacent blocks share a type.
//
// Three strategies are provided:
//
//   - [Rejection] draws the whole grid uniformly and keeps the first draw that
//     passes [Valid], giving up with a constraint-exhaustion error after a
//     bounded number of attempts.
//   - [RowPattern] draws each row as a permutation without equal neighbors and
//     then re-draws the middle row. It only guards horizontal adjacency and
//     is kept for reproducing existing trial layouts.
//   - [Fixed] maps named types to explicit blocks.
//
// All strategies take an explicit *rand.Rand and never touch global state.
package arrange

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/matzehuels/fieldtrial/pkg/errors"
)

// NoType marks a block without a subblock type.
const NoType = -1

// DefaultMaxAttempts bounds the rejection search when no bound is configured.
const DefaultMaxAttempts = 10000

// Grid is a rows × cols matrix of subblock type indices, indexed [row][col]
// with row 0 at the bottom of the field. Treat it as read-only once returned.
type Grid [][]int

// NewGrid returns a grid of the given shape filled with NoType.
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	for i := range g {
		g[i] = make([]int, cols)
		for j := range g[i] {
			g[i][j] = NoType
		}
	}
	return g
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return len(g) }

// Cols returns the number of columns.
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// At returns the type of the block at row-major index i (block ID i+1).
func (g Grid) At(i int) int {
	c := g.Cols()
	if c == 0 || i < 0 || i >= len(g)*c {
		return NoType
	}
	return g[i/c][i%c]
}

// ForBlock returns the type of the block with the given 1-based ID.
func (g Grid) ForBlock(id int) int { return g.At(id - 1) }

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// String renders the grid top row first, as it appears on the field.
func (g Grid) String() string {
	var b strings.Builder
	for i := len(g) - 1; i >= 0; i-- {
		for j, v := range g[i] {
			if j > 0 {
				b.WriteByte(' ')
			}
			if v == NoType {
				b.WriteByte('.')
			} else {
				fmt.Fprintf(&b, "%d", v)
			}
		}
		if i > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Valid reports whether no two orthogonally adjacent blocks share a type.
// Blocks without a type never conflict.
func Valid(g Grid) bool {
	for i, row := range g {
		for j, v := range row {
			if v == NoType {
				continue
			}
			if i > 0 && g[i-1][j] == v {
				return false
			}
			if j > 0 && row[j-1] == v {
				return false
			}
		}
	}
	return true
}

// Conflicts returns the positions that share a type with the block below or
// to the left of them.
func Conflicts(g Grid) [][2]int {
	var out [][2]int
	for i, row := range g {
		for j, v := range row {
			if v == NoType {
				continue
			}
			if (i > 0 && g[i-1][j] == v) || (j > 0 && row[j-1] == v) {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

// Strategy selects a type grid for a block grid of the given shape.
type Strategy interface {
	Name() string
	Select(rows, cols, numTypes int, rng *rand.Rand) (Grid, error)
}

func checkShape(rows, cols, numTypes int) error {
	if rows < 1 || cols < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "block grid must be at least 1×1 (got %d×%d)", rows, cols)
	}
	if numTypes < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one subblock type is required")
	}
	return nil
}
