package arrange

import (
	"math/rand/v2"
	"slices"

	"github.com/matzehuels/fieldtrial/pkg/errors"
)

// Rejection is rejection sampling over uniformly drawn grids.
type Rejection struct {
	// MaxAttempts bounds the search. Zero means DefaultMaxAttempts.
	MaxAttempts int
}

// Name implements Strategy.
func (Rejection) Name() string { return "rejection" }

// Select implements Strategy.
func (s Rejection) Select(rows, cols, numTypes int, rng *rand.Rand) (Grid, error) {
	limit := s.MaxAttempts
	if limit == 0 {
		limit = DefaultMaxAttempts
	}
	return SelectGrid(rows, cols, numTypes, rng, limit)
}

// SelectGrid draws rows × cols grids of types in [0, numTypes) until one is
// [Valid] and returns it. After maxAttempts failed draws it returns an
// [*errors.ExhaustionError] carrying the attempt count. With a single type and
// more than one block no valid grid exists, and the search always exhausts.
func SelectGrid(rows, cols, numTypes int, rng *rand.Rand, maxAttempts int) (Grid, error) {
	if err := checkShape(rows, cols, numTypes); err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "max attempts must be positive (got %d)", maxAttempts)
	}
	if rng == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "grid selection needs a random source")
	}

	g := NewGrid(rows, cols)
	for range maxAttempts {
		for i := range g {
			for j := range g[i] {
				g[i][j] = rng.IntN(numTypes)
			}
		}
		if Valid(g) {
			return g, nil
		}
	}
	return nil, &errors.ExhaustionError{
		Attempts: maxAttempts,
		Message:  "no adjacency-valid subblock arrangement found",
	}
}

// RowPattern draws every row as a permutation of the type IDs with no two
// equal horizontal neighbors, then re-draws the middle row from the valid
// permutations other than its current one. Vertical adjacency is not checked,
// so the result may fail [Valid]. It requires cols == numTypes.
type RowPattern struct{}

// Name implements Strategy.
func (RowPattern) Name() string { return "row-pattern" }

// Select implements Strategy.
func (RowPattern) Select(rows, cols, numTypes int, rng *rand.Rand) (Grid, error) {
	if err := checkShape(rows, cols, numTypes); err != nil {
		return nil, err
	}
	if cols != numTypes {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"row-pattern strategy needs one column per subblock type (got %d columns, %d types)", cols, numTypes)
	}
	if rng == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "grid selection needs a random source")
	}

	patterns := RowPatterns(numTypes)
	g := make(Grid, rows)
	for i := range g {
		g[i] = slices.Clone(patterns[rng.IntN(len(patterns))])
	}

	mid := rows / 2
	var alts [][]int
	for _, p := range patterns {
		if !slices.Equal(p, g[mid]) {
			alts = append(alts, p)
		}
	}
	if len(alts) > 0 {
		g[mid] = slices.Clone(alts[rng.IntN(len(alts))])
	}
	return g, nil
}

// RowPatterns returns every permutation of 0..n-1 in lexicographic order.
// Permutations of distinct IDs never place equal values side by side, so all
// of them qualify as rows.
func RowPatterns(n int) [][]int {
	var out [][]int
	perm := make([]int, n)
	used := make([]bool, n)
	var walk func(k int)
	walk = func(k int) {
		if k == n {
			out = append(out, slices.Clone(perm))
			return
		}
		for v := range n {
			if used[v] || (k > 0 && perm[k-1] == v) {
				continue
			}
			used[v] = true
			perm[k] = v
			walk(k + 1)
			used[v] = false
		}
	}
	walk(0)
	return out
}

// Fixed assigns types to explicit blocks. Blocks missing from the map carry
// [NoType].
type Fixed struct {
	// Blocks maps 1-based block IDs to type indices.
	Blocks map[int]int
}

// Name implements Strategy.
func (Fixed) Name() string { return "fixed" }

// Select implements Strategy. rng is unused.
func (s Fixed) Select(rows, cols, numTypes int, _ *rand.Rand) (Grid, error) {
	if err := checkShape(rows, cols, numTypes); err != nil {
		return nil, err
	}
	g := NewGrid(rows, cols)
	for id, typ := range s.Blocks {
		if id < 1 || id > rows*cols {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "block %d outside %d×%d grid", id, rows, cols)
		}
		if typ < 0 || typ >= numTypes {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "block %d has type index %d, want [0, %d)", id, typ, numTypes)
		}
		g[(id-1)/cols][(id-1)%cols] = typ
	}
	return g, nil
}

// None leaves every block untyped.
type None struct{}

// Name implements Strategy.
func (None) Name() string { return "none" }

// Select implements Strategy.
func (None) Select(rows, cols, _ int, _ *rand.Rand) (Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "block grid must be at least 1×1 (got %d×%d)", rows, cols)
	}
	return NewGrid(rows, cols), nil
}

// ByName returns the strategy registered under name.
func ByName(name string, maxAttempts int, fixed map[int]int) (Strategy, error) {
	switch name {
	case "", "rejection":
		return Rejection{MaxAttempts: maxAttempts}, nil
	case "row-pattern":
		return RowPattern{}, nil
	case "fixed":
		return Fixed{Blocks: fixed}, nil
	case "none":
		return None{}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown arrangement strategy %q", name)
}

// Strategies lists the registered strategy names.
func Strategies() []string {
	return []string{"rejection", "row-pattern", "fixed", "none"}
}
