package arrange

import (
	stderrors "errors"
	"slices"
	"testing"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/rng"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
		want bool
	}{
		{"empty", Grid{}, true},
		{"single", Grid{{0}}, true},
		{"checker", Grid{{0, 1}, {1, 0}}, true},
		{"horizontal clash", Grid{{0, 0}}, false},
		{"vertical clash", Grid{{2}, {2}}, false},
		{"diagonal ok", Grid{{0, 1, 2}, {1, 2, 0}}, true},
		{"untyped neighbors", Grid{{NoType, NoType}, {NoType, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.grid); got != tt.want {
				t.Errorf("Valid(%v) = %v, want %v", tt.grid, got, tt.want)
			}
		})
	}
}

func TestConflicts(t *testing.T) {
	got := Conflicts(Grid{{0, 0, 1}, {2, 0, 1}})
	want := [][2]int{{0, 1}, {1, 1}, {1, 2}}
	if !slices.Equal(got, want) {
		t.Errorf("Conflicts() = %v, want %v", got, want)
	}
}

func TestSelectGridTrialShape(t *testing.T) {
	g, err := SelectGrid(3, 4, 4, rng.New(123), 10000)
	if err != nil {
		t.Fatalf("SelectGrid() error: %v", err)
	}
	if g.Rows() != 3 || g.Cols() != 4 {
		t.Fatalf("grid shape = %d×%d, want 3×4", g.Rows(), g.Cols())
	}
	if !Valid(g) {
		t.Errorf("SelectGrid() returned invalid grid:\n%s", g)
	}
	for _, row := range g {
		for _, v := range row {
			if v < 0 || v >= 4 {
				t.Errorf("type %d outside [0, 4)", v)
			}
		}
	}

	again, err := SelectGrid(3, 4, 4, rng.New(123), 10000)
	if err != nil {
		t.Fatalf("SelectGrid() repeat error: %v", err)
	}
	if g.String() != again.String() {
		t.Errorf("same seed gave different grids:\n%s\nvs\n%s", g, again)
	}
}

func TestSelectGridExhaustion(t *testing.T) {
	_, err := SelectGrid(1, 2, 1, rng.New(1), 50)
	var ex *errors.ExhaustionError
	if !stderrors.As(err, &ex) {
		t.Fatalf("SelectGrid() error = %v, want *ExhaustionError", err)
	}
	if ex.Attempts != 50 {
		t.Errorf("Attempts = %d, want 50", ex.Attempts)
	}
	if !errors.Is(err, errors.ErrCodeConstraintExhausted) {
		t.Error("exhaustion error should carry CONSTRAINT_EXHAUSTED")
	}
}

func TestSelectGridSingleBlockSingleType(t *testing.T) {
	g, err := SelectGrid(1, 1, 1, rng.New(1), 1)
	if err != nil {
		t.Fatalf("SelectGrid() error: %v", err)
	}
	if g[0][0] != 0 {
		t.Errorf("grid = %v, want [[0]]", g)
	}
}

func TestSelectGridInvalidConfig(t *testing.T) {
	tests := []struct {
		name                 string
		rows, cols, n, limit int
	}{
		{"zero rows", 0, 4, 4, 10},
		{"zero cols", 3, 0, 4, 10},
		{"zero types", 3, 4, 0, 10},
		{"zero attempts", 3, 4, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SelectGrid(tt.rows, tt.cols, tt.n, rng.New(1), tt.limit)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("SelectGrid() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
	if _, err := SelectGrid(1, 1, 1, nil, 1); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("nil rng error = %v, want INVALID_CONFIG", err)
	}
}

func TestRejectionDefaultAttempts(t *testing.T) {
	_, err := Rejection{}.Select(2, 1, 1, rng.New(5))
	var ex *errors.ExhaustionError
	if !stderrors.As(err, &ex) || ex.Attempts != DefaultMaxAttempts {
		t.Errorf("Select() error = %v, want exhaustion after %d attempts", err, DefaultMaxAttempts)
	}
}

func TestRowPatterns(t *testing.T) {
	got := RowPatterns(4)
	if len(got) != 24 {
		t.Fatalf("RowPatterns(4) returned %d patterns, want 24", len(got))
	}
	if !slices.Equal(got[0], []int{0, 1, 2, 3}) || !slices.Equal(got[23], []int{3, 2, 1, 0}) {
		t.Errorf("patterns not in lexicographic order: first %v last %v", got[0], got[23])
	}
	if n := len(RowPatterns(1)); n != 1 {
		t.Errorf("RowPatterns(1) returned %d patterns, want 1", n)
	}
}

func TestRowPatternSelect(t *testing.T) {
	for seed := range uint64(20) {
		g, err := RowPattern{}.Select(3, 4, 4, rng.New(seed))
		if err != nil {
			t.Fatalf("Select() error: %v", err)
		}
		for i, row := range g {
			sorted := slices.Sorted(slices.Values(row))
			if !slices.Equal(sorted, []int{0, 1, 2, 3}) {
				t.Errorf("seed %d row %d = %v, want a permutation", seed, i, row)
			}
			for j := 1; j < len(row); j++ {
				if row[j] == row[j-1] {
					t.Errorf("seed %d row %d has equal neighbors: %v", seed, i, row)
				}
			}
		}
	}
}

func TestRowPatternRedrawsMiddleRow(t *testing.T) {
	// Replay the draws to recover the middle row before the re-draw.
	for seed := range uint64(20) {
		r := rng.New(seed)
		patterns := RowPatterns(4)
		var before []int
		for i := range 3 {
			p := patterns[r.IntN(len(patterns))]
			if i == 1 {
				before = p
			}
		}

		g, err := RowPattern{}.Select(3, 4, 4, rng.New(seed))
		if err != nil {
			t.Fatalf("Select() error: %v", err)
		}
		if slices.Equal(g[1], before) {
			t.Errorf("seed %d: middle row %v was not re-drawn", seed, g[1])
		}
	}
}

func TestRowPatternShapeMismatch(t *testing.T) {
	_, err := RowPattern{}.Select(3, 5, 4, rng.New(1))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Select() error = %v, want INVALID_CONFIG", err)
	}
}

func TestFixed(t *testing.T) {
	s := Fixed{Blocks: map[int]int{1: 0, 2: 1, 3: 2, 4: 0}}
	g, err := s.Select(3, 4, 3, nil)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	want := []int{0, 1, 2, 0, NoType, NoType}
	for i, w := range want {
		if got := g.At(i); got != w {
			t.Errorf("At(%d) = %d, want %d", i, got, w)
		}
	}
	if g.ForBlock(12) != NoType {
		t.Error("unmapped block should be NoType")
	}

	if _, err := (Fixed{Blocks: map[int]int{13: 0}}).Select(3, 4, 3, nil); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("out-of-range block error = %v, want INVALID_CONFIG", err)
	}
	if _, err := (Fixed{Blocks: map[int]int{1: 3}}).Select(3, 4, 3, nil); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("out-of-range type error = %v, want INVALID_CONFIG", err)
	}
}

func TestNone(t *testing.T) {
	g, err := None{}.Select(2, 2, 0, nil)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if g.String() != ". .\n. ." {
		t.Errorf("grid = %q", g.String())
	}
}

func TestGridString(t *testing.T) {
	g := Grid{{0, 1}, {2, NoType}}
	if got, want := g.String(), "2 .\n0 1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestByName(t *testing.T) {
	for _, name := range Strategies() {
		s, err := ByName(name, 0, nil)
		if err != nil {
			t.Fatalf("ByName(%q) error: %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("ByName(%q).Name() = %q", name, s.Name())
		}
	}
	if _, err := ByName("annealing", 0, nil); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("ByName(unknown) error = %v, want INVALID_CONFIG", err)
	}
}
