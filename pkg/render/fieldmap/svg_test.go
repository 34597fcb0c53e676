package fieldmap

import (
	"strings"
	"testing"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/assign"
	"github.com/matzehuels/fieldtrial/pkg/field/geometry"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
	"github.com/matzehuels/fieldtrial/pkg/field/sampler"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
)

func testMap(t *testing.T) Map {
	t.Helper()
	l, err := geometry.Compute(geometry.FieldSpec{
		Width: 40, Height: 30, Border: 2,
		Rows: 1, Cols: 2, GapX: 2,
		CellRows: 2, CellCols: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	recs := assign.Assign(l.CellsOf(1), assign.Checkerboard,
		assign.Source{Pool: "AG", Sampler: sampler.Constant("AG29XF4")},
		assign.Source{Pool: "LG", Sampler: sampler.Constant("LG3216")})
	recs = append(recs, assign.Unassigned(l.CellsOf(2))...)
	return Map{Title: "Trial", Layout: l, Table: table.New(recs), Registry: pool.Default()}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(testMap(t), WithLabels(), WithScale(10))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	s := string(svg)
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg"`,
		`viewBox="0 0 440.0 380.0"`,
		">Trial</text>",
		">B1</text>",
		">B2</text>",
		">AG29XF4</text>",
		">LG3216</text>",
		`fill="#fdd0a2"`,
		`fill="#c6dbef"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if strings.Contains(s, "stroke-dasharray") {
		t.Error("perimeter outline drawn without WithPerimeter")
	}
}

func TestRenderSVGWithoutLabels(t *testing.T) {
	svg, err := RenderSVG(testMap(t))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(svg), "AG29XF4") {
		t.Error("labels drawn without WithLabels")
	}
}

func TestRenderSVGPerimeter(t *testing.T) {
	svg, err := RenderSVG(testMap(t), WithPerimeter())
	if err != nil {
		t.Fatal(err)
	}
	// A 1x2 grid of 2x2 blocks has every cell on the perimeter.
	if got := strings.Count(string(svg), "stroke-dasharray"); got != 8 {
		t.Errorf("dashed cells = %d, want 8", got)
	}
}

func TestRenderSVGErrors(t *testing.T) {
	m := testMap(t)

	if _, err := RenderSVG(Map{Table: m.Table}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("nil layout: err = %v", err)
	}

	bad := m.Table.Clone()
	bad.Records[0].Label = "NOT-AN-ENTRY"
	bad.Records[0].Pool = ""
	m.Table = bad
	if _, err := RenderSVG(m); !errors.Is(err, errors.ErrCodeUnknownLabel) {
		t.Errorf("unknown label: err = %v, want UNKNOWN_LABEL", err)
	}

	m = testMap(t)
	m.Registry = nil
	if _, err := RenderSVG(m); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("nil registry: err = %v, want INVALID_INPUT", err)
	}

	m = testMap(t)
	outside := m.Table.Clone()
	outside.Records[0].Block = 9
	m.Table = outside
	if _, err := RenderSVG(m); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("outside block: err = %v", err)
	}
}

func TestRenderSVGSkipsAnchorBlock(t *testing.T) {
	m := testMap(t)
	recs := append(m.Table.Clone().Records, table.Record{Block: table.AnchorBlock, Label: "GPS"})
	m.Table = table.New(recs)
	if _, err := RenderSVG(m); err != nil {
		t.Errorf("anchor block record should be ignored: %v", err)
	}
}

func TestCellColor(t *testing.T) {
	reg := pool.Default()
	tests := []struct {
		name string
		rec  table.Record
		want string
	}{
		{"with pool", table.Record{Label: "LG3216", Pool: "LG"}, "#c6dbef"},
		{"lookup", table.Record{Label: "LD20-4471"}, "#c7e9c0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CellColor(reg, tt.rec)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("CellColor() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := CellColor(reg, table.Record{Label: "LG3216", Pool: "AG"}); !errors.Is(err, errors.ErrCodeUnknownLabel) {
		t.Errorf("wrong pool: err = %v", err)
	}
	if got, err := CellColor(nil, table.Record{Label: "LG3216", Pool: "LG"}); !errors.Is(err, errors.ErrCodeInvalidInput) || got != "" {
		t.Errorf("nil registry: CellColor() = %q, %v; want INVALID_INPUT", got, err)
	}
}
