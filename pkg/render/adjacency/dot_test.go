package adjacency

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
)

func TestToDOT_Basic(t *testing.T) {
	g := arrange.Grid{
		{0, 1},
		{1, 0},
	}
	dot := ToDOT(g, pool.DefaultTypes())

	if !strings.HasPrefix(dot, "graph Adjacency {") {
		t.Error("ToDOT() output missing graph declaration")
	}
	for _, want := range []string{
		`"B1" [label="B1\nAG-vs-LD", fillcolor="#fdae6b"]`,
		`"B4" [label="B4\nAG-vs-LD", fillcolor="#fdae6b"]`,
		`"B3" -- "B4" [constraint=false];`,
		`"B3" -- "B1";`,
		`"B1" -- "B2" [constraint=false];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q\n%s", want, dot)
		}
	}
	if strings.Contains(dot, conflictColor) {
		t.Error("valid grid should have no conflict edges")
	}
}

func TestToDOT_RowOrder(t *testing.T) {
	dot := ToDOT(arrange.Grid{{0}, {1}}, nil)
	top := strings.Index(dot, `{ rank=same; "B2"; }`)
	bottom := strings.Index(dot, `{ rank=same; "B1"; }`)
	if top < 0 || bottom < 0 || top > bottom {
		t.Errorf("top row should be emitted first:\n%s", dot)
	}
}

func TestToDOT_Conflicts(t *testing.T) {
	g := arrange.Grid{
		{0, 0},
		{0, 1},
	}
	dot := ToDOT(g, pool.DefaultTypes())

	if got := strings.Count(dot, "color="+conflictColor); got != 2 {
		t.Errorf("conflict edges = %d, want 2\n%s", got, dot)
	}
	if !strings.Contains(dot, `"B1" -- "B2" [constraint=false, color=red, penwidth=2.5];`) {
		t.Error("horizontal conflict edge missing")
	}
	if !strings.Contains(dot, `"B3" -- "B1" [color=red, penwidth=2.5];`) {
		t.Error("vertical conflict edge missing")
	}
}

func TestNodeAttrs(t *testing.T) {
	tests := []struct {
		name    string
		typeIdx int
		want    string
	}{
		{"unassigned", arrange.NoType, `label="B1\nunassigned"`},
		{"known", 2, `label="B1\nLD-vs-LG"`},
		{"out of range", 7, `label="B1\ntype 7"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := nodeAttrs("B1", tt.typeIdx, pool.DefaultTypes())
			if attrs[0] != tt.want {
				t.Errorf("nodeAttrs()[0] = %s, want %s", attrs[0], tt.want)
			}
		})
	}

	joined := strings.Join(nodeAttrs("B1", arrange.NoType, nil), " ")
	if !strings.Contains(joined, "dashed") {
		t.Error("unassigned block should be dashed")
	}
	if strings.Contains(dotWithNoType(), "color=red") {
		t.Error("unassigned neighbors never conflict")
	}
}

func dotWithNoType() string {
	return ToDOT(arrange.Grid{{arrange.NoType, arrange.NoType}}, nil)
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeViewBox([]byte(tt.svg))
			if string(got) != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(arrange.Grid{{0, 1, 2}}, pool.DefaultTypes()))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output missing <svg> tag")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), `not valid DOT {{{`); err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}
