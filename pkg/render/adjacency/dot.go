// Package adjacency draws the block grid as a Graphviz diagram.
//
// Each block is a node filled with its subblock type's color; every pair of
// orthogonally adjacent blocks is joined by an edge. Edges between blocks of
// the same type are drawn red, so an arrangement that breaks the adjacency
// rule is visible at a glance.
package adjacency

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/arrange"
	"github.com/matzehuels/fieldtrial/pkg/field/pool"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/render"
)

const conflictColor = "red"

// ToDOT converts a type grid to Graphviz DOT. Rows are emitted top row
// first so the diagram reads like the field. types names and colors the
// nodes; a type index outside types is shown by number.
func ToDOT(g arrange.Grid, types []pool.SubblockType) string {
	var buf bytes.Buffer
	buf.WriteString("graph Adjacency {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, width=1.4];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	cols := g.Cols()
	id := func(i, j int) string { return table.BlockName(i*cols + j + 1) }

	for i := g.Rows() - 1; i >= 0; i-- {
		buf.WriteString("  { rank=same;")
		for j := range g[i] {
			fmt.Fprintf(&buf, " %q;", id(i, j))
		}
		buf.WriteString(" }\n")
	}
	buf.WriteString("\n")

	for i := g.Rows() - 1; i >= 0; i-- {
		for j, v := range g[i] {
			fmt.Fprintf(&buf, "  %q [%s];\n", id(i, j), strings.Join(nodeAttrs(id(i, j), v, types), ", "))
		}
	}
	buf.WriteString("\n")

	for i := g.Rows() - 1; i >= 0; i-- {
		for j, v := range g[i] {
			if j+1 < cols {
				writeEdge(&buf, id(i, j), id(i, j+1), v, g[i][j+1], false)
			}
			if i > 0 {
				writeEdge(&buf, id(i, j), id(i-1, j), v, g[i-1][j], true)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(id string, typeIdx int, types []pool.SubblockType) []string {
	name, color := "unassigned", ""
	switch {
	case typeIdx == arrange.NoType:
		color = "white"
	case typeIdx < len(types):
		name, color = types[typeIdx].Name, types[typeIdx].Color
	default:
		name = "type " + strconv.Itoa(typeIdx)
	}
	attrs := []string{fmt.Sprintf("label=%q", id+"\n"+name)}
	if color != "" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", color))
	}
	if typeIdx == arrange.NoType {
		attrs = append(attrs, "style=\"rounded,dashed\"")
	}
	return attrs
}

func writeEdge(buf *bytes.Buffer, from, to string, a, b int, vertical bool) {
	var attrs []string
	if !vertical {
		// Horizontal neighbors share a rank; keep them from stretching it.
		attrs = append(attrs, "constraint=false")
	}
	if a != arrange.NoType && a == b {
		attrs = append(attrs, "color="+conflictColor, "penwidth=2.5")
	}
	if len(attrs) == 0 {
		fmt.Fprintf(buf, "  %q -- %q;\n", from, to)
		return
	}
	fmt.Fprintf(buf, "  %q -- %q [%s];\n", from, to, strings.Join(attrs, ", "))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized root element with a
// plain viewBox so the diagram scales like the other renderers' output.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
