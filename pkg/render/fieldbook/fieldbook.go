// Package fieldbook renders the printable fieldbook of a trial.
//
// A fieldbook is a sequence of A5 pages: a summary, the numbered entry list,
// and for every block a layout sketch followed by its plot coordinate table.
// The anchor block (T0) holds no entries and is left out. Pages are SVG;
// [RenderPDF] joins them into one PDF through rsvg-convert.
package fieldbook

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/render"
)

// A5 portrait in points.
const (
	PageWidth  = 417.6
	PageHeight = 597.6
)

const (
	pageMargin = 24.0
	titleY     = 40.0
	bodyTop    = 64.0
	rowHeight  = 10.0
	cellFill   = "#d9d9d9"
)

// Book is the content of one fieldbook.
type Book struct {
	Title string
	// Source names where the table came from, e.g. a file name or run ID.
	Source string
	Seed   string
	Table  *table.Table
	// PlotWidth and PlotHeight are used for tables without plot bounds.
	PlotWidth  float64
	PlotHeight float64
}

// Pages renders every page of the book as SVG.
func Pages(b Book) ([][]byte, error) {
	if b.Table == nil || b.Table.Len() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "fieldbook needs a non-empty table")
	}
	t := b.Table
	if !t.HasBounds() {
		if b.PlotWidth <= 0 || b.PlotHeight <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "table has no plot bounds and no plot size was given")
		}
		t = t.WithBounds(b.PlotWidth, b.PlotHeight)
	}

	var blocks []int
	for _, id := range t.Blocks() {
		if id != table.AnchorBlock {
			blocks = append(blocks, id)
		}
	}

	pages := [][]byte{summaryPage(b, t, len(blocks))}
	pages = append(pages, entryPages(t)...)
	for _, id := range blocks {
		recs := t.ByBlock(id)
		pages = append(pages, layoutPage(id, recs))
		pages = append(pages, coordinatePages(id, recs)...)
	}
	return pages, nil
}

// RenderPDF renders the book as a single multi-page PDF.
func RenderPDF(b Book) ([]byte, error) {
	pages, err := Pages(b)
	if err != nil {
		return nil, err
	}
	return render.PagesToPDF(pages)
}

func summaryPage(b Book, t *table.Table, blocks int) []byte {
	title := b.Title
	if title == "" {
		title = "Fieldbook"
	}
	var buf bytes.Buffer
	render.OpenSVG(&buf, PageWidth, PageHeight)
	render.Text(&buf, pageMargin, PageHeight*0.2, 14, "start", "bold", title)
	render.Text(&buf, pageMargin, PageHeight*0.2+24, 9, "start", "normal",
		"Each block lists plot start/stop coordinates aligned to the T0 anchor.")

	lines := []string{
		fmt.Sprintf("Blocks: %d", blocks),
		fmt.Sprintf("Plots: %d", t.Len()),
		fmt.Sprintf("Entries: %d", len(t.Labels())),
	}
	if b.Seed != "" {
		lines = append(lines, "Seed: "+b.Seed)
	}
	if b.Source != "" {
		lines = append(lines, "Source: "+b.Source)
	}
	y := PageHeight * 0.4
	for _, l := range lines {
		render.Text(&buf, pageMargin, y, 8, "start", "normal", l)
		y += 14
	}
	render.CloseSVG(&buf)
	return buf.Bytes()
}

func entryPages(t *table.Table) [][]byte {
	rows := make([][]string, 0, len(t.Labels()))
	for i, label := range t.Labels() {
		rows = append(rows, []string{strconv.Itoa(i + 1), label})
	}
	return tablePages("Entry List", []string{"Entry#", "Label"}, []float64{0.2, 0.75}, rows)
}

func coordinatePages(id int, recs []table.Record) [][]byte {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		bd := r.Bounds
		if bd == nil {
			bd = &table.Bounds{}
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Row), strconv.Itoa(r.Col), r.Label,
			coord(bd.XStart), coord(bd.YStart), coord(bd.XStop), coord(bd.YStop),
		})
	}
	return tablePages(
		fmt.Sprintf("Block %s Plot Coordinates", table.BlockName(id)),
		[]string{"Row", "Col", "Label", "X_start", "Y_start", "X_stop", "Y_stop"},
		[]float64{0.08, 0.08, 0.3, 0.14, 0.14, 0.14, 0.14},
		rows,
	)
}

// rowsPerPage is how many table rows, header included, fit under bodyTop.
func rowsPerPage() int {
	avail := PageHeight - bodyTop - pageMargin
	return int(avail / rowHeight)
}

// tablePages lays rows out under a repeated header, as many pages as needed.
// colWidths are fractions of the printable width.
func tablePages(title string, header []string, colWidths []float64, rows [][]string) [][]byte {
	perPage := rowsPerPage() - 1 // header

	var pages [][]byte
	for start := 0; start == 0 || start < len(rows); start += perPage {
		end := min(start+perPage, len(rows))
		var buf bytes.Buffer
		render.OpenSVG(&buf, PageWidth, PageHeight)
		render.Text(&buf, PageWidth/2, titleY, 10, "middle", "bold", title)
		y := bodyTop
		writeRow(&buf, y, colWidths, header, "bold")
		for _, row := range rows[start:end] {
			y += rowHeight
			writeRow(&buf, y, colWidths, row, "normal")
		}
		render.CloseSVG(&buf)
		pages = append(pages, buf.Bytes())
	}
	return pages
}

func writeRow(buf *bytes.Buffer, y float64, colWidths []float64, cells []string, weight string) {
	width := PageWidth - 2*pageMargin
	x := pageMargin
	for i, c := range cells {
		fmt.Fprintf(buf, `  <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="black" stroke-width="0.3"/>`+"\n",
			x, y-rowHeight+2.5, colWidths[i]*width, rowHeight)
		render.Text(buf, x+2, y, 5.5, "start", weight, c)
		x += colWidths[i] * width
	}
}

// layoutPage sketches one block from its plot bounds, scaled to the page.
func layoutPage(id int, recs []table.Record) []byte {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range recs {
		if r.Bounds == nil {
			continue
		}
		minX = math.Min(minX, r.Bounds.XStart)
		minY = math.Min(minY, r.Bounds.YStart)
		maxX = math.Max(maxX, r.Bounds.XStop)
		maxY = math.Max(maxY, r.Bounds.YStop)
	}
	minX, minY, maxX, maxY = minX-1, minY-1, maxX+1, maxY+1

	availW := PageWidth - 2*pageMargin
	availH := PageHeight - bodyTop - pageMargin
	scale := math.Min(availW/(maxX-minX), availH/(maxY-minY))
	ox := pageMargin + (availW-(maxX-minX)*scale)/2

	var buf bytes.Buffer
	render.OpenSVG(&buf, PageWidth, PageHeight)
	render.Text(&buf, PageWidth/2, titleY, 10, "middle", "bold", fmt.Sprintf("Block %s Layout", table.BlockName(id)))
	for _, r := range recs {
		if r.Bounds == nil {
			continue
		}
		x := ox + (r.Bounds.XStart-minX)*scale
		y := bodyTop + (maxY-r.Bounds.YStop)*scale
		w := (r.Bounds.XStop - r.Bounds.XStart) * scale
		h := (r.Bounds.YStop - r.Bounds.YStart) * scale
		fmt.Fprintf(&buf, `  <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="black" stroke-width="0.3"/>`+"\n",
			x, y, w, h, cellFill)
		if r.IsAssigned() {
			render.RotatedText(&buf, x+w/2, y+h/2, 4, -90, r.Label)
		}
	}
	render.CloseSVG(&buf)
	return buf.Bytes()
}

func coord(v float64) string {
	return strconv.FormatFloat(table.Round2(v), 'f', -1, 64)
}
