package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// FontFamily is the font stack used by every SVG the renderers emit.
const FontFamily = `Helvetica, Arial, sans-serif`

// EscapeXML escapes s for use in SVG text and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// OpenSVG writes the root element of a w × h document.
func OpenSVG(buf *bytes.Buffer, w, h float64) {
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	fmt.Fprintf(buf, `  <rect x="0" y="0" width="%.1f" height="%.1f" fill="white"/>`+"\n", w, h)
}

// CloseSVG ends a document opened by [OpenSVG].
func CloseSVG(buf *bytes.Buffer) {
	buf.WriteString("</svg>\n")
}

// Text writes a single line of text anchored at (x, y).
func Text(buf *bytes.Buffer, x, y, size float64, anchor, weight, s string) {
	fmt.Fprintf(buf, `  <text x="%.2f" y="%.2f" font-family="%s" font-size="%.1f" text-anchor="%s" font-weight="%s">%s</text>`+"\n",
		x, y, FontFamily, size, anchor, weight, EscapeXML(s))
}

// RotatedText writes text centered on (x, y) and rotated by deg degrees.
func RotatedText(buf *bytes.Buffer, x, y, size, deg float64, s string) {
	fmt.Fprintf(buf, `  <text x="%.2f" y="%.2f" font-family="%s" font-size="%.1f" text-anchor="middle" dominant-baseline="central" transform="rotate(%.0f %.2f %.2f)">%s</text>`+"\n",
		x, y, FontFamily, size, deg, x, y, EscapeXML(s))
}
