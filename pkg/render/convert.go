package render

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/matzehuels/fieldtrial/pkg/errors"
)

const installHint = "%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin"

// ToPDF converts SVG bytes to PDF using rsvg-convert.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPDF(svg []byte) ([]byte, error) {
	return rsvgConvert(svg, "pdf")
}

// ToPNG converts SVG bytes to PNG using rsvg-convert with the given scale factor.
// Scale of 2.0 produces a 2x resolution image.
func ToPNG(svg []byte, scale float64) ([]byte, error) {
	return rsvgConvert(svg, "png", "-z", fmt.Sprintf("%.2f", scale))
}

// PagesToPDF converts each SVG page to one page of a single PDF document.
// rsvg-convert only accepts multiple inputs as files, so pages are staged in
// a temporary directory.
func PagesToPDF(pages [][]byte) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no pages to convert")
	}
	if len(pages) == 1 {
		return ToPDF(pages[0])
	}
	if err := lookRsvg("pdf"); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "fieldtrial-pages-")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create page dir")
	}
	defer os.RemoveAll(dir)

	args := []string{"-f", "pdf"}
	for i, page := range pages {
		path := filepath.Join(dir, fmt.Sprintf("page-%03d.svg", i+1))
		if err := os.WriteFile(path, page, 0o600); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "write page %d", i+1)
		}
		args = append(args, path)
	}
	return run(nil, args)
}

func lookRsvg(format string) error {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		return errors.New(errors.ErrCodeUnsupported, installHint, format)
	}
	return nil
}

// rsvgConvert shells out to rsvg-convert for format conversion.
func rsvgConvert(svg []byte, format string, extraArgs ...string) ([]byte, error) {
	if err := lookRsvg(format); err != nil {
		return nil, err
	}
	args := append([]string{"-f", format}, extraArgs...)
	return run(svg, args)
}

func run(stdin []byte, args []string) ([]byte, error) {
	cmd := exec.Command("rsvg-convert", args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "rsvg-convert: %s", errBuf.String())
	}
	return out.Bytes(), nil
}
