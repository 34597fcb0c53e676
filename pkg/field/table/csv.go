package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/fieldtrial/pkg/errors"
)

var (
	baseHeader   = []string{"Block", "Row", "Col", "X", "Y", "Label"}
	boundsHeader = []string{"X_start", "X_stop", "Y_start", "Y_stop"}
)

// BlockName formats a block ID the way field crews write it.
func BlockName(id int) string {
	if id == AnchorBlock {
		return "T0"
	}
	return "B" + strconv.Itoa(id)
}

// ParseBlockName is the inverse of [BlockName]. Bare integers are accepted.
func ParseBlockName(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "T0") {
		return AnchorBlock, nil
	}
	digits := s
	if len(digits) > 0 && (digits[0] == 'B' || digits[0] == 'b') {
		digits = digits[1:]
	}
	if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, errors.New(errors.ErrCodeParse, "invalid block id %q", s)
	}
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeParse, err, "invalid block id %q", s)
	}
	return id, nil
}

// WriteCSV encodes the table as CSV. Bound columns are written only when
// every record carries bounds.
func WriteCSV(t *Table, w io.Writer) error {
	withBounds := t.HasBounds()
	header := baseHeader
	if withBounds {
		header = append(append([]string(nil), baseHeader...), boundsHeader...)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range t.Records {
		row := []string{
			BlockName(r.Block),
			strconv.Itoa(r.Row),
			strconv.Itoa(r.Col),
			formatCoord(r.X),
			formatCoord(r.Y),
			r.Label,
		}
		if withBounds {
			row = append(row,
				formatCoord(r.Bounds.XStart),
				formatCoord(r.Bounds.XStop),
				formatCoord(r.Bounds.YStart),
				formatCoord(r.Bounds.YStop))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a table written by [WriteCSV]. Columns are matched by
// header name, so extra columns and reordering are tolerated.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "read csv")
	}
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeParse, "csv is empty")
	}

	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	for _, h := range baseHeader {
		if _, ok := idx[h]; !ok {
			return nil, errors.New(errors.ErrCodeParse, "csv missing column %q", h)
		}
	}
	withBounds := true
	for _, h := range boundsHeader {
		if _, ok := idx[h]; !ok {
			withBounds = false
		}
	}

	t := &Table{Records: make([]Record, 0, len(rows)-1)}
	for n, row := range rows[1:] {
		line := n + 2
		get := func(col string) string {
			i := idx[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		rec, err := parseRecord(get, withBounds)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "line %d", line)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func parseRecord(get func(string) string, withBounds bool) (Record, error) {
	var rec Record
	var err error
	if rec.Block, err = ParseBlockName(get("Block")); err != nil {
		return rec, err
	}
	if rec.Row, err = strconv.Atoi(get("Row")); err != nil {
		return rec, fmt.Errorf("row: %w", err)
	}
	if rec.Col, err = strconv.Atoi(get("Col")); err != nil {
		return rec, fmt.Errorf("col: %w", err)
	}
	if rec.X, err = strconv.ParseFloat(get("X"), 64); err != nil {
		return rec, fmt.Errorf("x: %w", err)
	}
	if rec.Y, err = strconv.ParseFloat(get("Y"), 64); err != nil {
		return rec, fmt.Errorf("y: %w", err)
	}
	rec.Label = get("Label")
	if !withBounds {
		return rec, nil
	}

	var b Bounds
	for _, f := range []struct {
		col string
		dst *float64
	}{
		{"X_start", &b.XStart}, {"X_stop", &b.XStop},
		{"Y_start", &b.YStart}, {"Y_stop", &b.YStop},
	} {
		if *f.dst, err = strconv.ParseFloat(get(f.col), 64); err != nil {
			return rec, fmt.Errorf("%s: %w", strings.ToLower(f.col), err)
		}
	}
	rec.Bounds = &b
	return rec, nil
}

// ReadCSVFile reads a CSV table from path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSVFile writes the table to path as CSV.
func WriteCSVFile(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(t, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// MarshalJSON encodes the table as indented JSON.
func MarshalJSON(t *Table) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// UnmarshalJSON decodes a table produced by [MarshalJSON].
func UnmarshalJSON(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode table")
	}
	return &t, nil
}

// Round2 rounds v to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', -1, 64)
}
