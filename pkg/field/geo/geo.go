// Package geo aligns the local coordinate table with a surveyed GPS anchor.
//
// The anchor is a latitude given in degrees-minutes-seconds. It is converted
// to feet with a flat-earth factor ([FeetPerDegreeLatitude] by default) and the
// whole table is translated so the lowest Y of the anchor block lands on that
// value. Only Y is shifted: the anchor carries latitude alone, so X stays in
// local field units.
package geo

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
)

// FeetPerDegreeLatitude is the flat-earth conversion used by the field crews.
const FeetPerDegreeLatitude = 364000.0

var dmsPattern = regexp.MustCompile(`^(\d+)[\s\-:]+(\d+)[\s\-:]+(\d+)$`)

// DMS is a degrees-minutes-seconds angle.
type DMS struct {
	Degrees int
	Minutes int
	Seconds int
}

// ParseDMS parses three unsigned integers separated by runs of whitespace,
// hyphens or colons, such as "40-06-54", "40 06 54" or "40:06:54".
// Surrounding whitespace is ignored. Anything else is a PARSE_ERROR that
// echoes the input.
func ParseDMS(s string) (DMS, error) {
	m := dmsPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return DMS{}, errors.New(errors.ErrCodeParse,
			"invalid DMS %q: expected degrees, minutes and seconds such as 40-06-54", s)
	}
	var parts [3]int
	for i := range parts {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return DMS{}, errors.Wrap(errors.ErrCodeParse, err, "invalid DMS %q", s)
		}
		parts[i] = v
	}
	return DMS{Degrees: parts[0], Minutes: parts[1], Seconds: parts[2]}, nil
}

// Decimal returns the angle in decimal degrees.
func (d DMS) Decimal() float64 {
	return float64(d.Degrees) + float64(d.Minutes)/60 + float64(d.Seconds)/3600
}

// Feet converts the angle to feet at feetPerDegree.
func (d DMS) Feet(feetPerDegree float64) float64 {
	return d.Decimal() * feetPerDegree
}

// String formats the angle as D-MM-SS.
func (d DMS) String() string {
	return strconv.Itoa(d.Degrees) + "-" + pad2(d.Minutes) + "-" + pad2(d.Seconds)
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// Anchor ties a surveyed latitude to one block of the table.
type Anchor struct {
	DMS   string `toml:"dms" json:"dms"`
	Block int    `toml:"block" json:"block"`
}

// Reference returns the lowest Y of block in records, using the plot bounds
// when present and the cell center otherwise. It fails with NOT_FOUND when the
// block has no records.
func Reference(records []table.Record, block int) (float64, error) {
	found := false
	var ref float64
	for _, r := range records {
		if r.Block != block {
			continue
		}
		y := r.Y
		if r.Bounds != nil {
			y = r.Bounds.YStart
		}
		if !found || y < ref {
			ref = y
			found = true
		}
	}
	if !found {
		return 0, errors.New(errors.ErrCodeNotFound, "anchor block %s not in table", table.BlockName(block))
	}
	return ref, nil
}

// Offset returns how far the table must move so the anchor block's lowest Y
// equals the anchor latitude in feet. feetPerDegree must be positive.
func Offset(records []table.Record, block int, dms DMS, feetPerDegree float64) (float64, error) {
	if !(feetPerDegree > 0) || math.IsInf(feetPerDegree, 0) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "feet per degree must be positive, got %v", feetPerDegree)
	}
	ref, err := Reference(records, block)
	if err != nil {
		return 0, err
	}
	return dms.Feet(feetPerDegree) - ref, nil
}

// Apply returns a copy of records with Y (and the Y bounds, when present)
// shifted by the anchor offset. X is left as is.
// records is not modified.
func Apply(records []table.Record, anchor DMS, block int, feetPerDegree float64) ([]table.Record, error) {
	offset, err := Offset(records, block, anchor, feetPerDegree)
	if err != nil {
		return nil, err
	}
	return Shift(records, offset), nil
}

// Shift returns a copy of records translated vertically by offset. Values
// are not rounded; the CSV writer rounds on output.
func Shift(records []table.Record, offset float64) []table.Record {
	out := table.New(records).Clone().Records
	for i := range out {
		r := &out[i]
		r.Y += offset
		if r.Bounds != nil {
			r.Bounds.YStart += offset
			r.Bounds.YStop += offset
		}
	}
	return out
}

// ApplyString parses dms and applies it to t, returning a new table.
func ApplyString(t *table.Table, dms string, block int, feetPerDegree float64) (*table.Table, error) {
	d, err := ParseDMS(dms)
	if err != nil {
		return nil, err
	}
	recs, err := Apply(t.Records, d, block, feetPerDegree)
	if err != nil {
		return nil, err
	}
	return table.New(recs), nil
}
