// Package core provides numeric normalization for spreadsheet text.
//
// Sheet cells arrive as formatted text ("1,234", "45%", ""). The normalizer
// turns them into float64 values for charting, using NaN as the
// "not a number" marker.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MissingPolicy decides what a blank or null cell becomes.
//
// MissingAsZero maps blanks to 0, which makes a true zero and an empty cell
// indistinguishable. It is the default because existing reports sum and plot
// blank cells as zero. MissingAsNaN keeps blanks out of aggregates instead.
type MissingPolicy int

const (
	MissingAsZero MissingPolicy = iota
	MissingAsNaN
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingAsNaN:
		return "nan"
	default:
		return "zero"
	}
}

// ParseMissingPolicy accepts "zero" or "nan" (case-insensitive).
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return MissingAsZero, nil
	case "nan":
		return MissingAsNaN, nil
	default:
		return MissingAsZero, fmt.Errorf("invalid missing value policy %q: must be zero or nan", s)
	}
}

type Normalizer struct {
	Missing MissingPolicy
}

// ParseNumber converts sheet text to a number.
//
// Examples:
//
//	ParseNumber("1,234") -> 1234
//	ParseNumber("45%")   -> 45
//	ParseNumber("")      -> 0 (MissingAsZero) or NaN (MissingAsNaN)
//	ParseNumber("abc")   -> NaN
func (n Normalizer) ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return n.missing()
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Normalize converts a cell. Numbers pass through unchanged.
func (n Normalizer) Normalize(v Value) float64 {
	if v.IsNull() {
		return n.missing()
	}
	if f, ok := v.Float(); ok {
		return f
	}
	return n.ParseNumber(v.String())
}

// NormalizeColumns returns a copy of t where the named columns hold numbers.
// Names that are not in the schema are ignored.
func (n Normalizer) NormalizeColumns(t *Table, names ...string) *Table {
	out := t.Clone()
	for _, name := range names {
		c, ok := out.Lookup(name)
		if !ok {
			continue
		}
		for _, row := range out.Rows {
			row[c] = Number(n.Normalize(row[c]))
		}
	}
	return out
}

func (n Normalizer) missing() float64 {
	if n.Missing == MissingAsNaN {
		return math.NaN()
	}
	return 0
}
