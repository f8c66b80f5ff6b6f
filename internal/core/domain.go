package core

import (
	"errors"
	"math"
	"strconv"
)

const (
	RolePlain      Role = "plain"
	RoleAmount     Role = "amount"
	RolePercentage Role = "percentage"
	RoleDate       Role = "date"
)

const (
	kindNull valueKind = iota
	kindText
	kindNumber
)

type (
	// RawSheet is the text grid as returned by the store. Rows may be ragged.
	RawSheet [][]string

	// Role is the semantic category of a column, derived from its name.
	Role string

	valueKind uint8

	// Value is a single table cell: null, text or number.
	Value struct {
		kind valueKind
		text string
		num  float64
	}

	Column struct {
		Name string
		Role Role
	}

	// Table is a reconciled schema plus rows. Every row has exactly
	// len(Columns) values and rows keep the order of the sheet's data rows.
	Table struct {
		Columns []Column
		Rows    [][]Value
	}
)

var (
	ErrHeaderMarkerNotFound = errors.New("header marker not found")
	ErrNothingToWrite       = errors.New("nothing to write")
	ErrRowOutOfRange        = errors.New("row out of range")
	ErrColumnOutOfRange     = errors.New("column out of range")
	ErrUnknownColumn        = errors.New("unknown column")
	ErrRowWidth             = errors.New("row width does not match schema")
)

func Text(s string) Value { return Value{kind: kindText, text: s} }
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }
func Null() Value { return Value{} }
func (v Value) IsNull() bool { return v.kind == kindNull }
func (v Value) IsNumber() bool { return v.kind == kindNumber }

// Float returns the numeric payload; ok is false for text and null values.
func (v Value) Float() (f float64, ok bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the value the way it is written back to the sheet.
// Null and NaN render as the empty string.
func (v Value) String() string {
	switch v.kind {
	case kindText:
		return v.text
	case kindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return ""
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Cell returns the text at (r, c), or "" past the end of a short row.
func (s RawSheet) Cell(r, c int) string {
	if r < 0 || r >= len(s) || c < 0 || c >= len(s[r]) {
		return ""
	}
	return s[r][c]
}

// Width returns the length of the widest row.
func (s RawSheet) Width() int {
	w := 0
	for _, row := range s {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}
