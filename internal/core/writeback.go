package core

import (
	"fmt"
)

type (
	// Anchor is the 1-based sheet position of the first data cell.
	Anchor struct {
		Row int
		Col int
	}

	// WriteRequest is a rectangular range plus its values in row-major order.
	WriteRequest struct {
		Range    string
		StartRow int
		StartCol int
		EndRow   int
		EndCol   int
		Values   []string
	}
)

// DefaultAnchor is A5: four header rows, data from row 5.
var DefaultAnchor = Anchor{Row: 5, Col: 1}

// AnchorBelow returns the anchor for data starting right after headerRows.
func AnchorBelow(headerRows int) Anchor {
	return Anchor{Row: headerRows + 1, Col: 1}
}

func (a Anchor) Validate() error {
	if a.Row < 1 || a.Col < 1 {
		return fmt.Errorf("invalid anchor row=%d col=%d: must be 1-based", a.Row, a.Col)
	}
	return nil
}

func (a Anchor) String() string {
	cell, err := CellName(a.Col, a.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", a.Row, a.Col)
	}
	return cell
}

// Rows returns the number of rows covered by the request.
func (w WriteRequest) Rows() int { return w.EndRow - w.StartRow + 1 }

// Cols returns the number of columns covered by the request.
func (w WriteRequest) Cols() int { return w.EndCol - w.StartCol + 1 }

// Grid reshapes Values into rows of Cols() cells.
func (w WriteRequest) Grid() [][]string {
	cols := w.Cols()
	if cols <= 0 {
		return nil
	}
	out := make([][]string, 0, w.Rows())
	for i := 0; i+cols <= len(w.Values); i += cols {
		out = append(out, w.Values[i:i+cols])
	}
	return out
}

// BuildWriteRequest computes the range covering t at anchor and flattens its
// cells. The range follows the table's current size, which may differ from
// the size it was loaded with.
func BuildWriteRequest(t *Table, anchor Anchor) (WriteRequest, error) {
	if err := anchor.Validate(); err != nil {
		return WriteRequest{}, err
	}
	rows, cols := len(t.Rows), len(t.Columns)
	if rows == 0 || cols == 0 {
		return WriteRequest{}, fmt.Errorf("%w: table has %d rows and %d columns", ErrNothingToWrite, rows, cols)
	}
	endRow := anchor.Row + rows - 1
	endCol := anchor.Col + cols - 1
	rng, err := RangeName(anchor.Row, anchor.Col, endRow, endCol)
	if err != nil {
		return WriteRequest{}, err
	}

	values := make([]string, 0, rows*cols)
	for _, row := range t.Rows {
		for c := 0; c < cols; c++ {
			if c < len(row) {
				values = append(values, row[c].String())
			} else {
				values = append(values, "")
			}
		}
	}
	return WriteRequest{
		Range:    rng,
		StartRow: anchor.Row,
		StartCol: anchor.Col,
		EndRow:   endRow,
		EndCol:   endCol,
		Values:   values,
	}, nil
}

// RangeName formats 1-based bounds as an A1 range such as "A5:AA20".
func RangeName(startRow, startCol, endRow, endCol int) (string, error) {
	from, err := CellName(startCol, startRow)
	if err != nil {
		return "", fmt.Errorf("range start: %w", err)
	}
	to, err := CellName(endCol, endRow)
	if err != nil {
		return "", fmt.Errorf("range end: %w", err)
	}
	return from + ":" + to, nil
}

// ColumnName converts a 1-based column number to its bijective base-26
// letters: 1 is A, 27 is AA, 18278 is ZZZ. Unlike xlsx files, Google Sheets
// grids are not capped at column XFD.
func ColumnName(col int) (string, error) {
	if col < 1 {
		return "", fmt.Errorf("invalid column %d: must be 1-based", col)
	}
	var buf []byte
	for col > 0 {
		col--
		buf = append(buf, byte('A'+col%26))
		col /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// CellName formats a 1-based column and row as an A1 cell such as "AA20".
func CellName(col, row int) (string, error) {
	if row < 1 {
		return "", fmt.Errorf("invalid row %d: must be 1-based", row)
	}
	letters, err := ColumnName(col)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", letters, row), nil
}

// StaleRange returns the range of rows that held data before the table
// shrank from previousRows to currentRows. ok is false when nothing is stale.
func StaleRange(anchor Anchor, previousRows, currentRows, cols int) (string, bool) {
	if previousRows <= currentRows || cols <= 0 {
		return "", false
	}
	start := anchor.Row + currentRows
	end := anchor.Row + previousRows - 1
	rng, err := RangeName(start, anchor.Col, end, anchor.Col+cols-1)
	if err != nil {
		return "", false
	}
	return rng, true
}
