package core

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPlaceholder names a header column whose cells are all empty.
const DefaultPlaceholder = "Kolom"

// Reconciler collapses header rows into one unique column name per column.
type Reconciler struct {
	Placeholder string
	Classifier  *Classifier
}

// Split separates the first headerRows rows from the data rows. A sheet with
// fewer rows yields a short header block and no data.
func Split(raw RawSheet, headerRows int) (header, data RawSheet) {
	if headerRows < 0 {
		headerRows = 0
	}
	if headerRows > len(raw) {
		headerRows = len(raw)
	}
	return raw[:headerRows], raw[headerRows:]
}

// Labels merges each header column top to bottom and makes the result unique.
// The number of labels equals the widest header row.
func (r Reconciler) Labels(header RawSheet) []string {
	n := header.Width()
	merged := make([]string, n)
	for c := 0; c < n; c++ {
		parts := make([]string, 0, len(header))
		for row := range header {
			if v := strings.TrimSpace(header.Cell(row, c)); v != "" {
				parts = append(parts, v)
			}
		}
		label := strings.Join(parts, " ")
		if label == "" {
			label = r.placeholder()
		}
		merged[c] = label
	}
	return Disambiguate(merged)
}

// Disambiguate keeps the first occurrence of a label and suffixes the k-th
// repeat with "_k", starting at 2. A suffixed name that is already taken
// (a literal "Nilai_2" header, say) moves on to the next free k.
func Disambiguate(labels []string) []string {
	seen := make(map[string]int, len(labels))
	used := make(map[string]bool, len(labels))
	out := make([]string, len(labels))
	for i, l := range labels {
		seen[l]++
		n := seen[l]
		name := l
		if n > 1 {
			name = l + "_" + strconv.Itoa(n)
		}
		for used[name] {
			n++
			name = l + "_" + strconv.Itoa(n)
		}
		seen[l] = n
		used[name] = true
		out[i] = name
	}
	return out
}

// Reconcile builds a table from a header block and the data rows below it.
// Data rows are padded with "" or truncated to the header width.
func (r Reconciler) Reconcile(header, data RawSheet) *Table {
	labels := r.Labels(header)
	t := &Table{Columns: r.columns(labels), Rows: make([][]Value, 0, len(data))}
	for i := range data {
		row := make([]Value, len(labels))
		for c := range labels {
			row[c] = Text(data.Cell(i, c))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ReconcileSheet reconciles raw with data starting right after headerRows.
func (r Reconciler) ReconcileSheet(raw RawSheet, headerRows int) *Table {
	return r.ReconcileAt(raw, headerRows, AnchorBelow(headerRows))
}

// SplitAt separates the header block from the data rows that begin at
// anchor, so the table lines up with the range it is written back to. Rows
// between the header block and the anchor belong to neither part. Columns
// left of the anchor are dropped from both.
func SplitAt(raw RawSheet, headerRows int, anchor Anchor) (header, data RawSheet) {
	header, data = Split(raw, headerRows)
	if skip := anchor.Row - 1 - len(header); skip > 0 {
		data = data[min(skip, len(data)):]
	}
	return dropColumns(header, anchor.Col-1), dropColumns(data, anchor.Col-1)
}

func dropColumns(raw RawSheet, n int) RawSheet {
	if n <= 0 {
		return raw
	}
	out := make(RawSheet, len(raw))
	for i, row := range raw {
		if n < len(row) {
			out[i] = row[n:]
		}
	}
	return out
}

// ReconcileAt reconciles raw with its data block starting at anchor.
func (r Reconciler) ReconcileAt(raw RawSheet, headerRows int, anchor Anchor) *Table {
	header, data := SplitAt(raw, headerRows, anchor)
	return r.Reconcile(header, data)
}

// FindMarkerRow returns the index of the first row with a cell containing
// marker, compared case-insensitively.
func FindMarkerRow(raw RawSheet, marker string) (int, bool) {
	want := strings.ToUpper(marker)
	for i, row := range raw {
		for _, cell := range row {
			if strings.Contains(strings.ToUpper(cell), want) {
				return i, true
			}
		}
	}
	return -1, false
}

// ReconcileAtMarker treats the first row matching marker as the only header
// row. Columns with an empty header are dropped and a repeated header keeps
// only its first column.
func (r Reconciler) ReconcileAtMarker(raw RawSheet, marker string) (*Table, error) {
	at, ok := FindMarkerRow(raw, marker)
	if !ok {
		return nil, fmt.Errorf("%w: no row contains %q", ErrHeaderMarkerNotFound, marker)
	}
	header := raw[at]
	data := raw[at+1:]

	var (
		keep   []int
		labels []string
		seen   = map[string]bool{}
	)
	for c, cell := range header {
		label := strings.TrimSpace(cell)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		keep = append(keep, c)
		labels = append(labels, label)
	}

	t := &Table{Columns: r.columns(labels), Rows: make([][]Value, 0, len(data))}
	for i := range data {
		row := make([]Value, len(keep))
		for j, c := range keep {
			row[j] = Text(data.Cell(i, c))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (r Reconciler) columns(labels []string) []Column {
	cols := make([]Column, len(labels))
	for i, l := range labels {
		cols[i] = Column{Name: l, Role: r.Classifier.Classify(l)}
	}
	return cols
}

func (r Reconciler) placeholder() string {
	if r.Placeholder == "" {
		return DefaultPlaceholder
	}
	return r.Placeholder
}
