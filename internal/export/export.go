// Package export writes a table to an .xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"barjas/internal/core"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook builds a single-sheet workbook named sheet: one header row with
// the column names, then one row per table row. Numbers stay numeric.
func Workbook(sheet string, t *core.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	name := sheetName(sheet)
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet %q: %w", name, err)
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.AutoFilter(name, "A1:"+last, nil); err != nil {
			f.Close()
			return nil, fmt.Errorf("auto filter: %w", err)
		}
	}
	return f, nil
}

// Write streams the workbook for t to w.
func Write(w io.Writer, sheet string, t *core.Table) error {
	f, err := Workbook(sheet, t)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename is the download name offered for sheet.
func Filename(sheet string) string {
	return sheetName(sheet) + ".xlsx"
}

func cellValue(v core.Value) any {
	if v.IsNull() {
		return nil
	}
	if v.IsNumber() {
		if f, ok := v.Float(); ok {
			return f
		}
		return nil
	}
	return v.String()
}

// sheetName strips the characters Excel rejects in sheet names and trims to
// 31 runes.
func sheetName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
		if len(out) == 31 {
			break
		}
	}
	if len(out) == 0 {
		return "Sheet1"
	}
	return string(out)
}
