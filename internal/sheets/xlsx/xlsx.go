// Package xlsx is a store backed by a local workbook file. Every write is
// saved to disk before it returns.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"barjas/internal/core"
	ports "barjas/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	path string
}

var _ ports.Store = (*Store)(nil)

// Open checks that path holds a readable workbook.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("missing XLSX_PATH")
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	_ = f.Close()
	return &Store{path: path}, nil
}

// Create writes a new workbook at path holding the given sheets, then opens it.
func Create(path string, sheets map[string]core.RawSheet, order []string) (*Store, error) {
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			vals := make([]any, len(row))
			for c, v := range row {
				vals[c] = userEntered(v)
			}
			if err := f.SetSheetRow(name, cell, &vals); err != nil {
				return nil, fmt.Errorf("write %s!%s: %w", name, cell, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook %s: %w", path, err)
	}
	return &Store{path: path}, nil
}

func (s *Store) ListWorksheets(ctx context.Context) ([]string, error) {
	var out []string
	err := s.view(ctx, func(f *excelize.File) error {
		out = f.GetSheetList()
		return nil
	})
	return out, err
}

func (s *Store) ReadAll(ctx context.Context, sheet string) (core.RawSheet, error) {
	var out core.RawSheet
	err := s.view(ctx, func(f *excelize.File) error {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			return fmt.Errorf("sheet %q not found", sheet)
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read %s: %w", sheet, err)
		}
		out = rows
		return nil
	})
	return out, err
}

func (s *Store) WriteRange(ctx context.Context, sheet string, req core.WriteRequest) error {
	return s.update(ctx, func(f *excelize.File) error {
		for i, row := range req.Grid() {
			for j, v := range row {
				cell, err := excelize.CoordinatesToCellName(req.StartCol+j, req.StartRow+i)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(sheet, cell, userEntered(v)); err != nil {
					return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
				}
			}
		}
		return nil
	})
}

func (s *Store) ClearRange(ctx context.Context, sheet string, rangeA1 string) error {
	from, to, ok := strings.Cut(rangeA1, ":")
	if !ok {
		to = from
	}
	c1, r1, err := excelize.CellNameToCoordinates(from)
	if err != nil {
		return fmt.Errorf("clear %s: %w", rangeA1, err)
	}
	c2, r2, err := excelize.CellNameToCoordinates(to)
	if err != nil {
		return fmt.Errorf("clear %s: %w", rangeA1, err)
	}
	return s.update(ctx, func(f *excelize.File) error {
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				cell, _ := excelize.CoordinatesToCellName(c, r)
				if err := f.SetCellValue(sheet, cell, nil); err != nil {
					return fmt.Errorf("clear %s!%s: %w", sheet, cell, err)
				}
			}
		}
		return nil
	})
}

func (s *Store) view(ctx context.Context, fn func(*excelize.File) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return fn(f)
}

func (s *Store) update(ctx context.Context, fn func(*excelize.File) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// userEntered mimics typing v into a cell: plain numbers become numeric
// cells, everything else stays text.
func userEntered(v string) any {
	if v == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return f
	}
	return v
}
