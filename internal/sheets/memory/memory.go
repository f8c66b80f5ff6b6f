package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"barjas/internal/core"
	ports "barjas/internal/sheets"
)

// Store keeps worksheets in memory. It backs local development and tests.
type Store struct {
	mu     sync.Mutex
	order  []string
	sheets map[string]core.RawSheet
}

var _ ports.Store = (*Store)(nil)

// New copies sheets into a store. order fixes the tab order; sheets missing
// from order are appended alphabetically.
func New(sheets map[string]core.RawSheet, order ...string) *Store {
	s := &Store{sheets: make(map[string]core.RawSheet, len(sheets))}
	seen := map[string]bool{}
	for _, name := range order {
		if raw, ok := sheets[name]; ok && !seen[name] {
			s.order = append(s.order, name)
			s.sheets[name] = cloneRaw(raw)
			seen[name] = true
		}
	}
	var rest []string
	for name := range sheets {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		s.order = append(s.order, name)
		s.sheets[name] = cloneRaw(sheets[name])
	}
	return s
}

// NewFromDir seeds one worksheet per *.csv file in base, named after the
// file. Falls back to the demo workbook when base holds no CSV files.
func NewFromDir(base string) (*Store, error) {
	paths, err := filepath.Glob(filepath.Join(base, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", base, err)
	}
	if len(paths) == 0 {
		return Demo(), nil
	}
	sheets := make(map[string]core.RawSheet, len(paths))
	for _, p := range paths {
		raw, err := readCSV(p)
		if err != nil {
			return nil, err
		}
		sheets[strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))] = raw
	}
	return New(sheets), nil
}

func (s *Store) ListWorksheets(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func (s *Store) ReadAll(_ context.Context, sheet string) (core.RawSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return cloneRaw(raw), nil
}

func (s *Store) WriteRange(_ context.Context, sheet string, req core.WriteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	for i, row := range req.Grid() {
		for j, v := range row {
			raw = set(raw, req.StartRow+i-1, req.StartCol+j-1, v)
		}
	}
	s.sheets[sheet] = raw
	return nil
}

func (s *Store) ClearRange(_ context.Context, sheet string, rangeA1 string) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	for r := r1 - 1; r < r2 && r < len(raw); r++ {
		for c := c1 - 1; c < c2 && c < len(raw[r]); c++ {
			raw[r][c] = ""
		}
	}
	return nil
}

// set writes v at zero-based (r, c), growing the grid as needed.
func set(raw core.RawSheet, r, c int, v string) core.RawSheet {
	for len(raw) <= r {
		raw = append(raw, nil)
	}
	for len(raw[r]) <= c {
		raw[r] = append(raw[r], "")
	}
	raw[r][c] = v
	return raw
}

func cloneRaw(raw core.RawSheet) core.RawSheet {
	out := make(core.RawSheet, len(raw))
	for i, row := range raw {
		out[i] = append([]string(nil), row...)
	}
	return out
}

func readCSV(path string) (core.RawSheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}
