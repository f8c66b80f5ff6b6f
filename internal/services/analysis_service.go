package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"barjas/internal/cache"
	"barjas/internal/core"
	"barjas/internal/report"
	"barjas/internal/sheets"
)

// AnalysisResult is a computed view plus the charts rendered from it.
type AnalysisResult struct {
	Sheet   string          `json:"sheet"`
	Report  report.Report   `json:"report"`
	Figures []report.Figure `json:"figures"`
	// Columns lists the table's column names, for the data preview.
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// AnalysisService reads the procurement sheet, locates its header by the
// marker column and computes report views. The sheet is read-only here, so
// reconciled tables are cached for a short while.
type AnalysisService struct {
	reader     sheets.SheetReader
	reconciler core.Reconciler
	selector   *report.Selector
	sheet      string
	marker     string
	tables     *cache.LRUCache[*core.Table]
	ttl        time.Duration
}

func NewAnalysisService(reader sheets.SheetReader, reconciler core.Reconciler, selector *report.Selector, sheet, marker string, ttl time.Duration) *AnalysisService {
	return &AnalysisService{
		reader:     reader,
		reconciler: reconciler,
		selector:   selector,
		sheet:      sheet,
		marker:     marker,
		tables:     cache.NewLRUCache[*core.Table](1, ttl),
		ttl:        ttl,
	}
}

func (s *AnalysisService) Sheet() string { return s.sheet }

// Tables exposes the table cache for periodic cleanup.
func (s *AnalysisService) Tables() cache.Cleaner { return s.tables }

// Table returns the reconciled analysis table.
func (s *AnalysisService) Table(ctx context.Context) (*core.Table, error) {
	if t, ok := s.tables.Get(s.sheet); ok {
		return t, nil
	}
	raw, err := s.reader.ReadAll(ctx, s.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", s.sheet, err)
	}
	t, err := s.reconciler.ReconcileAtMarker(raw, s.marker)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", s.sheet, err)
	}
	if s.ttl > 0 {
		s.tables.Set(s.sheet, t)
	}
	slog.DebugContext(ctx, "Analysis table loaded", "sheet", s.sheet, "columns", len(t.Columns), "rows", len(t.Rows))
	return t, nil
}

// Analyze computes the view for kind.
func (s *AnalysisService) Analyze(ctx context.Context, kind report.Kind) (AnalysisResult, error) {
	t, err := s.Table(ctx)
	if err != nil {
		return AnalysisResult{}, err
	}
	r, err := s.selector.Select(kind, t)
	if err != nil {
		return AnalysisResult{}, err
	}
	return AnalysisResult{
		Sheet:   s.sheet,
		Report:  r,
		Figures: report.Figures(r),
		Columns: t.Names(),
		Rows:    len(t.Rows),
	}, nil
}

// Invalidate forgets the cached table so the next call rereads the sheet.
func (s *AnalysisService) Invalidate() { s.tables.Delete(s.sheet) }
