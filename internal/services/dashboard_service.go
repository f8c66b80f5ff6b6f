package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"barjas/internal/amqp"
	"barjas/internal/cache"
	"barjas/internal/core"
	"barjas/internal/session"
	"barjas/internal/sheets"
	"barjas/internal/storage"
)

const catalogKey = "worksheets"

type (
	// SaveLogger records write-back attempts.
	SaveLogger interface {
		RecordSave(ctx context.Context, rec storage.SaveRecord) (storage.SaveRecord, error)
		History(ctx context.Context, sheet string, limit int) ([]storage.SaveRecord, error)
	}

	// EventPublisher announces successful saves.
	EventPublisher interface {
		PublishSheetSaved(ctx context.Context, msg *amqp.SheetSavedMessage) error
	}

	DashboardOptions struct {
		HeaderRows       int
		Anchor           core.Anchor
		Allowed          sheets.AllowList
		ClearRemovedRows bool
		CatalogTTL       time.Duration
	}

	// SaveResult describes a completed write-back.
	SaveResult struct {
		Sheet   string
		Request core.WriteRequest
		// Cleared is the range emptied below the table, or "".
		Cleared string
		// ClearErr is set when the table was written but emptying the rows
		// below it failed. The save itself still counts as done.
		ClearErr error
		SavedAt  time.Time
	}
)

var ErrHistoryDisabled = errors.New("save history is disabled")

// DashboardService loads allow-listed worksheets into session workspaces,
// applies grid edits and writes tables back to the range they came from.
type DashboardService struct {
	store      sheets.Store
	reconciler core.Reconciler
	opts       DashboardOptions
	catalog    *cache.LRUCache[[]string]
	loads      singleflight.Group
	history    SaveLogger
	events     EventPublisher
	now        func() time.Time
}

// NewDashboardService wires the service. history and events may be nil.
func NewDashboardService(store sheets.Store, reconciler core.Reconciler, opts DashboardOptions, history SaveLogger, events EventPublisher) *DashboardService {
	if opts.HeaderRows <= 0 {
		opts.HeaderRows = 4
	}
	if opts.Anchor.Validate() != nil || opts.Anchor.Row <= opts.HeaderRows {
		opts.Anchor = core.AnchorBelow(opts.HeaderRows)
	}
	return &DashboardService{
		store:      store,
		reconciler: reconciler,
		opts:       opts,
		catalog:    cache.NewLRUCache[[]string](1, opts.CatalogTTL),
		history:    history,
		events:     events,
		now:        time.Now,
	}
}

// Catalog exposes the worksheet list cache for periodic cleanup.
func (s *DashboardService) Catalog() cache.Cleaner { return s.catalog }

// Worksheets returns every worksheet title, cached for CatalogTTL. Concurrent
// misses share one remote call.
func (s *DashboardService) Worksheets(ctx context.Context) ([]string, error) {
	if titles, ok := s.catalog.Get(catalogKey); ok {
		return titles, nil
	}
	v, err, _ := s.loads.Do(catalogKey, func() (any, error) {
		titles, err := s.store.ListWorksheets(ctx)
		if err != nil {
			return nil, fmt.Errorf("list worksheets: %w", err)
		}
		if s.opts.CatalogTTL > 0 {
			s.catalog.Set(catalogKey, titles)
		}
		return titles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Sheets returns the allow-listed worksheet titles in tab order.
func (s *DashboardService) Sheets(ctx context.Context) ([]string, error) {
	all, err := s.Worksheets(ctx)
	if err != nil {
		return nil, err
	}
	return s.opts.Allowed.Filter(all), nil
}

// Resolve maps a requested title to the store's spelling of an allowed sheet.
func (s *DashboardService) Resolve(ctx context.Context, title string) (string, error) {
	all, err := s.Worksheets(ctx)
	if err != nil {
		return "", err
	}
	return s.opts.Allowed.Check(title, all)
}

// Open returns the workspace's table for sheet, reading and reconciling it
// on first access only.
func (s *DashboardService) Open(ctx context.Context, ws *session.Workspace, title string) (session.Entry, error) {
	sheet, err := s.Resolve(ctx, title)
	if err != nil {
		return session.Entry{}, err
	}
	return ws.Open(ctx, sheet, func(ctx context.Context) (*session.Entry, error) {
		raw, err := s.read(ctx, sheet)
		if err != nil {
			return nil, err
		}
		table := s.reconciler.ReconcileAt(raw, s.opts.HeaderRows, s.opts.Anchor)
		slog.InfoContext(ctx, "Sheet loaded into session",
			"sheet", sheet,
			"session", ws.ID,
			"columns", len(table.Columns),
			"rows", len(table.Rows))
		return &session.Entry{
			Table:     table,
			Anchor:    s.opts.Anchor,
			SavedRows: len(table.Rows),
			LoadedAt:  s.now(),
		}, nil
	})
}

// read collapses concurrent reads of the same sheet into one remote call.
func (s *DashboardService) read(ctx context.Context, sheet string) (core.RawSheet, error) {
	v, err, _ := s.loads.Do("read:"+sheet, func() (any, error) {
		raw, err := s.store.ReadAll(ctx, sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(core.RawSheet), nil
}

// EditCell stores value as typed at (row, col), both zero-based.
func (s *DashboardService) EditCell(ctx context.Context, ws *session.Workspace, title string, row, col int, value string) (session.Entry, error) {
	return s.edit(ctx, ws, title, func(e *session.Entry) error {
		return e.Table.SetCell(row, col, core.Text(value))
	})
}

// InsertRow adds an empty row before at; a negative at appends.
func (s *DashboardService) InsertRow(ctx context.Context, ws *session.Workspace, title string, at int) (session.Entry, error) {
	return s.edit(ctx, ws, title, func(e *session.Entry) error {
		if at < 0 {
			at = len(e.Table.Rows)
		}
		return e.Table.InsertRow(at)
	})
}

func (s *DashboardService) DeleteRow(ctx context.Context, ws *session.Workspace, title string, row int) (session.Entry, error) {
	return s.edit(ctx, ws, title, func(e *session.Entry) error {
		return e.Table.DeleteRow(row)
	})
}

// ReplaceRows swaps in the full grid sent by the table widget.
func (s *DashboardService) ReplaceRows(ctx context.Context, ws *session.Workspace, title string, rows [][]string) (session.Entry, error) {
	values := make([][]core.Value, len(rows))
	for i, row := range rows {
		values[i] = make([]core.Value, len(row))
		for j, v := range row {
			values[i][j] = core.Text(v)
		}
	}
	return s.edit(ctx, ws, title, func(e *session.Entry) error {
		return e.Table.ReplaceRows(values)
	})
}

func (s *DashboardService) edit(ctx context.Context, ws *session.Workspace, title string, fn func(*session.Entry) error) (session.Entry, error) {
	entry, err := s.Open(ctx, ws, title)
	if err != nil {
		return session.Entry{}, err
	}
	return ws.Update(entry.Sheet, func(e *session.Entry) error {
		if err := fn(e); err != nil {
			return err
		}
		e.Dirty = true
		return nil
	})
}

// Save writes the workspace's table for sheet over the range computed from
// its current size. On failure the session keeps the edited table so the
// user can retry.
func (s *DashboardService) Save(ctx context.Context, ws *session.Workspace, title string) (SaveResult, error) {
	entry, err := s.Open(ctx, ws, title)
	if err != nil {
		return SaveResult{}, err
	}
	sheet := entry.Sheet

	req, err := core.BuildWriteRequest(entry.Table, entry.Anchor)
	if err != nil {
		return SaveResult{}, err
	}

	result := SaveResult{Sheet: sheet, Request: req}
	err = s.store.WriteRange(ctx, sheet, req)
	result.SavedAt = s.now()
	if err != nil {
		s.record(ctx, ws.ID, result, err)
		slog.ErrorContext(ctx, "Save failed", "sheet", sheet, "range", req.Range, "error", err)
		return SaveResult{}, fmt.Errorf("write %s!%s: %w", sheet, req.Range, err)
	}

	stale, hasStale := "", false
	if s.opts.ClearRemovedRows {
		stale, hasStale = core.StaleRange(entry.Anchor, entry.SavedRows, len(entry.Table.Rows), len(entry.Table.Columns))
	}
	if hasStale {
		if cerr := s.store.ClearRange(ctx, sheet, stale); cerr != nil {
			result.ClearErr = fmt.Errorf("clear %s!%s: %w", sheet, stale, cerr)
			slog.WarnContext(ctx, "Sheet saved but removed rows were not cleared",
				"sheet", sheet, "range", req.Range, "stale", stale, "error", cerr)
		} else {
			result.Cleared = stale
		}
	}

	rec := s.record(ctx, ws.ID, result, nil)

	if _, uerr := ws.Update(sheet, func(e *session.Entry) error {
		e.SavedRows = req.Rows()
		// Rows left uncleared stay tracked so the next save clears them.
		if result.ClearErr != nil && entry.SavedRows > e.SavedRows {
			e.SavedRows = entry.SavedRows
		}
		e.Dirty = false
		e.SavedAt = result.SavedAt
		return nil
	}); uerr != nil {
		slog.WarnContext(ctx, "Session entry vanished after save", "sheet", sheet, "error", uerr)
	}

	slog.InfoContext(ctx, "Sheet saved",
		"sheet", sheet,
		"range", req.Range,
		"rows", req.Rows(),
		"cols", req.Cols(),
		"cleared", result.Cleared)
	s.publish(ctx, ws.ID, result, rec.ID)
	return result, nil
}

func (s *DashboardService) record(ctx context.Context, sessionID string, res SaveResult, saveErr error) storage.SaveRecord {
	if s.history == nil {
		return storage.SaveRecord{}
	}
	rec := storage.SaveRecord{
		SessionID:    sessionID,
		Sheet:        res.Sheet,
		Range:        res.Request.Range,
		Rows:         res.Request.Rows(),
		Cols:         res.Request.Cols(),
		ClearedRange: res.Cleared,
		Status:       storage.StatusOK,
		CreatedAt:    res.SavedAt,
	}
	if saveErr != nil {
		rec.Status = storage.StatusError
		rec.Error = saveErr.Error()
	} else if res.ClearErr != nil {
		rec.Error = res.ClearErr.Error()
	}
	// A history failure never fails the save itself.
	out, err := s.history.RecordSave(ctx, rec)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record save", "sheet", res.Sheet, "error", err)
		return rec
	}
	return out
}

func (s *DashboardService) publish(ctx context.Context, sessionID string, res SaveResult, saveID int64) {
	if s.events == nil {
		return
	}
	msg := amqp.NewSheetSavedMessage(res.Sheet, res.Request.Range, res.Request.Rows(), res.Request.Cols())
	msg.SaveID = saveID
	msg.SessionID = sessionID
	msg.ClearedRange = res.Cleared
	msg.Timestamp = res.SavedAt.UTC()
	if err := s.events.PublishSheetSaved(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sheet saved message", "sheet", res.Sheet, "error", err)
	}
}

// Discard drops the session's edits for sheet; the next Open reloads it.
func (s *DashboardService) Discard(ctx context.Context, ws *session.Workspace, title string) error {
	sheet, err := s.Resolve(ctx, title)
	if err != nil {
		return err
	}
	ws.Discard(sheet)
	return nil
}

// History returns the latest saves of sheet, newest first.
func (s *DashboardService) History(ctx context.Context, title string, limit int) ([]storage.SaveRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	sheet, err := s.Resolve(ctx, title)
	if err != nil {
		return nil, err
	}
	return s.history.History(ctx, sheet, limit)
}

// HistoryEnabled reports whether saves are being recorded.
func (s *DashboardService) HistoryEnabled() bool { return s.history != nil }
