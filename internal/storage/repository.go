package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// SaveRecord is one write-back attempt.
type SaveRecord struct {
	ID           int64
	SessionID    string
	Sheet        string
	Range        string
	Rows         int
	Cols         int
	ClearedRange string
	Status       string
	Error        string
	CreatedAt    time.Time
}

// SQLiteRepository persists the save history.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RecordSave appends rec to the log and returns it with ID and CreatedAt set.
func (r *SQLiteRepository) RecordSave(ctx context.Context, rec SaveRecord) (SaveRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	row, err := r.queries.CreateSaveLog(ctx, CreateSaveLogParams{
		SessionID:    rec.SessionID,
		Sheet:        rec.Sheet,
		RangeA1:      rec.Range,
		RowCount:     int64(rec.Rows),
		ColCount:     int64(rec.Cols),
		ClearedRange: rec.ClearedRange,
		Status:       rec.Status,
		Error:        rec.Error,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return SaveRecord{}, fmt.Errorf("create save log: %w", err)
	}

	slog.InfoContext(ctx, "Save recorded",
		"id", row.ID,
		"sheet", row.Sheet,
		"range", row.RangeA1,
		"status", row.Status)
	return fromRow(row)
}

// History returns the latest saves of sheet, newest first.
func (r *SQLiteRepository) History(ctx context.Context, sheet string, limit int) ([]SaveRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.queries.ListSaveLogBySheet(ctx, ListSaveLogBySheetParams{Sheet: sheet, Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("list save log for %s: %w", sheet, err)
	}
	out := make([]SaveRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountSaveLog(ctx)
	if err != nil {
		return 0, fmt.Errorf("count save log: %w", err)
	}
	return n, nil
}

func fromRow(row SaveLog) (SaveRecord, error) {
	created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return SaveRecord{}, fmt.Errorf("parse created_at of save %d: %w", row.ID, err)
	}
	return SaveRecord{
		ID:           row.ID,
		SessionID:    row.SessionID,
		Sheet:        row.Sheet,
		Range:        row.RangeA1,
		Rows:         int(row.RowCount),
		Cols:         int(row.ColCount),
		ClearedRange: row.ClearedRange,
		Status:       row.Status,
		Error:        row.Error,
		CreatedAt:    created,
	}, nil
}
