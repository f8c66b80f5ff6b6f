package storage

import (
	"context"
)

const createSaveLog = `-- name: CreateSaveLog :one
INSERT INTO save_log (session_id, sheet, range_a1, row_count, col_count, cleared_range, status, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, session_id, sheet, range_a1, row_count, col_count, cleared_range, status, error, created_at
`

type CreateSaveLogParams struct {
	SessionID    string
	Sheet        string
	RangeA1      string
	RowCount     int64
	ColCount     int64
	ClearedRange string
	Status       string
	Error        string
	CreatedAt    string
}

func (q *Queries) CreateSaveLog(ctx context.Context, arg CreateSaveLogParams) (SaveLog, error) {
	row := q.db.QueryRowContext(ctx, createSaveLog,
		arg.SessionID,
		arg.Sheet,
		arg.RangeA1,
		arg.RowCount,
		arg.ColCount,
		arg.ClearedRange,
		arg.Status,
		arg.Error,
		arg.CreatedAt,
	)
	var i SaveLog
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.Sheet,
		&i.RangeA1,
		&i.RowCount,
		&i.ColCount,
		&i.ClearedRange,
		&i.Status,
		&i.Error,
		&i.CreatedAt,
	)
	return i, err
}

const listSaveLogBySheet = `-- name: ListSaveLogBySheet :many
SELECT id, session_id, sheet, range_a1, row_count, col_count, cleared_range, status, error, created_at
FROM save_log
WHERE sheet = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

type ListSaveLogBySheetParams struct {
	Sheet string
	Limit int64
}

func (q *Queries) ListSaveLogBySheet(ctx context.Context, arg ListSaveLogBySheetParams) ([]SaveLog, error) {
	rows, err := q.db.QueryContext(ctx, listSaveLogBySheet, arg.Sheet, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SaveLog
	for rows.Next() {
		var i SaveLog
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.Sheet,
			&i.RangeA1,
			&i.RowCount,
			&i.ColCount,
			&i.ClearedRange,
			&i.Status,
			&i.Error,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countSaveLog = `-- name: CountSaveLog :one
SELECT COUNT(*) FROM save_log
`

func (q *Queries) CountSaveLog(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSaveLog)
	var count int64
	err := row.Scan(&count)
	return count, err
}
