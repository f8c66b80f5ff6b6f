// Package worker consumes sheet.saved events outside the web process.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"

	"barjas/internal/amqp"
	"barjas/internal/storage"
)

// SaveHistory is the read side of the save log.
type SaveHistory interface {
	History(ctx context.Context, sheet string, limit int) ([]storage.SaveRecord, error)
}

// Stats counts handled events.
type Stats struct {
	Processed int64
	Matched   int64
	Unmatched int64
}

// SaveAuditor logs every sheet.saved event and, when a save log is
// available, cross-checks the event against it.
type SaveAuditor struct {
	history   SaveHistory
	lookback  int
	processed atomic.Int64
	matched   atomic.Int64
	unmatched atomic.Int64
}

// NewSaveAuditor checks events against the last lookback saves of their
// sheet. history may be nil.
func NewSaveAuditor(history SaveHistory, lookback int) *SaveAuditor {
	if lookback <= 0 {
		lookback = 50
	}
	return &SaveAuditor{history: history, lookback: lookback}
}

// HandleSheetSaved never fails on a missing log entry: the event is still
// acknowledged so one bad record cannot block the queue. Only a failing
// history lookup is returned, which requeues the message.
func (a *SaveAuditor) HandleSheetSaved(ctx context.Context, msg *amqp.SheetSavedMessage) error {
	a.processed.Add(1)
	slog.InfoContext(ctx, "Sheet saved event",
		"save_id", msg.SaveID,
		"sheet", msg.Sheet,
		"range", msg.Range,
		"rows", msg.Rows,
		"cols", msg.Cols,
		"cleared", msg.ClearedRange,
		"session", msg.SessionID,
		"timestamp", msg.Timestamp)

	if a.history == nil || msg.SaveID == 0 {
		return nil
	}
	recs, err := a.history.History(ctx, msg.Sheet, a.lookback)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if rec.ID != msg.SaveID {
			continue
		}
		if rec.Range != msg.Range || rec.Status != storage.StatusOK {
			slog.WarnContext(ctx, "Save log disagrees with event",
				"save_id", msg.SaveID,
				"logged_range", rec.Range,
				"event_range", msg.Range,
				"status", rec.Status)
			a.unmatched.Add(1)
			return nil
		}
		a.matched.Add(1)
		return nil
	}
	slog.WarnContext(ctx, "Saved event has no save log entry", "save_id", msg.SaveID, "sheet", msg.Sheet)
	a.unmatched.Add(1)
	return nil
}

func (a *SaveAuditor) Stats() Stats {
	return Stats{
		Processed: a.processed.Load(),
		Matched:   a.matched.Load(),
		Unmatched: a.unmatched.Load(),
	}
}
