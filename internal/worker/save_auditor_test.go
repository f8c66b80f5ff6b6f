package worker

import (
	"context"
	"errors"
	"testing"

	"barjas/internal/amqp"
	"barjas/internal/storage"
)

type fakeHistory struct {
	recs []storage.SaveRecord
	err  error
}

func (f fakeHistory) History(_ context.Context, sheet string, _ int) ([]storage.SaveRecord, error) {
	var out []storage.SaveRecord
	for _, r := range f.recs {
		if r.Sheet == sheet {
			out = append(out, r)
		}
	}
	return out, f.err
}

func TestHandleSheetSaved(t *testing.T) {
	history := fakeHistory{recs: []storage.SaveRecord{
		{ID: 1, Sheet: "bun", Range: "A5:J7", Status: storage.StatusOK},
		{ID: 2, Sheet: "bun", Range: "A5:J8", Status: storage.StatusError},
	}}
	a := NewSaveAuditor(history, 0)
	ctx := context.Background()

	msgs := []*amqp.SheetSavedMessage{
		{SaveID: 1, Sheet: "bun", Range: "A5:J7"},
		{SaveID: 2, Sheet: "bun", Range: "A5:J8"},
		{SaveID: 9, Sheet: "bun", Range: "A5:J7"},
		{Sheet: "nak", Range: "A5:J6"},
	}
	for _, m := range msgs {
		if err := a.HandleSheetSaved(ctx, m); err != nil {
			t.Fatalf("HandleSheetSaved(%+v) error = %v", m, err)
		}
	}
	want := Stats{Processed: 4, Matched: 1, Unmatched: 2}
	if got := a.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestHandleSheetSavedLookupError(t *testing.T) {
	a := NewSaveAuditor(fakeHistory{err: errors.New("database is locked")}, 10)
	err := a.HandleSheetSaved(context.Background(), &amqp.SheetSavedMessage{SaveID: 1, Sheet: "bun", Range: "A5:J7"})
	if err == nil {
		t.Fatal("lookup error should be returned so the message is requeued")
	}
}

func TestHandleSheetSavedWithoutHistory(t *testing.T) {
	a := NewSaveAuditor(nil, 10)
	if err := a.HandleSheetSaved(context.Background(), &amqp.SheetSavedMessage{SaveID: 3, Sheet: "tph", Range: "A5:J6"}); err != nil {
		t.Fatal(err)
	}
	if got := a.Stats(); got.Processed != 1 || got.Matched != 0 || got.Unmatched != 0 {
		t.Errorf("Stats() = %+v", got)
	}
}
