package memory

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"barjas/internal/core"
)

func TestWriteAndClear(t *testing.T) {
	ctx := context.Background()
	s := New(map[string]core.RawSheet{"bun": {{"H"}, {"a", "b"}}})

	req := core.WriteRequest{Range: "B2:C3", StartRow: 2, StartCol: 2, EndRow: 3, EndCol: 3, Values: []string{"1", "2", "3", "4"}}
	if err := s.WriteRange(ctx, "bun", req); err != nil {
		t.Fatal(err)
	}
	raw, _ := s.ReadAll(ctx, "bun")
	want := core.RawSheet{{"H"}, {"a", "1", "2"}, {"", "3", "4"}}
	if !reflect.DeepEqual(raw, want) {
		t.Fatalf("after write: %#v", raw)
	}

	if err := s.ClearRange(ctx, "bun", "B3:C9"); err != nil {
		t.Fatal(err)
	}
	raw, _ = s.ReadAll(ctx, "bun")
	if raw.Cell(2, 1) != "" || raw.Cell(2, 2) != "" || raw.Cell(1, 1) != "1" {
		t.Fatalf("after clear: %#v", raw)
	}

	if err := s.WriteRange(ctx, "missing", req); err == nil {
		t.Fatal("expected error for unknown sheet")
	}
	if err := s.ClearRange(ctx, "bun", "not a range"); err == nil {
		t.Fatal("expected error for bad range")
	}
}

func TestReadAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(map[string]core.RawSheet{"bun": {{"H"}}})
	raw, _ := s.ReadAll(ctx, "bun")
	raw[0][0] = "changed"
	again, _ := s.ReadAll(ctx, "bun")
	if again[0][0] != "H" {
		t.Fatal("ReadAll leaked internal state")
	}
}

func TestOrder(t *testing.T) {
	s := New(map[string]core.RawSheet{"z": nil, "a": nil, "tph": nil, "bun": nil}, "tph", "bun", "missing")
	got, _ := s.ListWorksheets(context.Background())
	if !reflect.DeepEqual(got, []string{"tph", "bun", "a", "z"}) {
		t.Fatalf("order: %v", got)
	}
}

func TestNewFromDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	titles, _ := s.ListWorksheets(context.Background())
	if len(titles) != 5 || titles[4] != AnalysisSheet {
		t.Fatalf("expected demo workbook, got %v", titles)
	}

	if err := os.WriteFile(filepath.Join(dir, "bun.csv"), []byte("NO,NAMA\n1,\"Jalan, Raya\"\n2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := s.ReadAll(context.Background(), "bun")
	if err != nil {
		t.Fatal(err)
	}
	want := core.RawSheet{{"NO", "NAMA"}, {"1", "Jalan, Raya"}, {"2"}}
	if !reflect.DeepEqual(raw, want) {
		t.Fatalf("csv seed: %#v", raw)
	}
}

func TestDemoTrackingSheetsReconcile(t *testing.T) {
	raw, err := Demo().ReadAll(context.Background(), "bun")
	if err != nil {
		t.Fatal(err)
	}
	table := core.Reconciler{}.ReconcileSheet(raw, 4)
	if len(table.Columns) != 10 || len(table.Rows) != 3 {
		t.Fatalf("demo bun: %d columns, %d rows", len(table.Columns), len(table.Rows))
	}
	want := []string{"NO", "NAMA PEKERJAAN", "PAGU (Rp)", "KONTRAK NOMOR", "KONTRAK TGL", "KONTRAK NILAI (Rp)", "KEUANGAN REALISASI", "KEUANGAN %", "FISIK RENCANA (%)", "FISIK REALISASI (%)"}
	if got := table.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("labels = %q", got)
	}
}
