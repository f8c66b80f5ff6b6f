package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestLabelsMergeHeaderRows(t *testing.T) {
	header := RawSheet{
		{"NO", "NAMA PEKERJAAN", "ANGGARAN", "", "FISIK"},
		{"", "", "PAGU", "HPS", "RENCANA"},
		{"", " ", "(Rp)", "(Rp)", "(%)"},
		{},
	}
	r := Reconciler{}
	got := r.Labels(header)
	want := []string{"NO", "NAMA PEKERJAAN", "ANGGARAN PAGU (Rp)", "HPS (Rp)", "FISIK RENCANA (%)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labels:\n got %q\nwant %q", got, want)
	}
}

func TestLabelsCountMatchesWidestRow(t *testing.T) {
	cases := []RawSheet{
		{{"A"}, {"", "", "C"}},
		{{}, {}, {}, {"", "", "", "", ""}},
		{{"x", "x", "x", "x"}},
		{},
	}
	for i, header := range cases {
		labels := Reconciler{}.Labels(header)
		if len(labels) != header.Width() {
			t.Fatalf("case %d: got %d labels, want %d", i, len(labels), header.Width())
		}
		seen := map[string]bool{}
		for _, l := range labels {
			if l == "" {
				t.Fatalf("case %d: empty label in %q", i, labels)
			}
			if seen[l] {
				t.Fatalf("case %d: duplicate label %q in %q", i, l, labels)
			}
			seen[l] = true
		}
	}
}

func TestDisambiguateNumbersRepeatsLeftToRight(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{"NILAI", "NILAI", "NILAI"}, []string{"NILAI", "NILAI_2", "NILAI_3"}},
		{[]string{"A", "B", "A", "B"}, []string{"A", "B", "A_2", "B_2"}},
		{[]string{"Kolom", "X", "Kolom"}, []string{"Kolom", "X", "Kolom_2"}},
		{[]string{"A", "A", "A_2"}, []string{"A", "A_2", "A_2_2"}},
		{[]string{"A_2", "A", "A"}, []string{"A_2", "A", "A_3"}},
	}
	for _, tc := range cases {
		if got := Disambiguate(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Disambiguate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEmptyHeaderColumnsUsePlaceholder(t *testing.T) {
	header := RawSheet{{"", "NAMA", ""}, {" ", "", ""}}
	got := Reconciler{}.Labels(header)
	want := []string{"Kolom", "NAMA", "Kolom_2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}

	got = Reconciler{Placeholder: "Column"}.Labels(header)
	if got[0] != "Column" || got[2] != "Column_2" {
		t.Fatalf("custom placeholder not used: %q", got)
	}
}

func TestReconcilePadsTruncatesAndKeepsOrder(t *testing.T) {
	raw := RawSheet{
		{"NO", "URAIAN", "NILAI"},
		{}, {}, {},
		{"1", "Kertas"},
		{"2", "Tinta", "500", "extra"},
		{},
		{"3", "Map", "75"},
	}
	table := Reconciler{}.ReconcileSheet(raw, 4)
	if len(table.Columns) != 3 {
		t.Fatalf("columns: %v", table.Names())
	}
	if len(table.Rows) != 4 {
		t.Fatalf("rows: got %d want 4", len(table.Rows))
	}
	wantFirstCol := []string{"1", "2", "", "3"}
	for i, row := range table.Rows {
		if len(row) != 3 {
			t.Fatalf("row %d width %d", i, len(row))
		}
		if row[0].String() != wantFirstCol[i] {
			t.Fatalf("row %d col 0: got %q want %q", i, row[0].String(), wantFirstCol[i])
		}
	}
	if table.Rows[0][2].String() != "" {
		t.Fatalf("short row not padded: %q", table.Rows[0][2].String())
	}
	if table.Rows[1][2].String() != "500" {
		t.Fatalf("long row truncated wrongly: %v", table.Rows[1])
	}
}

func TestReconcileShortHeaderBlock(t *testing.T) {
	raw := RawSheet{{"A", "B"}}
	table := Reconciler{}.ReconcileSheet(raw, 4)
	if got := table.Names(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("names: %q", got)
	}
	if len(table.Rows) != 0 {
		t.Fatalf("expected no data rows, got %d", len(table.Rows))
	}
}

func TestReconcileClassifiesColumns(t *testing.T) {
	header := RawSheet{{"NAMA PEKERJAAN", "NILAI KONTRAK", "FISIK %", "TGL SP2D"}}
	table := Reconciler{Classifier: DefaultClassifier()}.Reconcile(header, nil)
	want := []Role{RolePlain, RoleAmount, RolePercentage, RoleDate}
	for i, c := range table.Columns {
		if c.Role != want[i] {
			t.Errorf("column %q: role %s, want %s", c.Name, c.Role, want[i])
		}
	}
}

func TestReconcileAtMarker(t *testing.T) {
	raw := RawSheet{
		{"LAPORAN REALISASI"},
		{""},
		{"NO", "NAMA PEKERJAAN", "pagu anggaran", "", "KEUANGAN %", "NAMA PEKERJAAN"},
		{"1", "Jalan", "1,000", "x", "45%", "dup"},
		{"2", "Jembatan"},
	}
	table, err := Reconciler{}.ReconcileAtMarker(raw, "PAGU")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"NO", "NAMA PEKERJAAN", "pagu anggaran", "KEUANGAN %"}
	if got := table.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names: got %q want %q", got, want)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows: %d", len(table.Rows))
	}
	if v, _ := table.Get(0, "KEUANGAN %"); v.String() != "45%" {
		t.Fatalf("KEUANGAN %%: got %q", v.String())
	}
	if v, _ := table.Get(0, "NAMA PEKERJAAN"); v.String() != "Jalan" {
		t.Fatalf("duplicate column should keep the first: got %q", v.String())
	}
	if v, _ := table.Get(1, "KEUANGAN %"); v.String() != "" {
		t.Fatalf("short row should pad, got %q", v.String())
	}
}

func TestReconcileAtMarkerMissing(t *testing.T) {
	_, err := Reconciler{}.ReconcileAtMarker(RawSheet{{"NO", "NAMA"}, {"1", "x"}}, "PAGU")
	if !errors.Is(err, ErrHeaderMarkerNotFound) {
		t.Fatalf("expected ErrHeaderMarkerNotFound, got %v", err)
	}
}

func TestSplitAtSkipsRowsAboveAnchor(t *testing.T) {
	raw := RawSheet{
		{"NO", "URAIAN"},
		{},
		{},
		{},
		{"(1)", "(2)"},
		{"1", "Jalan"},
		{"2", "Jembatan"},
	}
	header, data := SplitAt(raw, 4, Anchor{Row: 6, Col: 1})
	if len(header) != 4 {
		t.Fatalf("header rows = %d, want 4", len(header))
	}
	want := RawSheet{{"1", "Jalan"}, {"2", "Jembatan"}}
	if !reflect.DeepEqual(data, want) {
		t.Fatalf("data = %q, want %q", data, want)
	}

	// Writing the reconciled table back at the same anchor changes nothing.
	table := Reconciler{}.ReconcileAt(raw, 4, Anchor{Row: 6, Col: 1})
	req, err := BuildWriteRequest(table, Anchor{Row: 6, Col: 1})
	if err != nil {
		t.Fatal(err)
	}
	if req.Range != "A6:B7" || !reflect.DeepEqual(req.Grid(), [][]string{{"1", "Jalan"}, {"2", "Jembatan"}}) {
		t.Errorf("write back %s %q", req.Range, req.Grid())
	}
}

func TestSplitAtDropsColumnsLeftOfAnchor(t *testing.T) {
	raw := RawSheet{
		{"", "NO", "URAIAN"},
		{"x", "1", "Jalan"},
		{"y"},
	}
	header, data := SplitAt(raw, 1, Anchor{Row: 2, Col: 2})
	if !reflect.DeepEqual(header, RawSheet{{"NO", "URAIAN"}}) {
		t.Errorf("header = %q", header)
	}
	if len(data) != 2 || !reflect.DeepEqual(data[0], []string{"1", "Jalan"}) || len(data[1]) != 0 {
		t.Errorf("data = %q", data)
	}
}

func TestSplitAtAnchorPastEnd(t *testing.T) {
	raw := RawSheet{{"NO"}, {"1"}}
	if _, data := SplitAt(raw, 1, Anchor{Row: 9, Col: 1}); len(data) != 0 {
		t.Errorf("data = %q, want none", data)
	}
}
