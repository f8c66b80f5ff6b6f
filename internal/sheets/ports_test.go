package sheets

import (
	"errors"
	"reflect"
	"testing"
)

func TestAllowList(t *testing.T) {
	a := ParseAllowList(" bun, NAK ,,psp,tph ")
	if !reflect.DeepEqual(a, AllowList{"bun", "NAK", "psp", "tph"}) {
		t.Fatalf("parse: %v", a)
	}

	titles := []string{"BUN", "Rekap", "nak", "psp 2024", "tph"}
	if got := a.Filter(titles); !reflect.DeepEqual(got, []string{"BUN", "nak", "tph"}) {
		t.Fatalf("filter: %v", got)
	}

	got, err := a.Check("bun", titles)
	if err != nil || got != "BUN" {
		t.Fatalf("check bun: %q, %v", got, err)
	}
	if _, err := a.Check("Rekap", titles); !errors.Is(err, ErrSheetNotAllowed) {
		t.Fatalf("check rekap: %v", err)
	}
	if _, err := a.Check("psp", titles); !errors.Is(err, ErrSheetNotAllowed) {
		t.Fatalf("allowed but absent: %v", err)
	}
	if (AllowList{}).Allows("bun") {
		t.Fatal("empty list allows nothing")
	}
}
