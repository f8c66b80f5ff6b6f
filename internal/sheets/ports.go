package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"barjas/internal/core"
)

var ErrSheetNotAllowed = errors.New("sheet not allowed")

// Ports for outbound adapters.
type (
	// WorksheetLister returns the worksheet titles of the spreadsheet in tab order.
	WorksheetLister interface {
		ListWorksheets(ctx context.Context) ([]string, error)
	}

	// SheetReader returns every row of a worksheet as text. Rows may be ragged.
	SheetReader interface {
		ReadAll(ctx context.Context, sheet string) (core.RawSheet, error)
	}

	// RangeWriter overwrites exactly req.Range with req.Values, interpreted as
	// if typed by a user.
	RangeWriter interface {
		WriteRange(ctx context.Context, sheet string, req core.WriteRequest) error
	}

	RangeClearer interface {
		ClearRange(ctx context.Context, sheet string, a1 string) error
	}

	// Store is implemented by every adapter.
	Store interface {
		WorksheetLister
		SheetReader
		RangeWriter
		RangeClearer
	}
)

// AllowList filters worksheet titles by exact, case-insensitive name.
type AllowList []string

// ParseAllowList splits a comma-separated list, dropping blanks.
func ParseAllowList(s string) AllowList {
	var out AllowList
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Allows reports whether title is on the list. An empty list allows nothing.
func (a AllowList) Allows(title string) bool {
	title = strings.TrimSpace(title)
	for _, name := range a {
		if strings.EqualFold(name, title) {
			return true
		}
	}
	return false
}

// Filter keeps the allowed titles, preserving their order.
func (a AllowList) Filter(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if a.Allows(t) {
			out = append(out, t)
		}
	}
	return out
}

// Check resolves title against the available worksheets and returns the
// store's own spelling of it.
func (a AllowList) Check(title string, available []string) (string, error) {
	if !a.Allows(title) {
		return "", fmt.Errorf("%w: %q", ErrSheetNotAllowed, title)
	}
	for _, t := range available {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(title)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not in the spreadsheet", ErrSheetNotAllowed, title)
}
