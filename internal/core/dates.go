package core

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. The sheets are maintained in Indonesia, so
// an ambiguous 01/02/2025 reads day-first as 1 February. Month-first layouts
// only match once the day-first reading is impossible, as in 12/31/2025.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"01/02/2006",
	"1/2/2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var indonesianMonths = strings.NewReplacer(
	"Januari", "January",
	"Februari", "February",
	"Maret", "March",
	"Mei", "May",
	"Juni", "June",
	"Juli", "July",
	"Agustus", "August",
	"Oktober", "October",
	"Desember", "December",
	"Agu", "Aug",
	"Okt", "Oct",
	"Des", "Dec",
)

// ParseDate parses a sheet date. ok is false for blank or unrecognised text.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = indonesianMonths.Replace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
