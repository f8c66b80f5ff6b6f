package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"barjas/internal/core"
	"barjas/internal/report"
	"barjas/internal/services"
	"barjas/internal/session"
	"barjas/internal/sheets"
)

type (
	columnView struct {
		Index int
		Name  string
		Role  core.Role
		Hint  core.DisplayHint
	}

	cellView struct {
		Col     int
		Value   string
		Numeric bool
	}

	rowView struct {
		Index int
		Cells []cellView
	}

	// tableView is the template model of one session entry.
	tableView struct {
		Sheet     string
		Anchor    string
		Columns   []columnView
		Rows      []rowView
		Totals    []string
		HasTotals bool
		Dirty     bool
		SavedRows int
		LoadedAt  time.Time
		SavedAt   time.Time
		// Message is swapped out-of-band into #messages when set.
		Message     string
		MessageKind NotificationType
	}
)

func newTableView(e session.Entry) *tableView {
	v := &tableView{
		Sheet:     e.Sheet,
		Anchor:    e.Anchor.String(),
		Dirty:     e.Dirty,
		SavedRows: e.SavedRows,
		LoadedAt:  e.LoadedAt,
		SavedAt:   e.SavedAt,
	}
	if e.Table == nil {
		return v
	}
	sums := make([]decimal.Decimal, len(e.Table.Columns))
	for i, c := range e.Table.Columns {
		v.Columns = append(v.Columns, columnView{Index: i, Name: c.Name, Role: c.Role, Hint: c.Role.Hint()})
	}
	var n core.Normalizer
	for r, row := range e.Table.Rows {
		rv := rowView{Index: r, Cells: make([]cellView, len(row))}
		for c, val := range row {
			role := e.Table.Columns[c].Role
			rv.Cells[c] = cellView{
				Col:     c,
				Value:   val.String(),
				Numeric: role == core.RoleAmount || role == core.RolePercentage,
			}
			if role == core.RoleAmount {
				if f := n.Normalize(val); !math.IsNaN(f) {
					sums[c] = sums[c].Add(decimal.NewFromFloat(f))
				}
			}
		}
		v.Rows = append(v.Rows, rv)
	}
	v.Totals = make([]string, len(e.Table.Columns))
	for c, col := range e.Table.Columns {
		if col.Role == core.RoleAmount {
			v.Totals[c] = thousands(sums[c].InexactFloat64())
			v.HasTotals = true
		}
	}
	return v
}

func (v *tableView) withMessage(kind NotificationType, msg string) *tableView {
	v.Message, v.MessageKind = msg, kind
	return v
}

// errorStatus maps a service error to a status code and a message fit for
// the user. Store failures become 502.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, sheets.ErrSheetNotAllowed):
		return http.StatusNotFound, "Sheet tidak tersedia"
	case errors.Is(err, session.ErrNotOpen):
		return http.StatusNotFound, "Sheet belum dibuka di sesi ini"
	case errors.Is(err, report.ErrUnknownKind):
		return http.StatusNotFound, "Jenis analisa tidak dikenal"
	case errors.Is(err, services.ErrHistoryDisabled):
		return http.StatusNotFound, "Riwayat penyimpanan tidak aktif"
	case errors.Is(err, core.ErrRowOutOfRange), errors.Is(err, core.ErrColumnOutOfRange):
		return http.StatusUnprocessableEntity, "Posisi sel di luar tabel"
	case errors.Is(err, core.ErrRowWidth):
		return http.StatusUnprocessableEntity, "Jumlah kolom tidak sesuai dengan tabel"
	case errors.Is(err, core.ErrUnknownColumn):
		return http.StatusUnprocessableEntity, "Kolom tidak dikenal"
	case errors.Is(err, core.ErrNothingToWrite):
		return http.StatusUnprocessableEntity, "Tidak ada data untuk disimpan"
	case errors.Is(err, core.ErrHeaderMarkerNotFound):
		return http.StatusUnprocessableEntity, "Baris header tidak ditemukan pada sheet"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Spreadsheet tidak merespons, coba lagi"
	default:
		return http.StatusBadGateway, "Gagal mengakses spreadsheet"
	}
}

func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
