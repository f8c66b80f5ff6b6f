package http

import (
	"bytes"
	"net/http"
	"strconv"

	"barjas/internal/export"
	applog "barjas/internal/log"
	"barjas/internal/session"
	"barjas/internal/storage"
)

const historyLimit = 20

type dashboardPage struct {
	Active         string
	Sheets         []string
	Selected       string
	Table          *tableView
	Error          string
	HistoryEnabled bool
}

// handleDashboard renders the sheet selector and, when ?sheet= names an
// allowed sheet, its editable table.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	logger := applog.FromContext(ctx)

	page := dashboardPage{Active: "dashboard", HistoryEnabled: s.dashboard.HistoryEnabled()}
	sheets, err := s.dashboard.Sheets(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "List worksheets failed", applog.FieldError, err)
		status, msg := errorStatus(err)
		page.Error = msg
		s.render(w, r, status, "dashboard_page", page)
		return
	}
	page.Sheets = sheets

	title := r.URL.Query().Get("sheet")
	if title == "" && len(sheets) > 0 {
		title = sheets[0]
	}
	if title == "" {
		s.render(w, r, http.StatusOK, "dashboard_page", page)
		return
	}

	ws := s.sessions.FromRequest(w, r)
	entry, err := s.dashboard.Open(ctx, ws, title)
	if err != nil {
		logger.WarnContext(ctx, "Open sheet failed", applog.FieldSheet, title, applog.FieldSession, ws.ID, applog.FieldError, err)
		status, msg := errorStatus(err)
		page.Error = msg
		s.render(w, r, status, "dashboard_page", page)
		return
	}
	page.Selected = entry.Sheet
	page.Table = newTableView(entry)
	s.render(w, r, http.StatusOK, "dashboard_page", page)
}

// handleTableFragment re-renders the session table, e.g. after a sheet
// switch in the selector.
func (s *Server) handleTableFragment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	entry, err := s.dashboard.Open(ctx, ws, r.PathValue("sheet"))
	if err != nil {
		s.fragmentError(w, r, "Open sheet failed", err)
		return
	}
	s.render(w, r, http.StatusOK, "table_fragment", newTableView(entry))
}

func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Format permintaan tidak valid").Write(w)
		return
	}
	row, err := p.Int("row")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	col, err := p.Int("col")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	entry, err := s.dashboard.EditCell(ctx, ws, r.PathValue("sheet"), row, col, p.GetUntrimmed("value"))
	if err != nil {
		s.fragmentError(w, r, "Edit cell failed", err)
		return
	}
	s.writeTable(w, r, entry, "Sel diperbarui", nil)
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Format permintaan tidak valid").Write(w)
		return
	}
	at := -1
	if v := p.Get("at"); v != "" {
		n, err := parseIndex("at", v)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		at = n
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	entry, err := s.dashboard.InsertRow(ctx, ws, r.PathValue("sheet"), at)
	if err != nil {
		s.fragmentError(w, r, "Insert row failed", err)
		return
	}
	s.writeTable(w, r, entry, "Baris ditambahkan", nil)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	row, err := parseIndex("row", r.PathValue("row"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	entry, err := s.dashboard.DeleteRow(ctx, ws, r.PathValue("sheet"), row)
	if err != nil {
		s.fragmentError(w, r, "Delete row failed", err)
		return
	}
	s.writeTable(w, r, entry, "Baris "+strconv.Itoa(row+1)+" dihapus", nil)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	res, err := s.dashboard.Save(ctx, ws, r.PathValue("sheet"))
	if err != nil {
		s.fragmentError(w, r, "Save failed", err)
		return
	}
	s.events.LogSheetSaved(ctx, res.Sheet, res.Request.Range, res.Request.Rows(), res.Request.Cols(), ws.ID)
	s.invalidateAnalysis(res.Sheet)

	entry, ok := ws.Get(res.Sheet)
	if !ok {
		NewHTMXResponse().
			Retarget("#messages").
			TriggerSheetSaved(res.Sheet, res.Request.Range).
			BodyHTML(MessageFragment(NotificationSuccess, "Tersimpan ke "+res.Request.Range)).
			Write(w)
		return
	}
	msg := "Tersimpan ke " + res.Request.Range
	if res.Cleared != "" {
		msg += ", " + res.Cleared + " dikosongkan"
	}
	if res.ClearErr != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Clear removed rows failed",
			applog.FieldError, res.ClearErr, applog.FieldPath, r.URL.Path)
	}
	s.writeTable(w, r, entry, msg, func(b *HTMXResponseBuilder) {
		b.TriggerSheetSaved(res.Sheet, res.Request.Range)
		if res.ClearErr != nil {
			b.TriggerErrorNotification("Tersimpan, tetapi baris lama gagal dikosongkan")
		}
	})
}

// handleDiscard drops the session copy and reloads the sheet from the store.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	title := r.PathValue("sheet")
	if err := s.dashboard.Discard(ctx, ws, title); err != nil {
		s.fragmentError(w, r, "Discard failed", err)
		return
	}
	entry, err := s.dashboard.Open(ctx, ws, title)
	if err != nil {
		s.fragmentError(w, r, "Reload failed", err)
		return
	}
	s.writeTable(w, r, entry, "Perubahan dibatalkan", nil)
}

// handleExport downloads the session table as a workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	entry, err := s.dashboard.Open(ctx, ws, r.PathValue("sheet"))
	if err != nil {
		status, msg := errorStatus(err)
		applog.FromContext(ctx).WarnContext(ctx, "Export failed", applog.FieldOperation, applog.OpExport, applog.FieldError, err)
		http.Error(w, msg, status)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, entry.Sheet, entry.Table); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Workbook export failed",
			applog.FieldOperation, applog.OpExport,
			applog.FieldSheet, entry.Sheet,
			applog.FieldError, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(entry.Sheet)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

type historyFragment struct {
	Sheet   string
	Enabled bool
	Records []storage.SaveRecord
	Error   string
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	title := r.PathValue("sheet")
	data := historyFragment{Sheet: title, Enabled: s.dashboard.HistoryEnabled()}
	if !data.Enabled {
		s.render(w, r, http.StatusOK, "history_fragment", data)
		return
	}
	records, err := s.dashboard.History(ctx, title, parseLimit(r.URL.Query(), historyLimit, 100))
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "History lookup failed", applog.FieldSheet, title, applog.FieldError, err)
		status, msg := errorStatus(err)
		data.Error = msg
		s.render(w, r, status, "history_fragment", data)
		return
	}
	data.Records = records
	s.render(w, r, http.StatusOK, "history_fragment", data)
}

// writeTable answers a grid edit with the refreshed table and an
// out-of-band success message.
func (s *Server) writeTable(w http.ResponseWriter, r *http.Request, entry session.Entry, msg string, extra func(*HTMXResponseBuilder)) {
	view := newTableView(entry).withMessage(NotificationSuccess, msg)
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "table_fragment", view); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldOperation, applog.OpRender, applog.FieldError, err, "template", "table_fragment")
		InternalServerError("Gagal menampilkan tabel").Write(w)
		return
	}
	b := NewHTMXResponse().TriggerTableChanged(entry.Sheet, len(view.Rows))
	if extra != nil {
		extra(b)
	}
	b.BodyHTML(buf.String()).Write(w)
}

// fragmentError logs err and answers with a message fragment. Prior state
// is untouched.
func (s *Server) fragmentError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	status, msg := errorStatus(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), logMsg, applog.FieldError, err, applog.FieldPath, r.URL.Path)
	} else {
		logger.WarnContext(r.Context(), logMsg, applog.FieldError, err, applog.FieldPath, r.URL.Path)
	}
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

// invalidateAnalysis drops the cached analysis table when its sheet was
// just written.
func (s *Server) invalidateAnalysis(sheet string) {
	if s.analysis != nil && s.analysis.Sheet() == sheet {
		s.analysis.Invalidate()
	}
}
