package http

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"barjas/internal/core"
	applog "barjas/internal/log"
	"barjas/internal/session"
)

type (
	apiColumn struct {
		Name string           `json:"name"`
		Role core.Role        `json:"role"`
		Hint core.DisplayHint `json:"hint"`
	}

	// apiTable is the grid widget's view of a session entry.
	apiTable struct {
		Sheet     string      `json:"sheet"`
		Anchor    string      `json:"anchor"`
		Dirty     bool        `json:"dirty"`
		SavedRows int         `json:"saved_rows"`
		Columns   []apiColumn `json:"columns"`
		Rows      [][]any     `json:"rows"`
	}

	apiReplaceRequest struct {
		Rows [][]any `json:"rows"`
	}

	apiSaveResponse struct {
		Sheet   string `json:"sheet"`
		Range   string `json:"range"`
		Rows    int    `json:"rows"`
		Cols    int    `json:"cols"`
		Cleared string `json:"cleared,omitempty"`

		// ClearError reports rows below the table that could not be
		// emptied. The write itself succeeded.
		ClearError string    `json:"clear_error,omitempty"`
		SavedAt    time.Time `json:"saved_at"`
	}
)

func newAPITable(e session.Entry) apiTable {
	out := apiTable{
		Sheet:     e.Sheet,
		Anchor:    e.Anchor.String(),
		Dirty:     e.Dirty,
		SavedRows: e.SavedRows,
		Columns:   []apiColumn{},
		Rows:      [][]any{},
	}
	if e.Table == nil {
		return out
	}
	for _, c := range e.Table.Columns {
		out.Columns = append(out.Columns, apiColumn{Name: c.Name, Role: c.Role, Hint: c.Role.Hint()})
	}
	for _, row := range e.Table.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = jsonValue(v)
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

// jsonValue maps null and NaN to JSON null.
func jsonValue(v core.Value) any {
	if v.IsNull() {
		return nil
	}
	if f, ok := v.Float(); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
	return v.String()
}

func (s *Server) handleAPISheets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	sheets, err := s.dashboard.Sheets(ctx)
	if err != nil {
		s.apiError(w, r, "List worksheets failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheets": sheets})
}

func (s *Server) handleAPITable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	entry, err := s.dashboard.Open(ctx, ws, r.PathValue("sheet"))
	if err != nil {
		s.apiError(w, r, "Open sheet failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newAPITable(entry))
}

// handleAPIReplaceTable replaces every data row of the session table with
// the grid widget's rows. Cells are taken as typed.
func (s *Server) handleAPIReplaceTable(w http.ResponseWriter, r *http.Request) {
	var req apiReplaceRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return
	}
	if req.Rows == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rows is required"})
		return
	}
	rows := make([][]string, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = sanitizeInput(stringValue(cell))
		}
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	entry, err := s.dashboard.ReplaceRows(ctx, ws, r.PathValue("sheet"), rows)
	if err != nil {
		s.apiError(w, r, "Replace table failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newAPITable(entry))
}

func (s *Server) handleAPISave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	ws := s.sessions.FromRequest(w, r)
	res, err := s.dashboard.Save(ctx, ws, r.PathValue("sheet"))
	if err != nil {
		s.apiError(w, r, "Save failed", err)
		return
	}
	s.events.LogSheetSaved(ctx, res.Sheet, res.Request.Range, res.Request.Rows(), res.Request.Cols(), ws.ID)
	s.invalidateAnalysis(res.Sheet)
	out := apiSaveResponse{
		Sheet:   res.Sheet,
		Range:   res.Request.Range,
		Rows:    res.Request.Rows(),
		Cols:    res.Request.Cols(),
		Cleared: res.Cleared,
		SavedAt: res.SavedAt,
	}
	if res.ClearErr != nil {
		out.ClearError = res.ClearErr.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	status, msg := errorStatus(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), logMsg, applog.FieldError, err, applog.FieldPath, r.URL.Path)
	} else {
		logger.WarnContext(r.Context(), logMsg, applog.FieldError, err, applog.FieldPath, r.URL.Path)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleRateLimited answers a throttled save in the shape the caller
// expects. Retry-After is already set.
func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP.ClientIP(r),
		applog.FieldPath, r.URL.Path)
	const msg = "Terlalu banyak permintaan simpan, coba lagi sebentar"
	if isAPI(r) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": msg})
		return
	}
	ErrorResponse(http.StatusTooManyRequests, msg).Write(w)
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
