package http

import (
	"net/http"

	applog "barjas/internal/log"
	"barjas/internal/report"
	"barjas/internal/services"
)

type kindLink struct {
	Kind   report.Kind
	Label  string
	Active bool
}

type analysisPage struct {
	Active string
	Sheet  string
	Kind   report.Kind
	Kinds  []kindLink
	Result *services.AnalysisResult
	Error  string
}

func kindLinks(active report.Kind) []kindLink {
	kinds := report.Kinds()
	out := make([]kindLink, len(kinds))
	for i, k := range kinds {
		out[i] = kindLink{Kind: k, Label: k.Label(), Active: k == active}
	}
	return out
}

// handleAnalysis renders the report page; figures are embedded as JSON and
// drawn client-side.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	kind := report.Financial
	if v := r.URL.Query().Get("kind"); v != "" {
		k, err := report.ParseKind(v)
		if err != nil {
			status, msg := errorStatus(err)
			s.render(w, r, status, "analysis_page", analysisPage{Active: "analysis", Kinds: kindLinks(""), Error: msg})
			return
		}
		kind = k
	}
	page := analysisPage{Active: "analysis", Kind: kind, Kinds: kindLinks(kind)}
	if s.analysis == nil {
		page.Error = "Analisa tidak dikonfigurasi"
		s.render(w, r, http.StatusServiceUnavailable, "analysis_page", page)
		return
	}
	page.Sheet = s.analysis.Sheet()

	ctx, cancel := withTimeout(r)
	defer cancel()
	res, err := s.analysis.Analyze(ctx, kind)
	if err != nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentAnalysis).ErrorContext(ctx, "Analysis failed",
			applog.FieldKind, string(kind),
			applog.FieldOperation, applog.OpAnalyze,
			applog.FieldError, err)
		status, msg := errorStatus(err)
		page.Error = msg
		s.render(w, r, status, "analysis_page", page)
		return
	}
	page.Result = &res
	s.render(w, r, http.StatusOK, "analysis_page", page)
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	kind, err := report.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.apiError(w, r, "Unknown report kind", err)
		return
	}
	if s.analysis == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analysis is not configured"})
		return
	}
	ctx, cancel := withTimeout(r)
	defer cancel()
	res, err := s.analysis.Analyze(ctx, kind)
	if err != nil {
		s.apiError(w, r, "Analysis failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
