package http

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady lists the worksheets and runs every registered check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{}
	fail := func(name string, err error) {
		checks[name] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	if _, err := s.dashboard.Worksheets(ctx); err != nil {
		fail("spreadsheet", err)
	} else {
		checks["spreadsheet"] = "ok"
	}
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			fail(c.Name, err)
			continue
		}
		checks[c.Name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traffic := s.tracer.GetMetrics()
	limits := s.limiter.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds":        int64(time.Since(s.started).Seconds()),
		"total_requests":        traffic.TotalRequests,
		"last_response_time_us": traffic.LastResponseTime,
		"rate_limit_hits":       limits.TotalHits,
		"rate_limited_clients":  limits.ClientCount,
		"sessions":              s.sessions.Size(),
		"history_enabled":       s.dashboard.HistoryEnabled(),
	})
}
