package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// triggers decodes the HX-Trigger header of a recorded response.
func triggers(t *testing.T, w *httptest.ResponseRecorder) map[string]map[string]any {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	if raw == "" {
		return nil
	}
	var out map[string]map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("HX-Trigger %q: %v", raw, err)
	}
	return out
}

func TestHTMXResponsePlainFragment(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().BodyHTML("<p>ok</p>").Write(w)

	if w.Code != http.StatusOK || w.Body.String() != "<p>ok</p>" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := triggers(t, w); got != nil {
		t.Errorf("unexpected triggers %v", got)
	}
}

func TestHTMXResponseEvents(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerTableChanged("bun", 4).
		TriggerSheetSaved("bun", "A5:J8").
		TriggerNotification(NotificationSuccess, "lama", 1000).
		TriggerNotification(NotificationSuccess, "Tersimpan", 3000).
		Write(w)

	want := map[string]map[string]any{
		"table:changed":     {"sheet": "bun", "rows": float64(4)},
		"sheet:saved":       {"sheet": "bun", "range": "A5:J8"},
		"show-notification": {"type": "success", "message": "Tersimpan", "duration": float64(3000)},
	}
	if got := triggers(t, w); !reflect.DeepEqual(got, want) {
		t.Errorf("triggers = %v\nwant %v", got, want)
	}
}

func TestErrorResponseFragments(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
		message string
	}{
		{"bad request", BadRequestError("row is required"), http.StatusBadRequest, "row is required"},
		{"rate limited", ErrorResponse(http.StatusTooManyRequests, "Terlalu banyak permintaan"), http.StatusTooManyRequests, "Terlalu banyak permintaan"},
		{"upstream", ErrorResponse(http.StatusBadGateway, "Gagal mengakses spreadsheet").TriggerErrorNotification("Gagal mengakses spreadsheet"), http.StatusBadGateway, "Gagal mengakses spreadsheet"},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			wantBody := `<div class="message message--error" role="status">` + tt.message + `</div>`
			if w.Body.String() != wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), wantBody)
			}
			if w.Header().Get("HX-Retarget") != "#messages" || w.Header().Get("HX-Reswap") != "innerHTML" {
				t.Errorf("retarget = %q %q", w.Header().Get("HX-Retarget"), w.Header().Get("HX-Reswap"))
			}
		})
	}

	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadGateway, "x").TriggerErrorNotification("x").Write(w)
	if n := triggers(t, w)["show-notification"]; n["type"] != "error" || n["duration"] != float64(5000) {
		t.Errorf("error notification = %v", n)
	}
}

func TestMessageFragmentEscapes(t *testing.T) {
	got := MessageFragment(NotificationSuccess, `<script>alert("x")</script> & co`)
	if strings.Contains(got, "<script>") {
		t.Fatalf("unescaped: %s", got)
	}
	for _, want := range []string{`message--success`, "&lt;script&gt;", "&amp; co"} {
		if !strings.Contains(got, want) {
			t.Errorf("fragment missing %q: %s", want, got)
		}
	}
}
