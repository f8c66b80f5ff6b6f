package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"barjas/internal/cache"
	"barjas/internal/core"
	applog "barjas/internal/log"
	"barjas/internal/middleware/ratelimit"
	"barjas/internal/report"
	"barjas/internal/services"
	"barjas/internal/session"
	"barjas/internal/sheets"
	"barjas/internal/sheets/memory"
	"barjas/internal/storage"
)

// flakyStore fails writes while writeErr is set.
type flakyStore struct {
	sheets.Store
	writeErr error
}

func (s *flakyStore) WriteRange(ctx context.Context, sheet string, req core.WriteRequest) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.Store.WriteRange(ctx, sheet, req)
}

type testEnv struct {
	ts     *httptest.Server
	client *http.Client
	store  *flakyStore
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	store := &flakyStore{Store: memory.Demo()}
	reconciler := core.Reconciler{Classifier: core.DefaultClassifier()}

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	dashboard := services.NewDashboardService(store, reconciler, services.DashboardOptions{
		HeaderRows: 4,
		Anchor:     core.DefaultAnchor,
		Allowed:    sheets.ParseAllowList("bun,nak,psp,tph"),
		CatalogTTL: time.Minute,
	}, repo, nil)
	analysis := services.NewAnalysisService(store, reconciler,
		report.NewSelector(report.DefaultFields(), core.Normalizer{}),
		memory.AnalysisSheet, "PAGU", time.Minute)

	deps := Deps{
		Dashboard: dashboard,
		Analysis:  analysis,
		Sessions:  session.NewManager(10, time.Hour, false),
		Caches:    cache.NewManager(),
		Logger:    applog.New(applog.Config{Output: io.Discard}),
		Checks:    []ReadinessCheck{{Name: "history", Check: repo.Ping}},
	}
	for _, m := range mutate {
		m(&deps)
	}

	srv, err := NewServer(":0", deps)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{ts: ts, client: client, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return e.send(t, req)
}

func (e *testEnv) doJSON(t *testing.T, method, path, payload string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(b)
}

func TestIndexRedirectsAndProbes(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("GET / = %d %q, want redirect to /dashboard", resp.StatusCode, resp.Header.Get("Location"))
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, body := env.do(t, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, resp.StatusCode, body)
		}
		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			t.Errorf("%s content type = %q", path, resp.Header.Get("Content-Type"))
		}
	}

	resp, body := env.do(t, http.MethodGet, "/static/app.js", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "figures-data") {
		t.Errorf("static asset status=%d", resp.StatusCode)
	}
}

func TestDashboardPage(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/dashboard", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	for _, want := range []string{`<option value="bun" selected>`, `<option value="tph"`, `id="sheet-table"`, "Pengadaan ATK", `hx-post="/dashboard/bun/save"`} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(body, memory.AnalysisSheet) {
		t.Error("analysis sheet must not be offered for editing")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	if !strings.Contains(resp.Header.Get("Content-Security-Policy"), "https://cdn.plot.ly") {
		t.Errorf("CSP = %q", resp.Header.Get("Content-Security-Policy"))
	}
	var cookie bool
	for _, c := range resp.Cookies() {
		cookie = cookie || c.Name == session.CookieName
	}
	if !cookie {
		t.Error("session cookie not issued")
	}

	resp, body = env.do(t, http.MethodGet, "/dashboard?sheet="+url.QueryEscape(memory.AnalysisSheet), nil)
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(body, "Sheet tidak tersedia") {
		t.Errorf("disallowed sheet: status=%d", resp.StatusCode)
	}
}

func TestAmountTotals(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodGet, "/dashboard?sheet=bun", nil)
	// PAGU (Rp): 25.000.000 + 150.000.000 + 60.000.000
	if !strings.Contains(body, "235.000.000") {
		t.Error("amount column total not rendered")
	}
}

func TestEditInsertSaveFlow(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/dashboard?sheet=bun", nil)

	resp, body := env.do(t, http.MethodPost, "/dashboard/bun/cells", url.Values{"row": {"0"}, "col": {"1"}, "value": {"Pengadaan Kertas"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status=%d body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(body, `value="Pengadaan Kertas"`) || !strings.Contains(body, "badge--dirty") {
		t.Error("edited table fragment not returned")
	}
	if !strings.Contains(resp.Header.Get("HX-Trigger"), "table:changed") {
		t.Errorf("HX-Trigger = %q", resp.Header.Get("HX-Trigger"))
	}
	if !strings.Contains(body, `hx-swap-oob="true"`) || !strings.Contains(body, "Sel diperbarui") {
		t.Error("missing out-of-band success message")
	}

	// The session copy changed; the store did not.
	raw, _ := env.store.ReadAll(context.Background(), "bun")
	if raw[4][1] != "Pengadaan ATK" {
		t.Fatalf("store changed before save: %q", raw[4][1])
	}

	resp, body = env.do(t, http.MethodPost, "/dashboard/bun/rows", url.Values{})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "4 baris") {
		t.Fatalf("insert status=%d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPost, "/dashboard/bun/save", url.Values{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status=%d body=%s", resp.StatusCode, body)
	}
	trigger := resp.Header.Get("HX-Trigger")
	if !strings.Contains(trigger, "sheet:saved") || !strings.Contains(trigger, "A5:J8") {
		t.Errorf("HX-Trigger = %q", trigger)
	}
	if !strings.Contains(body, "Tersimpan ke A5:J8") || strings.Contains(body, "badge--dirty") {
		t.Error("save fragment should report the range and a clean table")
	}

	raw, _ = env.store.ReadAll(context.Background(), "bun")
	if raw[4][1] != "Pengadaan Kertas" {
		t.Errorf("store cell = %q, want edited value", raw[4][1])
	}
	if len(raw) != 8 {
		t.Errorf("store rows = %d, want 8", len(raw))
	}

	resp, body = env.do(t, http.MethodGet, "/dashboard/bun/history", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "A5:J8") || !strings.Contains(body, "OK") {
		t.Errorf("history status=%d body=%s", resp.StatusCode, body)
	}
}

func TestSaveFailureKeepsEdits(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/dashboard/nak/cells", url.Values{"row": {"1"}, "col": {"7"}, "value": {"75"}})

	env.store.writeErr = errors.New("quota exceeded")
	resp, body := env.do(t, http.MethodPost, "/dashboard/nak/save", url.Values{})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", resp.StatusCode)
	}
	if resp.Header.Get("HX-Retarget") != "#messages" || !strings.Contains(body, "message--error") {
		t.Errorf("error fragment not retargeted: %q %s", resp.Header.Get("HX-Retarget"), body)
	}
	if !strings.Contains(resp.Header.Get("HX-Trigger"), "show-notification") {
		t.Error("missing error notification")
	}

	_, body = env.do(t, http.MethodGet, "/api/sheets/nak/table", nil)
	var table apiTable
	if err := json.Unmarshal([]byte(body), &table); err != nil {
		t.Fatal(err)
	}
	if !table.Dirty || table.Rows[1][7] != "75" {
		t.Errorf("edits lost after failed save: dirty=%v cell=%v", table.Dirty, table.Rows[1][7])
	}

	_, body = env.do(t, http.MethodGet, "/dashboard/nak/history", nil)
	if !strings.Contains(body, "quota exceeded") {
		t.Errorf("failed save not in history: %s", body)
	}
}

func TestEditValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		path   string
		form   url.Values
		status int
	}{
		{"missing row", "/dashboard/bun/cells", url.Values{"col": {"1"}, "value": {"x"}}, http.StatusBadRequest},
		{"negative col", "/dashboard/bun/cells", url.Values{"row": {"0"}, "col": {"-1"}}, http.StatusBadRequest},
		{"row out of range", "/dashboard/bun/cells", url.Values{"row": {"9"}, "col": {"1"}}, http.StatusUnprocessableEntity},
		{"column out of range", "/dashboard/bun/cells", url.Values{"row": {"0"}, "col": {"10"}}, http.StatusUnprocessableEntity},
		{"bad insert position", "/dashboard/bun/rows", url.Values{"at": {"x"}}, http.StatusBadRequest},
		{"delete out of range", "/dashboard/bun/rows/7/delete", url.Values{}, http.StatusUnprocessableEntity},
		{"sheet not allowed", "/dashboard/secret/cells", url.Values{"row": {"0"}, "col": {"0"}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, tt.path, tt.form)
			if resp.StatusCode != tt.status {
				t.Errorf("status=%d, want %d (body=%s)", resp.StatusCode, tt.status, body)
			}
			if !strings.Contains(body, "message--error") {
				t.Errorf("expected error fragment, got %s", body)
			}
		})
	}
}

func TestDeleteRowAndDiscard(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPost, "/dashboard/bun/rows/0/delete", url.Values{})
	if resp.StatusCode != http.StatusOK || strings.Contains(body, "Pengadaan ATK") {
		t.Fatalf("delete status=%d", resp.StatusCode)
	}
	if !strings.Contains(body, "Baris 1 dihapus") {
		t.Error("missing delete message")
	}

	resp, body = env.do(t, http.MethodPost, "/dashboard/bun/discard", url.Values{})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Pengadaan ATK") {
		t.Errorf("discard should reload the sheet: status=%d", resp.StatusCode)
	}
}

func TestExportWorkbook(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.client.Get(env.ts.URL + "/dashboard/psp/export.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), ".xlsx") {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("psp")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][1] != "Pengadaan Laptop" {
		t.Errorf("rows = %v", rows)
	}
}

func TestSheetsAPI(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodGet, "/api/sheets", nil)
	var list struct{ Sheets []string }
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatal(err)
	}
	if strings.Join(list.Sheets, ",") != "bun,nak,psp,tph" {
		t.Errorf("sheets = %v", list.Sheets)
	}

	resp, body := env.do(t, http.MethodGet, "/api/sheets/BUN/table", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var table apiTable
	if err := json.Unmarshal([]byte(body), &table); err != nil {
		t.Fatal(err)
	}
	if table.Sheet != "bun" || table.Anchor != "A5" || len(table.Columns) != 10 || len(table.Rows) != 3 {
		t.Fatalf("table = %+v", table)
	}
	if table.Columns[2].Hint.Kind != "currency" {
		t.Errorf("PAGU hint = %+v", table.Columns[2].Hint)
	}

	row := `["1","Pengadaan Server","300000000","004/BUN/2025","2025-07-01",299000000,null,"","10","5"]`
	resp, body = env.doJSON(t, http.MethodPut, "/api/sheets/bun/table", `{"rows":[`+row+`]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replace status=%d body=%s", resp.StatusCode, body)
	}
	if err := json.Unmarshal([]byte(body), &table); err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 1 || table.Rows[0][5] != "299000000" || !table.Dirty {
		t.Errorf("replaced table = %+v", table.Rows)
	}

	// Integers past 2^53 keep every digit on their way into the sheet.
	big := `["1","Pengadaan Server","300000000","004/BUN/2025","2025-07-01",9007199254740993,null,"","10","5"]`
	resp, body = env.doJSON(t, http.MethodPut, "/api/sheets/bun/table", `{"rows":[`+big+`]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replace status=%d body=%s", resp.StatusCode, body)
	}
	if err := json.Unmarshal([]byte(body), &table); err != nil {
		t.Fatal(err)
	}
	if table.Rows[0][5] != "9007199254740993" {
		t.Errorf("large integer = %v", table.Rows[0][5])
	}

	resp, _ = env.doJSON(t, http.MethodPut, "/api/sheets/bun/table", `{"rows":[["too","short"]]}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("ragged rows status=%d, want 422", resp.StatusCode)
	}
	resp, _ = env.doJSON(t, http.MethodPut, "/api/sheets/bun/table", `{"rows":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad JSON status=%d, want 400", resp.StatusCode)
	}

	resp, body = env.doJSON(t, http.MethodPost, "/api/sheets/bun/save", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status=%d body=%s", resp.StatusCode, body)
	}
	var saved apiSaveResponse
	if err := json.Unmarshal([]byte(body), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Range != "A5:J5" || saved.Rows != 1 || saved.Cols != 10 {
		t.Errorf("save = %+v", saved)
	}
}

func TestAnalysis(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/analysis", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	for _, want := range []string{`id="figures-data"`, "financial-realization", "Keuangan", "Fisik", "SP2D", "cdn.plot.ly"} {
		if !strings.Contains(body, want) {
			t.Errorf("analysis page missing %q", want)
		}
	}

	resp, _ = env.do(t, http.MethodGet, "/analysis?kind=bogus", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown kind status=%d, want 404", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodGet, "/api/reports/fisik", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status=%d", resp.StatusCode)
	}
	var res struct {
		Sheet   string
		Rows    int
		Figures []report.Figure
	}
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		t.Fatal(err)
	}
	if res.Sheet != memory.AnalysisSheet || res.Rows != 7 || len(res.Figures) != 2 {
		t.Errorf("report = %+v", res)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/reports/bogus", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown report kind status=%d, want 404", resp.StatusCode)
	}
}

func TestSaveRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.RateLimit = ratelimit.Config{Requests: 1, Window: time.Minute}
	})

	resp, _ := env.do(t, http.MethodPost, "/dashboard/tph/save", url.Values{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first save status=%d", resp.StatusCode)
	}
	resp, body := env.do(t, http.MethodPost, "/dashboard/tph/save", url.Values{})
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") == "" {
		t.Fatalf("second save status=%d retry=%q", resp.StatusCode, resp.Header.Get("Retry-After"))
	}
	if !strings.Contains(body, "message--error") {
		t.Errorf("rate limit body = %s", body)
	}

	resp, _ = env.doJSON(t, http.MethodPost, "/api/sheets/tph/save", "")
	if resp.StatusCode != http.StatusTooManyRequests || !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		t.Errorf("API rate limit status=%d type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	// Edits are not throttled.
	resp, _ = env.do(t, http.MethodPost, "/dashboard/tph/rows", url.Values{})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("insert status=%d", resp.StatusCode)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		store := memory.Demo()
		d.Dashboard = services.NewDashboardService(store, core.Reconciler{Classifier: core.DefaultClassifier()}, services.DashboardOptions{
			Allowed: sheets.ParseAllowList("bun"),
		}, nil, nil)
	})
	resp, body := env.do(t, http.MethodGet, "/dashboard/bun/history", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "tidak aktif") {
		t.Errorf("status=%d body=%s", resp.StatusCode, body)
	}
}
