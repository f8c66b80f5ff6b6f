package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(requests int) (*Limiter, *time.Time) {
	rl := NewLimiter(Config{Requests: requests, Window: time.Minute, CleanupInterval: time.Hour, IdleTimeout: 10 * time.Minute})
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	*now = now.Add(20 * time.Second)
	ok, retry := rl.Allow("10.0.0.1")
	if ok {
		t.Fatal("fourth request allowed")
	}
	if retry != 40*time.Second {
		t.Errorf("retry = %v, want 40s", retry)
	}
	if ok, _ := rl.Allow("10.0.0.2"); !ok {
		t.Error("other clients have their own window")
	}

	*now = now.Add(40 * time.Second)
	if ok, _ := rl.Allow("10.0.0.1"); !ok {
		t.Error("window should have reset")
	}
	if got := rl.GetMetrics().TotalHits; got != 1 {
		t.Errorf("TotalHits = %d, want 1", got)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(5)
	defer rl.Stop()
	rl.Allow("a")
	*now = now.Add(5 * time.Minute)
	rl.Allow("b")
	*now = now.Add(6 * time.Minute)

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	defer rl.Stop()
	rl.Stop()

	h := rl.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	codes := []int{http.StatusNoContent, http.StatusTooManyRequests}
	for i, want := range codes {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/dashboard/bun/save", nil))
		if rr.Code != want {
			t.Fatalf("request %d: status %d, want %d", i+1, rr.Code, want)
		}
		if want == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "60" {
			t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
		}
	}
}
