// Package ratelimit limits requests per client within a fixed window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter allows Requests per Window for each key. Keys idle for
// IdleTimeout are dropped by a background sweep.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*window
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	hits         atomic.Int64

	config Config
	now    func() time.Time
}

type window struct {
	start    time.Time
	requests int
	last     time.Time
}

type Config struct {
	Requests        int
	Window          time.Duration
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
}

// DefaultConfig allows 60 requests per minute.
func DefaultConfig() Config {
	return Config{
		Requests:        60,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     10 * time.Minute,
	}
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.Requests <= 0 {
		config.Requests = def.Requests
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = def.IdleTimeout
	}
	rl := &Limiter{
		clients:     make(map[string]*window),
		stopCleanup: make(chan struct{}),
		config:      config,
		now:         time.Now,
	}
	go rl.startCleanup()
	return rl
}

// Allow records a request for key. When the window is exhausted it reports
// false and how long until the window resets.
func (rl *Limiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.config.Window {
		rl.clients[key] = &window{start: now, requests: 1, last: now}
		return true, 0
	}
	w.last = now
	if w.requests >= rl.config.Requests {
		rl.hits.Add(1)
		return false, w.start.Add(rl.config.Window).Sub(now)
	}
	w.requests++
	return true, 0
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.config.IdleTimeout)
	removed := 0
	for key, w := range rl.clients {
		if w.last.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{TotalHits: rl.hits.Load(), ClientCount: int64(rl.ActiveClients())}
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// onLimit, when set, writes the body; the headers are already set.
func (rl *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := rl.Allow(extractKey(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := int(retry.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
