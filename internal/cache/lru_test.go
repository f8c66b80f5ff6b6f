package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(opts Options[string]) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	c := New(opts)
	c.now = clk.Now
	return c, clk
}

func TestLRUEvictsOldest(t *testing.T) {
	var evicted []string
	c, _ := newTestCache(Options[string]{MaxSize: 2, TTL: time.Hour, OnEvict: func(k, _ string) { evicted = append(evicted, k) }})
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b was least recently used and should be evicted")
	}
	if c.Size() != 2 || len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("size=%d evicted=%v", c.Size(), evicted)
	}
}

func TestTTLExpiry(t *testing.T) {
	c, clk := newTestCache(Options[string]{MaxSize: 10, TTL: time.Minute})
	c.Set("a", "1")
	clk.Advance(30 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should still be live")
	}
	clk.Advance(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("absolute expiry is not refreshed by Get")
	}
}

func TestSlidingExpiry(t *testing.T) {
	c, clk := newTestCache(Options[string]{MaxSize: 10, TTL: time.Minute, Sliding: true})
	c.Set("a", "1")
	for i := 0; i < 5; i++ {
		clk.Advance(50 * time.Second)
		if _, ok := c.Get("a"); !ok {
			t.Fatalf("sliding entry expired on access %d", i)
		}
	}
	clk.Advance(2 * time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d", n)
	}
}

func TestGetOrCreate(t *testing.T) {
	c, clk := newTestCache(Options[string]{MaxSize: 10, TTL: time.Minute})
	calls := 0
	create := func() string { calls++; return "fresh" }

	if v, found := c.GetOrCreate("k", create); found || v != "fresh" {
		t.Fatalf("first: %q %v", v, found)
	}
	if v, found := c.GetOrCreate("k", create); !found || v != "fresh" || calls != 1 {
		t.Fatalf("second: %q %v calls=%d", v, found, calls)
	}
	clk.Advance(2 * time.Minute)
	if _, found := c.GetOrCreate("k", create); found || calls != 2 {
		t.Fatalf("expired entry should be recreated, calls=%d", calls)
	}
}

func TestManagerCleanNow(t *testing.T) {
	c, clk := newTestCache(Options[string]{MaxSize: 10, TTL: time.Minute})
	c.Set("a", "1")
	c.Set("b", "2")
	m := NewManager()
	m.Register("test", c)
	clk.Advance(time.Hour)
	if n := m.CleanNow(); n != 2 {
		t.Fatalf("CleanNow = %d", n)
	}
	m.Stop()
	m.Stop()
}
