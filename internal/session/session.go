// Package session keeps each browser's edited tables between requests.
//
// A Manager maps a session cookie to a Workspace. A Workspace maps a sheet
// title to the Entry loaded on first access; later requests for the same
// sheet reuse the entry and never reload it from the store.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"barjas/internal/cache"
	"barjas/internal/core"
)

const CookieName = "barjas_session"

// Entry is one sheet's edited table plus the bookkeeping needed to write it
// back.
type Entry struct {
	Sheet  string
	Table  *core.Table
	Anchor core.Anchor
	// SavedRows is the row count last read from or written to the store.
	SavedRows int
	Dirty     bool
	LoadedAt  time.Time
	SavedAt   time.Time
}

// Workspace is the per-browser set of entries. All access goes through its
// methods, which serialize concurrent requests from the same browser.
type Workspace struct {
	ID string

	mu      sync.Mutex
	entries map[string]*Entry
}

func newWorkspace(id string) *Workspace {
	return &Workspace{ID: id, entries: make(map[string]*Entry)}
}

// LoadFunc builds the initial entry for a sheet.
type LoadFunc func(ctx context.Context) (*Entry, error)

// Open returns the entry for sheet, calling load only when the workspace has
// none yet. If two requests race on the first load, the first stored entry
// wins and both callers see it.
func (w *Workspace) Open(ctx context.Context, sheet string, load LoadFunc) (Entry, error) {
	w.mu.Lock()
	if e, ok := w.entries[sheet]; ok {
		snap := e.snapshot()
		w.mu.Unlock()
		return snap, nil
	}
	w.mu.Unlock()

	loaded, err := load(ctx)
	if err != nil {
		return Entry{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[sheet]; ok {
		return e.snapshot(), nil
	}
	loaded.Sheet = sheet
	w.entries[sheet] = loaded
	return loaded.snapshot(), nil
}

// Get returns a copy of the entry for sheet.
func (w *Workspace) Get(sheet string) (Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[sheet]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Update runs fn on the live entry under the workspace lock. fn sees the
// entry directly, so changes it makes are kept even if it returns an error.
func (w *Workspace) Update(sheet string, fn func(*Entry) error) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[sheet]
	if !ok {
		return Entry{}, ErrNotOpen
	}
	if err := fn(e); err != nil {
		return e.snapshot(), err
	}
	return e.snapshot(), nil
}

// Discard drops the entry so the next Open reloads it.
func (w *Workspace) Discard(sheet string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, sheet)
}

// Sheets returns the titles with an open entry.
func (w *Workspace) Sheets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.entries))
	for s := range w.entries {
		out = append(out, s)
	}
	return out
}

func (e *Entry) snapshot() Entry {
	c := *e
	if e.Table != nil {
		c.Table = e.Table.Clone()
	}
	return c
}

// Manager hands out workspaces keyed by session ID.
type Manager struct {
	workspaces *cache.LRUCache[*Workspace]
	secure     bool
}

// NewManager keeps up to maxSessions workspaces, each dropped after ttl
// without a request.
func NewManager(maxSessions int, ttl time.Duration, secureCookie bool) *Manager {
	return &Manager{
		workspaces: cache.New(cache.Options[*Workspace]{MaxSize: maxSessions, TTL: ttl, Sliding: true}),
		secure:     secureCookie,
	}
}

// Workspace returns the workspace for id, creating it on first access.
func (m *Manager) Workspace(id string) *Workspace {
	ws, _ := m.workspaces.GetOrCreate(id, func() *Workspace { return newWorkspace(id) })
	return ws
}

// FromRequest resolves the caller's workspace from the session cookie,
// issuing a new cookie when it is missing or malformed.
func (m *Manager) FromRequest(w http.ResponseWriter, r *http.Request) *Workspace {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return m.Workspace(id.String())
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return m.Workspace(id)
}

// Cleaner exposes the workspace cache to a cache.Manager.
func (m *Manager) Cleaner() cache.Cleaner { return m.workspaces }

func (m *Manager) Size() int { return m.workspaces.Size() }
