package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// Store keeps sessions in memory and evicts idle ones.
type Store struct {
	deps *Deps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store whose sessions share deps.
func NewStore(deps *Deps, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if deps == nil {
		deps = &Deps{}
	}
	return &Store{
		deps:     deps,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Peek returns the stored session for id. When there is none it returns a
// blank session that is not stored, so read-only requests never grow the
// store. The bool reports whether the session is stored.
func (st *Store) Peek(id string) (*Session, bool) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s, true
		}
	}
	return New("", st.deps), false
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// unknown or not a valid UUID. The bool reports whether a session was created.
func (st *Store) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s, false
	}
	s := New(id, st.deps)
	st.sessions[id] = s
	return s, true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL. Sessions with an
// upload in flight are kept.
func (st *Store) Sweep() int {
	cutoff := st.deps.now().Add(-st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		lastSeen, busy := s.idleSince()
		if busy || lastSeen.After(cutoff) {
			continue
		}
		delete(st.sessions, id)
		removed++
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (st *Store) Run(ctx context.Context) {
	interval := st.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				slog.Debug("expired idle sessions", "removed", n, "remaining", st.Len())
			}
		}
	}
}
