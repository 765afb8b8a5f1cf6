package services

import (
	"sync"
	"time"
)

// SessionRegistry serializes session-scoped mutations and tracks last
// activity per session. Append and end for the same session share one lock so
// the monotonic-timestamp invariant holds and no segment can land after
// termination begins. Different sessions never contend.
type SessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	mu           sync.Mutex
	lastActivity time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{entries: make(map[string]*sessionEntry)}
}

func (r *SessionRegistry) entry(sessionID string) *sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &sessionEntry{lastActivity: time.Now()}
		r.entries[sessionID] = e
	}
	return e
}

// lock acquires the per-session ordering lock and returns its release func.
func (r *SessionRegistry) lock(sessionID string) func() {
	e := r.entry(sessionID)
	e.mu.Lock()
	return e.mu.Unlock
}

// Track registers a session as live, stamping activity now.
func (r *SessionRegistry) Track(sessionID string) {
	r.entry(sessionID)
}

// Touch records segment activity for the watchdog.
func (r *SessionRegistry) Touch(sessionID string) {
	e := r.entry(sessionID)
	r.mu.Lock()
	e.lastActivity = time.Now()
	r.mu.Unlock()
}

// Forget drops a terminated session from tracking.
func (r *SessionRegistry) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()
}

// Idle returns the ids of tracked sessions with no activity inside the
// window.
func (r *SessionRegistry) Idle(window time.Duration) []string {
	cutoff := time.Now().Add(-window)
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, e := range r.entries {
		if e.lastActivity.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
