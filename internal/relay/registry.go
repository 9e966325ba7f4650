/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package relay

import (
	"fmt"
	"sync"
)

// Registry holds the set of live sessions keyed by session identifier.
// It is owned by the relay server's lifecycle and passed by reference to
// request handlers; there is no package-level singleton. HTTP handlers
// run on separate goroutines, so access is mutex-guarded.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register inserts a session. Identifiers are UUIDs minted at connection
// time, so a collision indicates a bug rather than an expected race.
func (r *Registry) Register(id string, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return fmt.Errorf("session %s already registered", id)
	}

	r.sessions[id] = session
	r.order = append(r.order, id)
	return nil
}

// Lookup returns the session for an identifier, or false if it is
// unknown or already removed
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	return session, exists
}

// Remove deletes a session unconditionally. Removing an absent id is a
// no-op; disconnect races make double removal expected.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return
	}

	delete(r.sessions, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Size reports the current live-session count
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the live sessions in insertion order. The order
// carries no semantic meaning; it only makes shutdown deterministic.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, id := range r.order {
		sessions = append(sessions, r.sessions[id])
	}
	return sessions
}

// Clear removes every session
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[string]*Session)
	r.order = nil
}
