// Package ws holds the connection registry and the websocket transport.
// The registry maps an authenticated login to at most one live session per
// purpose; routing and signaling address sessions only through it.
package ws

import (
	"sort"
	"sync"
	"time"
)

// Purpose distinguishes the chat session from the call-signaling session of
// the same login.
type Purpose string

const (
	PurposeChat Purpose = "chat"
	PurposeCall Purpose = "call"
)

// Sink is the outbound half of a transport. Send must not block
// indefinitely; a failed Send marks the transport dead.
type Sink interface {
	Send(data []byte) error
	Close() error
}

type slot struct {
	login   string
	purpose Purpose
}

type session struct {
	sink         Sink
	lastActivity time.Time
}

// Registry is the in-memory session table. Each (login, purpose) slot holds
// zero or one session; mutations are atomic per slot.
type Registry struct {
	mu       sync.Mutex
	sessions map[slot]*session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[slot]*session)}
}

// Attach binds sink as the live session for (login, purpose). A previous
// session in the slot is superseded, not closed: its transport keeps
// running until it observes its own close, it is simply no longer
// addressable.
func (r *Registry) Attach(login string, purpose Purpose, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[slot{login, purpose}] = &session{sink: sink, lastActivity: time.Now()}
}

// Detach removes the slot entry, but only if it still holds sink. A stale
// transport closing after being superseded must not evict its replacement.
func (r *Registry) Detach(login string, purpose Purpose, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slot{login, purpose}
	if cur, ok := r.sessions[key]; ok && cur.sink == sink {
		delete(r.sessions, key)
	}
}

// Send delivers data to the live session for (login, purpose) and reports
// whether a session existed. A failing sink is closed and evicted.
func (r *Registry) Send(login string, purpose Purpose, data []byte) bool {
	key := slot{login, purpose}

	r.mu.Lock()
	sess, ok := r.sessions[key]
	if ok {
		sess.lastActivity = time.Now()
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	if err := sess.sink.Send(data); err != nil {
		_ = sess.sink.Close()
		r.Detach(login, purpose, sess.sink)
		return false
	}
	return true
}

// Connected reports whether (login, purpose) has a live session.
func (r *Registry) Connected(login string, purpose Purpose) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[slot{login, purpose}]
	return ok
}

// Presence returns the sorted set of logins holding a chat session.
func (r *Registry) Presence() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	online := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		if key.purpose == PurposeChat {
			online = append(online, key.login)
		}
	}
	sort.Strings(online)
	return online
}

// BroadcastChat sends data to every live chat session.
func (r *Registry) BroadcastChat(data []byte) {
	r.mu.Lock()
	targets := make(map[string]*session, len(r.sessions))
	for key, sess := range r.sessions {
		if key.purpose == PurposeChat {
			targets[key.login] = sess
		}
	}
	r.mu.Unlock()

	for login, sess := range targets {
		if err := sess.sink.Send(data); err != nil {
			_ = sess.sink.Close()
			r.Detach(login, PurposeChat, sess.sink)
		}
	}
}
