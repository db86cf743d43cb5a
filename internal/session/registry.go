// Package session keeps one application state per browser session.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/mydms/internal/clientstore"
	"github.com/ziadkadry99/mydms/internal/navbar"
	"github.com/ziadkadry99/mydms/internal/notifications"
	"github.com/ziadkadry99/mydms/internal/routing"
	"github.com/ziadkadry99/mydms/internal/state"
)

// CookieName carries the session id between requests.
const CookieName = "mydms.session"

// Session is the state of one client.
type Session struct {
	ID      string
	Surface string
	State   *state.ApplicationState
	Router  *routing.Router
	NavBar  *navbar.NavBar
	Feed    *state.Channel[notifications.Notification]

	// guarded by Registry.mu
	lastSeen time.Time
	attached int
}

// StorageFactory returns the client storage of a session.
type StorageFactory func(sessionID string) clientstore.Storage

// Registry creates sessions on first use and tears them down on Close or
// once they have been idle longer than the configured TTL.
type Registry struct {
	storage    StorageFactory
	backend    navbar.Backend
	dispatcher *notifications.Dispatcher
	idleTTL    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry. Every session's navigation bar loads
// application info from backend and reports errors through dispatcher.
func NewRegistry(storage StorageFactory, backend navbar.Backend, dispatcher *notifications.Dispatcher) *Registry {
	return &Registry{
		storage:    storage,
		backend:    backend,
		dispatcher: dispatcher,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
}

// WithIdleTTL makes Sweep close sessions that have no attached connection
// and were not used for ttl. Zero keeps sessions until Close.
func (r *Registry) WithIdleTTL(ttl time.Duration) *Registry {
	r.idleTTL = ttl
	return r
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.New().String()
}

// ValidID reports whether id looks like an id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the session with the given id, creating it if needed, and
// marks it as used.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

// Attach returns the session with the given id and keeps it alive until
// the returned release func is called.
func (r *Registry) Attach(id string) (*Session, func()) {
	r.mu.Lock()
	s := r.getLocked(id)
	s.attached++
	r.mu.Unlock()

	var once sync.Once
	return s, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			s.attached--
			s.lastSeen = r.now()
		})
	}
}

func (r *Registry) getLocked(id string) *Session {
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.now()
		return s
	}

	var storage clientstore.Storage
	if r.storage != nil {
		storage = r.storage(id)
	}
	s := &Session{
		ID:       id,
		Surface:  "snackbar/" + id,
		State:    state.New(storage),
		Router:   routing.New(nil),
		lastSeen: r.now(),
	}
	s.Feed = r.dispatcher.Feed(s.Surface)
	s.NavBar = navbar.New(r.backend, s.State, r.dispatcher, s.Router, s.Surface)
	s.NavBar.Init(context.Background())

	r.sessions[id] = s
	return s
}

// Sweep closes every session that is detached and idle for longer than the
// TTL. It returns the number of sessions closed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	cutoff := r.now().Add(-r.idleTTL)
	var expired []*Session
	for id, s := range r.sessions {
		if s.attached == 0 && s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.teardown(s)
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("session: closed %d idle sessions", n)
			}
		}
	}
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close tears a session down. Its channels stop delivering.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.teardown(s)
	}
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		r.teardown(s)
	}
}

func (r *Registry) teardown(s *Session) {
	s.NavBar.Close()
	s.State.Close()
	s.Router.Close()
	r.dispatcher.CloseFeed(s.Surface)
}
