// Package hub relays a session's application state to connected clients
// over WebSocket and applies the commands they send back.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/mydms/internal/appinfo"
	"github.com/ziadkadry99/mydms/internal/audit"
	"github.com/ziadkadry99/mydms/internal/navbar"
	"github.com/ziadkadry99/mydms/internal/notifications"
	"github.com/ziadkadry99/mydms/internal/routing"
	"github.com/ziadkadry99/mydms/internal/session"
	"github.com/ziadkadry99/mydms/internal/state"
)

const (
	outboxSize = 64
	writeWait  = 10 * time.Second
)

// Hub serves the state endpoints for all sessions in a registry.
type Hub struct {
	registry *session.Registry
	journal  *audit.Store
	upgrader websocket.Upgrader

	allowAll       bool
	allowedOrigins []string
}

// New creates a Hub over the given registry. Browsers may only open the
// state socket from the hub's own origin until WithOrigins says otherwise.
func New(registry *session.Registry) *Hub {
	h := &Hub{registry: registry}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// WithOrigins allows the state socket from the given origins, or from any
// origin when allowAll is set.
func (h *Hub) WithOrigins(allowAll bool, origins []string) *Hub {
	h.allowAll = allowAll
	h.allowedOrigins = origins
	return h
}

// WithAudit records every applied state-changing command in journal.
func (h *Hub) WithAudit(journal *audit.Store) *Hub {
	h.journal = journal
	return h
}

// RegisterRoutes mounts the state endpoints on the given router.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/ws/state", h.handleWebSocket)
	r.Route("/api/v1/state", func(r chi.Router) {
		r.Get("/", h.handleSnapshot)
		r.Post("/", h.handleCommand)
	})
}

// snapshotResponse is the body of GET /api/v1/state.
type snapshotResponse struct {
	Session string         `json:"session"`
	State   state.Snapshot `json:"state"`
	Route   string         `json:"route,omitempty"`
	NavBar  navbar.View    `json:"navbar"`
}

func (h *Hub) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, issued := h.sessionID(w, r)
	if issued {
		// Nothing can have been published for a new id yet.
		showAmount := false
		writeJSON(w, http.StatusOK, snapshotResponse{
			Session: id,
			State:   state.Snapshot{ShowAmount: &showAmount},
			NavBar:  navbar.View{MenuTransform: navbar.TransformHidden},
		})
		return
	}

	s := h.registry.Get(id)
	route, _ := s.Router.Current().Value()
	writeJSON(w, http.StatusOK, snapshotResponse{
		Session: s.ID,
		State:   s.State.Snapshot(),
		Route:   route,
		NavBar:  s.NavBar.View(),
	})
}

func (h *Hub) handleCommand(w http.ResponseWriter, r *http.Request) {
	id, _ := h.sessionID(w, r)
	s := h.registry.Get(id)

	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := apply(s, cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.record(r.Context(), s, actorOf(r), cmd)
	writeJSON(w, http.StatusOK, s.NavBar.View())
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, _ := h.sessionID(w, r)
	actor := actorOf(r)

	conn, err := h.upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		log.Printf("hub: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	s, release := h.registry.Attach(id)
	defer release()

	out := newOutbox(conn)
	go out.run()
	defer out.close()

	out.send(Frame{Channel: FrameSessionOpened, Value: s.ID})

	subs := []*state.Subscription{
		forward(s.State.AppData(), out),
		forward(s.State.SearchInput(), out),
		forward(s.State.Progress(), out),
		forward(s.State.ShowAmount(), out),
		forward(s.State.RequestReload(), out),
		forward(s.Router.Current(), out),
		s.Feed.Subscribe(func(n notifications.Notification) {
			out.send(Frame{Channel: FrameNotification, Value: n})
		}),
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("hub: websocket read: %v", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			out.send(Frame{Channel: FrameError, Value: "invalid message format"})
			continue
		}
		if err := apply(s, cmd); err != nil {
			out.send(Frame{Channel: FrameError, Value: err.Error()})
			continue
		}
		h.record(r.Context(), s, actor, cmd)
		if cmd.Type == CmdMenu || cmd.Type == CmdView {
			out.send(Frame{Channel: FrameNavBar, Value: s.NavBar.View()})
		}
	}
}

// apply runs a client command against the session.
func apply(s *session.Session, cmd Command) error {
	needFlag := func() (bool, error) {
		if cmd.Flag == nil {
			return false, fmt.Errorf("%s: flag is required", cmd.Type)
		}
		return *cmd.Flag, nil
	}

	switch cmd.Type {
	case CmdSearch:
		s.NavBar.OnSearch(cmd.Text)
	case CmdProgress:
		v, err := needFlag()
		if err != nil {
			return err
		}
		s.State.SetProgress(v)
	case CmdShowAmount:
		v, err := needFlag()
		if err != nil {
			return err
		}
		s.NavBar.ShowAmountToggle(v)
	case CmdReload:
		v, err := needFlag()
		if err != nil {
			return err
		}
		s.State.SetRequestReload(v)
	case CmdNavigate:
		if cmd.Path == "" {
			return errors.New("navigate: path is required")
		}
		s.NavBar.NavigateTo(routing.Clean(cmd.Path))
	case CmdMenu:
		v, err := needFlag()
		if err != nil {
			return err
		}
		s.NavBar.ToggleMenu(v)
	case CmdView:
	default:
		return fmt.Errorf("unknown command type: %s", cmd.Type)
	}
	return nil
}

// record journals a state-changing command. Failures are logged only.
func (h *Hub) record(ctx context.Context, s *session.Session, actor string, cmd Command) {
	if h.journal == nil || cmd.Type == CmdView {
		return
	}
	detail, _ := json.Marshal(cmd)
	err := h.journal.Log(ctx, audit.Entry{
		SessionID: s.ID,
		ActorID:   actor,
		Action:    cmd.Type,
		Detail:    string(detail),
	})
	if err != nil {
		log.Printf("hub: %v", err)
	}
}

func actorOf(r *http.Request) string {
	if u := r.Header.Get(appinfo.HeaderUser); u != "" {
		return u
	}
	return audit.ActorAnonymous
}

// sessionID resolves the caller's session id from the session query
// parameter or cookie. When neither is valid a new id is issued as a cookie
// and issued is true.
func (h *Hub) sessionID(w http.ResponseWriter, r *http.Request) (id string, issued bool) {
	if id := r.URL.Query().Get("session"); session.ValidID(id) {
		return id, false
	}
	if c, err := r.Cookie(session.CookieName); err == nil && session.ValidID(c.Value) {
		return c.Value, false
	}
	id = session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true
}

// checkOrigin accepts requests without an Origin header, same-origin
// requests and the configured origins.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowAll {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func forward[T any](c *state.Channel[T], out *outbox) *state.Subscription {
	name := c.Name()
	return c.Subscribe(func(v T) { out.send(Frame{Channel: name, Value: v}) })
}

// outbox serializes writes to one connection. Senders never wait: a
// connection whose outbox is full is closed.
type outbox struct {
	conn   *websocket.Conn
	frames chan Frame
	done   chan struct{}
	once   sync.Once
}

func newOutbox(conn *websocket.Conn) *outbox {
	return &outbox{
		conn:   conn,
		frames: make(chan Frame, outboxSize),
		done:   make(chan struct{}),
	}
}

// send queues f. It drops f once the connection is closed, and closes the
// connection if the client has fallen outboxSize frames behind.
func (o *outbox) send(f Frame) {
	select {
	case <-o.done:
		return
	default:
	}
	select {
	case o.frames <- f:
	case <-o.done:
	default:
		log.Printf("hub: closing websocket %s: client is not reading", o.conn.RemoteAddr())
		o.close()
	}
}

func (o *outbox) run() {
	for {
		select {
		case f := <-o.frames:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteJSON(f); err != nil {
				log.Printf("hub: websocket write: %v", err)
				o.close()
				return
			}
		case <-o.done:
			return
		}
	}
}

// close stops the writer and closes the connection, which also ends the
// read loop.
func (o *outbox) close() {
	o.once.Do(func() {
		close(o.done)
		o.conn.Close()
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
