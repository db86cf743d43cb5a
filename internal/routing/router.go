// Package routing tracks the current view of a session.
package routing

import (
	"path"
	"strings"

	"github.com/ziadkadry99/mydms/internal/state"
)

// ChannelRoute is the wire name of the current-route channel.
const ChannelRoute = "route"

// Destination is a navigable view.
type Destination struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// DefaultDestinations are the views of the document-management front-end.
var DefaultDestinations = []Destination{
	{Path: "/documents", Label: "Documents"},
	{Path: "/documents/new", Label: "New document"},
	{Path: "/senders", Label: "Senders"},
	{Path: "/tags", Label: "Tags"},
}

// Router records navigation for one session. Attached clients follow the
// route by subscribing to Current.
type Router struct {
	current      *state.Channel[string]
	destinations []Destination
}

// New creates a Router offering the given destinations.
func New(destinations []Destination) *Router {
	if destinations == nil {
		destinations = DefaultDestinations
	}
	return &Router{
		current:      state.NewChannel[string](ChannelRoute),
		destinations: destinations,
	}
}

// Navigate moves the session to p. It does not wait for any client to follow.
func (r *Router) Navigate(p string) {
	r.current.Publish(Clean(p))
}

// Current is the channel carrying the active route.
func (r *Router) Current() *state.Channel[string] { return r.current }

// Destinations lists the known views.
func (r *Router) Destinations() []Destination { return r.destinations }

// Close drops all route subscribers.
func (r *Router) Close() { r.current.Close() }

// Clean normalises a route to an absolute, slash-separated path.
func Clean(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
