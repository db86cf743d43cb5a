// Package navbar implements the navigation bar controller: it loads the
// application info once, mirrors shared state into its own display state and
// turns user actions into state updates.
package navbar

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ziadkadry99/mydms/internal/appinfo"
	"github.com/ziadkadry99/mydms/internal/state"
)

// Menu transform values for the side menu.
const (
	TransformVisible = "translateX(0)"
	TransformHidden  = "translateX(-110%)"
)

// Backend loads application info.
type Backend interface {
	GetApplicationInfo(ctx context.Context) (appinfo.AppInfo, error)
}

// Notifier shows an error to the user on a display surface.
type Notifier interface {
	ShowError(ctx context.Context, err error, surface string)
}

// ChannelErrorNotifier is implemented by notifiers that label failures of
// shared-state delivery separately from load failures.
type ChannelErrorNotifier interface {
	ShowChannelError(ctx context.Context, err error, surface string)
}

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(path string)
}

// View is the navigation bar's display state.
type View struct {
	MenuVisible   bool                   `json:"menuVisible"`
	MenuTransform string                 `json:"menuTransform"`
	ShowProgress  bool                   `json:"showProgress"`
	SearchText    string                 `json:"searchText"`
	ShowAmount    bool                   `json:"showAmount"`
	AppData       *state.ApplicationData `json:"appData,omitempty"`
}

// NavBar is one navigation bar instance bound to a session's state.
type NavBar struct {
	backend  Backend
	state    *state.ApplicationState
	notifier Notifier
	router   Navigator
	surface  string

	mu     sync.Mutex
	view   View
	cancel context.CancelFunc
	subs   []*state.Subscription
	closed bool

	once sync.Once
	done chan struct{}
}

// New creates a NavBar. Errors are reported to notifier on surface.
func New(backend Backend, st *state.ApplicationState, notifier Notifier, router Navigator, surface string) *NavBar {
	return &NavBar{
		backend:  backend,
		state:    st,
		notifier: notifier,
		router:   router,
		surface:  surface,
	}
}

// Init starts the application info fetch and subscribes to the shared
// search, progress and show-amount channels. It returns without waiting for
// the fetch; use Wait for that. Calls after the first are ignored.
func (n *NavBar) Init(ctx context.Context) {
	n.once.Do(func() {
		n.mu.Lock()
		if n.closed {
			n.mu.Unlock()
			return
		}
		ctx, n.cancel = context.WithCancel(ctx)
		n.done = make(chan struct{})
		n.mu.Unlock()
		go n.loadAppInfo(ctx)

		onErr := state.OnError(n.reportChannelError)
		subs := []*state.Subscription{
			n.state.SearchInput().Subscribe(func(text string) {
				n.update(func(v *View) { v.SearchText = text })
			}, onErr),
			n.state.Progress().Subscribe(func(busy bool) {
				n.update(func(v *View) { v.ShowProgress = busy })
			}, onErr),
			n.state.ShowAmount().Subscribe(func(show bool) {
				n.update(func(v *View) { v.ShowAmount = show })
			}, onErr),
		}

		n.mu.Lock()
		closed := n.closed
		if !closed {
			n.subs = subs
		}
		n.mu.Unlock()
		if closed {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		}
	})
}

func (n *NavBar) loadAppInfo(ctx context.Context) {
	defer close(n.done)

	info, err := n.backend.GetApplicationInfo(ctx)
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	if err != nil {
		n.notifier.ShowError(ctx, err, n.surface)
		return
	}

	data := state.ApplicationData{AppInfo: info}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.view.AppData = &data
	n.mu.Unlock()
	n.state.SetAppData(data)
}

// reportChannelError sends a listener failure to the notifier, labelled as
// a channel error when the notifier supports it.
func (n *NavBar) reportChannelError(err error) {
	if cn, ok := n.notifier.(ChannelErrorNotifier); ok {
		cn.ShowChannelError(context.Background(), err, n.surface)
		return
	}
	n.notifier.ShowError(context.Background(), err, n.surface)
}

// Wait blocks until the application info fetch started by Init has finished.
func (n *NavBar) Wait() {
	n.mu.Lock()
	done := n.done
	n.mu.Unlock()
	if done != nil {
		<-done
	}
}

// OnSearch forwards the search text to the shared state unchanged.
func (n *NavBar) OnSearch(text string) {
	n.state.SetSearchInput(text)
}

// ToggleMenu shows or hides the side menu.
func (n *NavBar) ToggleMenu(visible bool) {
	n.update(func(v *View) { v.MenuVisible = visible })
}

// MenuTransform returns the side menu position for its current visibility.
func (n *NavBar) MenuTransform() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return transform(n.view.MenuVisible)
}

// NavigateTo closes the menu and moves to destination.
func (n *NavBar) NavigateTo(destination string) {
	n.ToggleMenu(false)
	n.router.Navigate(destination)
}

// ShowAmountToggle stores the preference and asks other views to reload,
// in that order.
func (n *NavBar) ShowAmountToggle(checked bool) {
	log.Printf("navbar: change showAmount to %v", checked)
	n.state.SetShowAmount(checked)
	n.state.SetRequestReload(true)
}

// View returns a copy of the display state.
func (n *NavBar) View() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	v := n.view
	v.MenuTransform = transform(v.MenuVisible)
	return v
}

// Close cancels a pending fetch and releases the subscriptions. A fetch
// that completes afterwards publishes nothing.
func (n *NavBar) Close() {
	n.mu.Lock()
	n.closed = true
	cancel := n.cancel
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (n *NavBar) update(fn func(*View)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn(&n.view)
}

func transform(visible bool) string {
	if visible {
		return TransformVisible
	}
	return TransformHidden
}
