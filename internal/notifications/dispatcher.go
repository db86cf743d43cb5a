package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ziadkadry99/mydms/internal/state"
)

// Dispatcher surfaces notifications to users. Each display surface has a
// live feed that attached clients subscribe to; every notification is also
// persisted and optionally forwarded to an operator webhook.
type Dispatcher struct {
	store  *Store
	client *http.Client

	webhookURL      string
	webhookSeverity Severity

	mu    sync.Mutex
	feeds map[string]*state.Channel[Notification]
}

// NewDispatcher creates a Dispatcher backed by the given store.
func NewDispatcher(store *Store) *Dispatcher {
	return &Dispatcher{
		store: store,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		feeds: make(map[string]*state.Channel[Notification]),
	}
}

// WithWebhook forwards notifications at or above minSeverity to url.
func (d *Dispatcher) WithWebhook(url string, minSeverity Severity) *Dispatcher {
	d.webhookURL = url
	d.webhookSeverity = minSeverity
	return d
}

// Feed returns the live notification channel of a surface.
func (d *Dispatcher) Feed(surface string) *state.Channel[Notification] {
	if surface == "" {
		surface = SurfaceDefault
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.feeds[surface]
	if !ok {
		f = state.NewChannel[Notification]("notifications:" + surface)
		d.feeds[surface] = f
	}
	return f
}

// CloseFeed drops the subscribers of a surface's feed and forgets it.
func (d *Dispatcher) CloseFeed(surface string) {
	d.mu.Lock()
	f, ok := d.feeds[surface]
	delete(d.feeds, surface)
	d.mu.Unlock()
	if ok {
		f.Close()
	}
}

// ShowError reports err to the user on the given surface. It never fails:
// if the notification cannot be stored it is still published to the feed.
func (d *Dispatcher) ShowError(ctx context.Context, err error, surface string) {
	if err == nil {
		return
	}
	if surface == "" {
		surface = SurfaceDefault
	}
	d.Dispatch(ctx, Notification{
		Type:     TypeLoadFailed,
		Severity: SeverityError,
		Surface:  surface,
		Title:    "Error",
		Message:  err.Error(),
	})
}

// ShowChannelError reports a failure while delivering shared state on the
// given surface. Nil errors are ignored.
func (d *Dispatcher) ShowChannelError(ctx context.Context, err error, surface string) {
	if err == nil {
		return
	}
	d.Dispatch(ctx, Notification{
		Type:     TypeChannelError,
		Severity: SeverityError,
		Surface:  surface,
		Title:    "Error",
		Message:  err.Error(),
	})
}

// Dispatch persists n, publishes it on its surface feed and forwards it to
// the webhook when configured.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) Notification {
	if n.Surface == "" {
		n.Surface = SurfaceDefault
	}
	if n.Type == "" {
		n.Type = TypeMessage
	}
	stored, err := d.store.Create(ctx, n)
	if err != nil {
		log.Printf("notifications: %v", err)
	}
	d.Feed(stored.Surface).Publish(stored)

	if d.webhookURL != "" && severityMatches(stored.Severity, d.webhookSeverity) {
		payload, err := json.Marshal(stored)
		if err == nil {
			if err := d.SendWebhook(ctx, d.webhookURL, payload); err != nil {
				log.Printf("notifications: %v", err)
			}
		}
	}
	return stored
}

// SendWebhook POSTs payload to the given URL.
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// severityMatches returns true if the notification severity meets or exceeds the filter threshold.
func severityMatches(actual, filter Severity) bool {
	levels := map[Severity]int{
		SeverityInfo:    0,
		SeverityWarning: 1,
		SeverityError:   2,
	}
	return levels[actual] >= levels[filter]
}
