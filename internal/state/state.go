// Package state holds the per-session application state shared between
// otherwise unrelated views: application data, search text, the progress
// flag, the show-amount preference and reload requests.
package state

import (
	"encoding/json"
	"log"

	"github.com/ziadkadry99/mydms/internal/appinfo"
	"github.com/ziadkadry99/mydms/internal/clientstore"
)

// ShowAmountKey is the client storage key of the show-amount preference.
const ShowAmountKey = "mydms.amount.show"

// Channel names as they appear on the wire.
const (
	ChannelAppData       = "appData"
	ChannelSearchInput   = "searchInput"
	ChannelProgress      = "progress"
	ChannelShowAmount    = "showAmount"
	ChannelRequestReload = "requestReload"
)

// ApplicationData is the payload published once application info is loaded.
type ApplicationData struct {
	AppInfo appinfo.AppInfo `json:"appInfo"`
}

// ApplicationState owns the channels of one session.
type ApplicationState struct {
	appData       *Channel[ApplicationData]
	searchInput   *Channel[string]
	progress      *Channel[bool]
	showAmount    *Channel[bool]
	requestReload *Channel[bool]

	storage clientstore.Storage
}

// New creates an ApplicationState whose show-amount preference is kept in
// storage. A nil storage keeps the preference in memory only.
func New(storage clientstore.Storage) *ApplicationState {
	if storage == nil {
		storage = clientstore.NewMemoryStore()
	}
	return &ApplicationState{
		appData:       NewChannel[ApplicationData](ChannelAppData),
		searchInput:   NewChannel[string](ChannelSearchInput),
		progress:      NewChannel[bool](ChannelProgress),
		showAmount:    NewChannel[bool](ChannelShowAmount),
		requestReload: NewChannel[bool](ChannelRequestReload),
		storage:       storage,
	}
}

func (s *ApplicationState) AppData() *Channel[ApplicationData] { return s.appData }

func (s *ApplicationState) SetAppData(data ApplicationData) { s.appData.Publish(data) }

func (s *ApplicationState) SearchInput() *Channel[string] { return s.searchInput }

func (s *ApplicationState) SetSearchInput(text string) { s.searchInput.Publish(text) }

func (s *ApplicationState) Progress() *Channel[bool] { return s.progress }

func (s *ApplicationState) SetProgress(flag bool) { s.progress.Publish(flag) }

func (s *ApplicationState) RequestReload() *Channel[bool] { return s.requestReload }

func (s *ApplicationState) SetRequestReload(flag bool) { s.requestReload.Publish(flag) }

// ShowAmount re-reads the persisted preference, publishes it and returns the
// channel. A missing entry publishes false. If storage cannot be read the
// channel keeps its current value, or false when it has none.
func (s *ApplicationState) ShowAmount() *Channel[bool] {
	raw, ok, err := s.storage.GetItem(ShowAmountKey)
	if err != nil {
		log.Printf("state: reading %s: %v", ShowAmountKey, err)
		if _, has := s.showAmount.Value(); !has {
			s.showAmount.Publish(false)
		}
		return s.showAmount
	}
	if !ok || raw == "" {
		s.showAmount.Publish(false)
		return s.showAmount
	}
	s.showAmount.Publish(DecodeShowAmount(raw))
	return s.showAmount
}

// SetShowAmount persists the preference and publishes it. Persisting is
// best-effort; the channel is updated even if storage fails.
func (s *ApplicationState) SetShowAmount(show bool) {
	b, _ := json.Marshal(show)
	if err := s.storage.SetItem(ShowAmountKey, string(b)); err != nil {
		log.Printf("state: writing %s: %v", ShowAmountKey, err)
	}
	s.showAmount.Publish(show)
}

// DecodeShowAmount decodes a stored show-amount value. Only the JSON values
// true, 1, "1", "true" and "TRUE" are true. Legacy entries written without
// JSON encoding are matched against the same string forms; anything else is
// false.
func DecodeShowAmount(raw string) bool {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return truthyString(raw)
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case string:
		return truthyString(t)
	}
	return false
}

func truthyString(s string) bool {
	return s == "1" || s == "true" || s == "TRUE"
}

// Snapshot is the current value of every channel. Channels that never
// received a value are nil.
type Snapshot struct {
	AppData       *ApplicationData `json:"appData,omitempty"`
	SearchInput   *string          `json:"searchInput,omitempty"`
	Progress      *bool            `json:"progress,omitempty"`
	ShowAmount    *bool            `json:"showAmount,omitempty"`
	RequestReload *bool            `json:"requestReload,omitempty"`
}

// Snapshot returns the current channel values without re-reading storage.
func (s *ApplicationState) Snapshot() Snapshot {
	return Snapshot{
		AppData:       current(s.appData),
		SearchInput:   current(s.searchInput),
		Progress:      current(s.progress),
		ShowAmount:    current(s.showAmount),
		RequestReload: current(s.requestReload),
	}
}

// Close drops all subscribers of all channels.
func (s *ApplicationState) Close() {
	s.appData.Close()
	s.searchInput.Close()
	s.progress.Close()
	s.showAmount.Close()
	s.requestReload.Close()
}

func current[T any](c *Channel[T]) *T {
	v, ok := c.Value()
	if !ok {
		return nil
	}
	return &v
}
