package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/mydms/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testNotification(id string) Notification {
	return Notification{
		ID:       id,
		Type:     TypeLoadFailed,
		Severity: SeverityError,
		Surface:  SurfaceDefault,
		Title:    "Error",
		Message:  "could not load application info",
	}
}

func TestStoreCreate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n := testNotification("n-1")
	if _, err := store.Create(ctx, n); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByID(ctx, "n-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Message != n.Message {
		t.Errorf("Message = %q, want %q", got.Message, n.Message)
	}
	if got.Surface != SurfaceDefault {
		t.Errorf("Surface = %q, want %q", got.Surface, SurfaceDefault)
	}
	if got.Delivered {
		t.Error("expected Delivered = false")
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStoreCreateAutoID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testNotification(""))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].ID != created.ID {
		t.Fatalf("List = %+v, want the created notification", all)
	}
}

func TestStoreGetByIDNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n1 := Notification{ID: "f-1", Type: TypeMessage, Severity: SeverityInfo, Surface: "snackbar", Title: "Saved"}
	n2 := Notification{ID: "f-2", Type: TypeChannelError, Severity: SeverityWarning, Surface: "banner", Title: "Stream"}
	n3 := Notification{ID: "f-3", Type: TypeLoadFailed, Severity: SeverityError, Surface: "snackbar", Title: "Load"}

	for _, n := range []Notification{n1, n2, n3} {
		if _, err := store.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := store.List(ctx, ListFilter{Type: TypeChannelError})
	if err != nil {
		t.Fatalf("List by type: %v", err)
	}
	if len(got) != 1 || got[0].ID != "f-2" {
		t.Errorf("filter by type: got %d results", len(got))
	}

	got, err = store.List(ctx, ListFilter{Severity: SeverityError})
	if err != nil {
		t.Fatalf("List by severity: %v", err)
	}
	if len(got) != 1 || got[0].ID != "f-3" {
		t.Errorf("filter by severity: got %d results", len(got))
	}

	got, err = store.List(ctx, ListFilter{Surface: "snackbar"})
	if err != nil {
		t.Fatalf("List by surface: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("filter by surface: got %d results, want 2", len(got))
	}

	got, err = store.List(ctx, ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List with limit: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("filter with limit: got %d results, want 2", len(got))
	}

	got, err = store.List(ctx, ListFilter{Offset: 2})
	if err != nil {
		t.Fatalf("List with offset: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("filter with offset: got %d results, want 1", len(got))
	}
}

func TestStoreMarkDeliveredAndPending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"p-1", "p-2"} {
		if _, err := store.Create(ctx, testNotification(id)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if err := store.MarkDelivered(ctx, "p-1"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if err := store.MarkDelivered(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkDelivered(nonexistent) = %v, want ErrNotFound", err)
	}

	pending, err := store.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "p-2" {
		t.Errorf("GetPending: got %d results, want 1 (p-2)", len(pending))
	}
}

func TestDispatcherShowErrorPublishesToFeed(t *testing.T) {
	store := setupTestStore(t)
	dispatcher := NewDispatcher(store)
	ctx := context.Background()

	var got []Notification
	sub := dispatcher.Feed("snackbar").Subscribe(func(n Notification) { got = append(got, n) })
	defer sub.Unsubscribe()

	dispatcher.ShowError(ctx, errors.New("backend unavailable"), "snackbar")
	dispatcher.ShowError(ctx, nil, "snackbar")

	if len(got) != 1 {
		t.Fatalf("expected 1 feed notification, got %d", len(got))
	}
	if got[0].Severity != SeverityError || got[0].Message != "backend unavailable" {
		t.Errorf("feed notification = %+v", got[0])
	}

	stored, err := store.GetByID(ctx, got[0].ID)
	if err != nil {
		t.Fatalf("GetByID after ShowError: %v", err)
	}
	if stored.Message != "backend unavailable" {
		t.Errorf("stored Message = %q", stored.Message)
	}
}

func TestDispatcherNotificationTypes(t *testing.T) {
	dispatcher := NewDispatcher(setupTestStore(t))
	ctx := context.Background()

	tests := []struct {
		name string
		send func()
		want NotificationType
	}{
		{"load failure", func() { dispatcher.ShowError(ctx, errors.New("down"), "s") }, TypeLoadFailed},
		{"channel failure", func() { dispatcher.ShowChannelError(ctx, errors.New("listener"), "s") }, TypeChannelError},
		{"untyped dispatch", func() { dispatcher.Dispatch(ctx, Notification{Surface: "s", Title: "Saved"}) }, TypeMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.send()
			n, ok := dispatcher.Feed("s").Value()
			if !ok || n.Type != tt.want {
				t.Errorf("type = %q (ok=%v), want %q", n.Type, ok, tt.want)
			}
		})
	}

	before, _ := dispatcher.Feed("s").Value()
	dispatcher.ShowChannelError(ctx, nil, "s")
	if after, _ := dispatcher.Feed("s").Value(); after.ID != before.ID {
		t.Error("nil channel error should not notify")
	}
}

func TestDispatcherDefaultSurface(t *testing.T) {
	dispatcher := NewDispatcher(setupTestStore(t))

	if dispatcher.Feed("") != dispatcher.Feed(SurfaceDefault) {
		t.Fatal("empty surface should map to the default feed")
	}

	dispatcher.ShowError(context.Background(), errors.New("x"), "")
	n, ok := dispatcher.Feed(SurfaceDefault).Value()
	if !ok || n.Surface != SurfaceDefault {
		t.Errorf("default feed value = %+v (ok=%v)", n, ok)
	}

	dispatcher.CloseFeed(SurfaceDefault)
	if _, ok := dispatcher.Feed(SurfaceDefault).Value(); ok {
		t.Error("expected a fresh feed after CloseFeed")
	}
}

func TestDispatcherWebhook(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dispatcher := NewDispatcher(store).WithWebhook(server.URL, SeverityError)

	dispatcher.Dispatch(ctx, Notification{Type: TypeMessage, Severity: SeverityInfo, Title: "Saved"})
	if received != nil {
		t.Fatal("webhook should not be called below the severity threshold")
	}

	dispatcher.ShowError(ctx, errors.New("boom"), "snackbar")
	if received == nil {
		t.Fatal("webhook was not called")
	}
	var got Notification
	if err := json.Unmarshal(received, &got); err != nil {
		t.Fatalf("unmarshalling webhook payload: %v", err)
	}
	if got.Message != "boom" {
		t.Errorf("webhook payload Message = %q, want %q", got.Message, "boom")
	}
}

func TestHTTPHandlers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	if _, err := store.Create(ctx, testNotification("api-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("GET /api/notifications", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications?surface=snackbar", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var got []Notification
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 notification, got %d", len(got))
		}
	})

	t.Run("GET /api/notifications/{id}", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/api-1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var got Notification
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if got.ID != "api-1" {
			t.Errorf("ID = %q, want api-1", got.ID)
		}
	})

	t.Run("GET /api/notifications/{id} not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/missing", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("POST /api/notifications/{id}/deliver", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/notifications/api-1/deliver", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("GET /api/notifications/pending", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/pending", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var got []Notification
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected 0 pending after deliver, got %d", len(got))
		}
	})
}

func TestSeverityMatches(t *testing.T) {
	tests := []struct {
		actual, filter Severity
		want           bool
	}{
		{SeverityInfo, SeverityInfo, true},
		{SeverityWarning, SeverityInfo, true},
		{SeverityError, SeverityWarning, true},
		{SeverityInfo, SeverityError, false},
		{SeverityWarning, SeverityError, false},
	}
	for _, tt := range tests {
		if got := severityMatches(tt.actual, tt.filter); got != tt.want {
			t.Errorf("severityMatches(%s, %s) = %v, want %v", tt.actual, tt.filter, got, tt.want)
		}
	}
}
