package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/mydms/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:        "test-1",
		SessionID: "sess-1",
		ActorID:   "alice",
		Action:    "showAmount",
		Detail:    `{"type":"showAmount","flag":true}`,
	}
	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", got.SessionID, "sess-1")
	}
	if got.ActorID != "alice" {
		t.Errorf("ActorID = %q, want %q", got.ActorID, "alice")
	}
	if got.Action != "showAmount" {
		t.Errorf("Action = %q, want %q", got.Action, "showAmount")
	}
	if got.Detail != entry.Detail {
		t.Errorf("Detail = %q, want %q", got.Detail, entry.Detail)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp should be set by the database")
	}
}

func TestLogDefaults(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{SessionID: "s", Action: "search"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected a generated ID")
	}
	if entries[0].ActorID != ActorAnonymous {
		t.Errorf("ActorID = %q, want %q", entries[0].ActorID, ActorAnonymous)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, e := range []Entry{
		{ID: "1", SessionID: "a", ActorID: "alice", Action: "search"},
		{ID: "2", SessionID: "a", ActorID: "alice", Action: "navigate"},
		{ID: "3", SessionID: "b", ActorID: "bob", Action: "search"},
	} {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   int
	}{
		{"all", QueryFilter{}, 3},
		{"by session", QueryFilter{SessionID: "a"}, 2},
		{"by actor", QueryFilter{ActorID: "bob"}, 1},
		{"by action", QueryFilter{Action: "search"}, 2},
		{"limit", QueryFilter{Limit: 2}, 2},
		{"offset only", QueryFilter{Offset: 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}

	// Same-second entries come back newest first.
	got, _ := store.Query(ctx, QueryFilter{})
	if got[0].ID != "3" {
		t.Errorf("first entry = %q, want %q", got[0].ID, "3")
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{SessionID: "s", Action: "search"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	n, err := store.DeleteBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted %d recent entries, want 0", n)
	}

	n, err = store.DeleteBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d entries, want 1", n)
	}
}

func TestHTTPHandlers(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	if err := store.Log(ctx, Entry{ID: "e1", SessionID: "a", Action: "search"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	t.Run("query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/audit?session=a", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var entries []Entry
		if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("got %d entries, want 1", len(entries))
		}
	})

	t.Run("query empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/audit?session=none", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if body := w.Body.String(); body != "[]\n" {
			t.Errorf("body = %q, want empty array", body)
		}
	})

	t.Run("get by id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/audit/e1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/audit/nope", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("prune requires before", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/audit", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("prune", func(t *testing.T) {
		before := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
		req := httptest.NewRequest(http.MethodDelete, "/api/audit?before="+before, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var resp map[string]int64
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["deleted"] != 1 {
			t.Errorf("deleted = %d, want 1", resp["deleted"])
		}
	})
}
