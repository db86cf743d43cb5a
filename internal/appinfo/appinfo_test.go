package appinfo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func testRouter() chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, NewProvider(VersionInfo{Version: "2.0.0", BuildNumber: "1-local", BuildDate: "2019.07.27"}))
	return r
}

func TestHandleGetAppInfo(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/appinfo", nil)
	req.Header.Set(HeaderUser, "jdoe")
	req.Header.Set(HeaderEmail, "jdoe@example.com")
	req.Header.Set(HeaderDisplayName, "John Doe")
	req.Header.Set(HeaderGroups, "User, Admin")
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got AppInfo
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserInfo.UserName != "jdoe" {
		t.Errorf("UserName = %q, want %q", got.UserInfo.UserName, "jdoe")
	}
	if got.UserInfo.DisplayName != "John Doe" {
		t.Errorf("DisplayName = %q, want %q", got.UserInfo.DisplayName, "John Doe")
	}
	if len(got.UserInfo.Roles) != 2 || got.UserInfo.Roles[1] != "Admin" {
		t.Errorf("Roles = %v, want [User Admin]", got.UserInfo.Roles)
	}
	if got.VersionInfo.Version != "2.0.0" || got.VersionInfo.BuildNumber != "1-local" {
		t.Errorf("VersionInfo = %+v", got.VersionInfo)
	}
}

func TestHandleGetAppInfoAnonymous(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/appinfo", nil)
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, req)

	var got AppInfo
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserInfo.UserID != "anonymous" || got.UserInfo.DisplayName != "anonymous" {
		t.Errorf("UserInfo = %+v, want anonymous", got.UserInfo)
	}
	if got.UserInfo.Roles == nil {
		t.Error("expected empty, non-nil roles")
	}
}

func TestClientGetApplicationInfo(t *testing.T) {
	ts := httptest.NewServer(testRouter())
	defer ts.Close()

	c := NewClient(ts.URL + "/").WithHeader(HeaderUser, "alice")
	got, err := c.GetApplicationInfo(context.Background())
	if err != nil {
		t.Fatalf("GetApplicationInfo: %v", err)
	}
	if got.UserInfo.UserName != "alice" {
		t.Errorf("UserName = %q, want %q", got.UserInfo.UserName, "alice")
	}
	if got.VersionInfo.BuildDate != "2019.07.27" {
		t.Errorf("BuildDate = %q, want %q", got.VersionInfo.BuildDate, "2019.07.27")
	}
}

func TestClientStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).GetApplicationInfo(context.Background())
	if err == nil {
		t.Fatal("expected error for 403")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.Code != http.StatusForbidden || se.Body != "denied" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestClientWithHeaderDoesNotMutate(t *testing.T) {
	base := NewClient("http://example.invalid")
	_ = base.WithHeader(HeaderUser, "bob")
	if base.header.Get(HeaderUser) != "" {
		t.Error("WithHeader must not modify the receiver")
	}
}
