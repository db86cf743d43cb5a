package appinfo

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Identity headers set by the authenticating reverse proxy in front of mydms.
const (
	HeaderUser        = "X-Forwarded-User"
	HeaderEmail       = "X-Forwarded-Email"
	HeaderDisplayName = "X-Forwarded-Preferred-Username"
	HeaderGroups      = "X-Forwarded-Groups"
)

// Provider builds the AppInfo payload for a request.
type Provider struct {
	Version VersionInfo
}

// NewProvider creates a Provider reporting the given version.
func NewProvider(v VersionInfo) *Provider {
	return &Provider{Version: v}
}

// For returns the AppInfo for the identity carried by r.
func (p *Provider) For(r *http.Request) AppInfo {
	user := UserInfo{
		UserID:      r.Header.Get(HeaderUser),
		UserName:    r.Header.Get(HeaderUser),
		Email:       r.Header.Get(HeaderEmail),
		DisplayName: r.Header.Get(HeaderDisplayName),
		Roles:       splitGroups(r.Header.Get(HeaderGroups)),
	}
	if user.UserID == "" {
		user.UserID = "anonymous"
		user.UserName = "anonymous"
	}
	if user.DisplayName == "" {
		user.DisplayName = user.UserName
	}
	return AppInfo{UserInfo: user, VersionInfo: p.Version}
}

// RegisterRoutes mounts the application info endpoint on the given router.
func RegisterRoutes(r chi.Router, p *Provider) {
	r.Get("/api/v1/appinfo", handleGetAppInfo(p))
}

func handleGetAppInfo(p *Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := p.For(r)
		log.Printf("appinfo: user %s, email %s", a.UserInfo.UserName, a.UserInfo.Email)
		writeJSON(w, http.StatusOK, a)
	}
}

func splitGroups(s string) []string {
	roles := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			roles = append(roles, part)
		}
	}
	return roles
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
