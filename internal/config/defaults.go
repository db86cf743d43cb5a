package config

import (
	"fmt"
	"time"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = ".mydms.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:    ".mydms",
		BackendURL: "",
		Server: ServerConfig{
			Host:         "localhost",
			Port:         3000,
			SpaIndexFile: "index.html",
			SessionTTL:   30 * time.Minute,
		},
		Notifications: NotificationConfig{
			MinSeverity: "error",
		},
		Client: ClientConfig{
			ClientID: "terminal",
			Surface:  "terminal",
		},
	}
}

// EffectiveBackendURL returns the backend that serves application info. When
// none is configured the hub's own address is used.
func (c *Config) EffectiveBackendURL() string {
	if c.BackendURL != "" {
		return c.BackendURL
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}
