package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore: MYDMS_SERVER__PORT -> server.port.
const EnvPrefix = "MYDMS_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MYDMS_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps MYDMS_SERVER__PORT to server.port.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validSeverities is the set of recognized notification severity values.
var validSeverities = map[string]bool{
	"info":    true,
	"warning": true,
	"error":   true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 0 and 65535", c.Server.Port)
	}

	if c.Server.SessionTTL < 0 {
		return fmt.Errorf("invalid server.session_ttl %s: must not be negative", c.Server.SessionTTL)
	}

	if c.BackendURL != "" {
		if err := validateURL(c.BackendURL); err != nil {
			return fmt.Errorf("invalid backend_url: %w", err)
		}
	}

	if c.Notifications.WebhookURL != "" {
		if err := validateURL(c.Notifications.WebhookURL); err != nil {
			return fmt.Errorf("invalid notifications.webhook_url: %w", err)
		}
	}
	if c.Notifications.MinSeverity != "" && !validSeverities[c.Notifications.MinSeverity] {
		return fmt.Errorf("invalid notifications.min_severity %q: must be one of info, warning, error", c.Notifications.MinSeverity)
	}

	if c.Client.ClientID == "" {
		return fmt.Errorf("client.client_id is required")
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: host is required", raw)
	}
	return nil
}
