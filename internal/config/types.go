package config

import "time"

// Config is the top-level mydms configuration, corresponding to .mydms.yml.
type Config struct {
	DataDir       string             `yaml:"data_dir" koanf:"data_dir"`
	BackendURL    string             `yaml:"backend_url" koanf:"backend_url"`
	Server        ServerConfig       `yaml:"server" koanf:"server"`
	Notifications NotificationConfig `yaml:"notifications" koanf:"notifications"`
	Client        ClientConfig       `yaml:"client" koanf:"client"`
}

// ServerConfig holds settings of the state hub server.
type ServerConfig struct {
	Host           string   `yaml:"host" koanf:"host"`
	Port           int      `yaml:"port" koanf:"port"`
	AllowAll       bool     `yaml:"allow_all" koanf:"allow_all"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	StaticDir      string   `yaml:"static_dir" koanf:"static_dir"`
	SpaIndexFile   string   `yaml:"spa_index_file" koanf:"spa_index_file"`
	// SessionTTL closes sessions with no attached socket after this much
	// inactivity. Zero keeps them until shutdown.
	SessionTTL time.Duration `yaml:"session_ttl" koanf:"session_ttl"`
}

// NotificationConfig controls forwarding of user notifications to operators.
type NotificationConfig struct {
	WebhookURL  string `yaml:"webhook_url" koanf:"webhook_url"`
	MinSeverity string `yaml:"min_severity" koanf:"min_severity"`
}

// ClientConfig holds settings of the terminal navigation bar.
type ClientConfig struct {
	// ClientID scopes the terminal client's local storage.
	ClientID string `yaml:"client_id" koanf:"client_id"`
	// Surface names the display surface errors are reported on.
	Surface string `yaml:"surface" koanf:"surface"`
}
