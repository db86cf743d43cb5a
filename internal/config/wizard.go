package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to mydms! Let's configure the state hub.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Listen address.
	hostPrompt := promptui.Prompt{
		Label:   "Server host",
		Default: cfg.Server.Host,
	}
	host, err := hostPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server host: %w", err)
	}
	cfg.Server.Host = host

	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 2. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (database and client storage)",
		Default: cfg.DataDir,
	}
	cfg.DataDir, err = dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 3. Backend.
	backendPrompt := promptui.Prompt{
		Label:   "Backend URL for application info (blank to use this server)",
		Default: "",
		Validate: func(s string) error {
			if s == "" {
				return nil
			}
			return validateURL(s)
		},
	}
	cfg.BackendURL, err = backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}

	// 4. Operator webhook.
	severityPrompt := promptui.Select{
		Label: "Forward notifications to a webhook",
		Items: []string{
			"off",
			"error   (load failures only)",
			"warning (warnings and errors)",
			"info    (everything)",
		},
	}
	idx, _, err := severityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("webhook selection: %w", err)
	}
	if idx > 0 {
		cfg.Notifications.MinSeverity = []string{"", "error", "warning", "info"}[idx]
		webhookPrompt := promptui.Prompt{
			Label:    "Webhook URL",
			Validate: validateURL,
		}
		cfg.Notifications.WebhookURL, err = webhookPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("webhook url: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 0 || n > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	return nil
}
