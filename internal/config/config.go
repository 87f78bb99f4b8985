// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for saaschat.
//
// Configuration is read from ~/.saaschat/config.toml with built-in defaults
// and SAASCHAT_* environment variable overrides applied last.
package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete saaschat configuration.
type Config struct {
	// Backend settings
	Backend BackendConfig `toml:"backend"`

	// User identity
	User UserConfig `toml:"user"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Dev server configuration (the `serve` command)
	Server ServerConfig `toml:"server"`
}

// BackendConfig addresses the chat backend.
type BackendConfig struct {
	// BaseURL is the chat backend base URL
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the timeout for non-streaming requests in seconds
	TimeoutSecs int `toml:"timeout_secs"`
}

// UserConfig identifies the user to the backend.
type UserConfig struct {
	// Email is the account identity for saved sessions
	Email string `toml:"email"`
	// Guest runs unauthenticated: no email, no saved sessions
	Guest bool `toml:"guest"`
	// PreCreateSessions requests a session key on "new chat" instead of
	// waiting for the first question
	PreCreateSessions bool `toml:"pre_create_sessions"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark" or "light"
	Theme string `toml:"theme"`
	// ShowSidebar displays the saved-session sidebar on startup
	ShowSidebar bool `toml:"show_sidebar"`
	// TitleWidth is the sidebar title truncation width in runes
	TitleWidth int `toml:"title_width"`
}

// ServerConfig configures the development backend.
type ServerConfig struct {
	// Addr is the listen address for the dev server
	Addr string `toml:"addr"`
	// RateLimit is requests per second allowed per client IP
	RateLimit float64 `toml:"rate_limit"`
	// RateBurst is the per-IP burst allowance
	RateBurst int `toml:"rate_burst"`
	// ChunkDelayMs is the pause between streamed words in milliseconds
	ChunkDelayMs int `toml:"chunk_delay_ms"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://127.0.0.1:8000",
			TimeoutSecs: 30,
		},
		User: UserConfig{
			Email: "",
			Guest: false,
		},
		UI: UIConfig{
			Theme:       "dark",
			ShowSidebar: true,
			TitleWidth:  53,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8000",
			RateLimit:    10,
			RateBurst:    20,
			ChunkDelayMs: 30,
		},
	}
}

// ConfigDir returns the saaschat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".saaschat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the config file, falling back to defaults,
// with environment overrides applied last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadFromPath(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific TOML file into cfg.
func LoadFromPath(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}

// Save writes the configuration to the default TOML file with 0600
// permissions.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.toml")
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# saaschat configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.TitleWidth == 0 {
		c.UI.TitleWidth = defaults.UI.TitleWidth
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = defaults.Server.RateLimit
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = defaults.Server.RateBurst
	}
	if c.Server.ChunkDelayMs == 0 {
		c.Server.ChunkDelayMs = defaults.Server.ChunkDelayMs
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns the first error found.
func (c *Config) Validate() error {
	if _, err := url.Parse(c.Backend.BaseURL); err != nil {
		return ValidationError{Field: "backend.base_url", Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if c.Backend.TimeoutSecs < 0 {
		return ValidationError{Field: "backend.timeout_secs", Message: "must be non-negative"}
	}
	if c.User.Email != "" {
		if _, err := mail.ParseAddress(c.User.Email); err != nil {
			return ValidationError{Field: "user.email", Message: fmt.Sprintf("invalid address: %v", err)}
		}
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		return ValidationError{Field: "ui.theme", Message: fmt.Sprintf("invalid theme '%s', must be dark or light", c.UI.Theme)}
	}
	if c.UI.TitleWidth < 4 {
		return ValidationError{Field: "ui.title_width", Message: "must be at least 4"}
	}
	if c.Server.RateLimit < 0 {
		return ValidationError{Field: "server.rate_limit", Message: "must be non-negative"}
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - SAASCHAT_BACKEND_URL: overrides backend.base_url
//   - SAASCHAT_EMAIL: overrides user.email
//   - SAASCHAT_GUEST: set to "1" or "true" to run unauthenticated
//   - SAASCHAT_THEME: overrides ui.theme
//   - SAASCHAT_SERVER_ADDR: overrides server.addr
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("SAASCHAT_BACKEND_URL"); u != "" {
		c.Backend.BaseURL = u
	}
	if email := os.Getenv("SAASCHAT_EMAIL"); email != "" {
		c.User.Email = email
	}
	if guest := os.Getenv("SAASCHAT_GUEST"); guest != "" {
		c.User.Guest = guest == "1" || strings.EqualFold(guest, "true")
	}
	if theme := os.Getenv("SAASCHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if addr := os.Getenv("SAASCHAT_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}
