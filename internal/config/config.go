// Package config loads server configuration from the environment.
//
// All variables carry the TLDRAW_AI_ prefix (TLDRAW_AI_PORT,
// TLDRAW_AI_DB_PATH, ...). Only JWTSecret has no usable default: without it
// the server still starts, but every auth route is disabled.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "TLDRAW_AI"

// Config holds everything main needs to wire the server.
type Config struct {
	Port int `envconfig:"PORT" default:"8080"`

	// DBPath is the SQLite database file; its directory is created on start.
	DBPath string `envconfig:"DB_PATH" default:"data/canvases.db"`

	// DataDir holds local device state (the last-active-canvas slot).
	DataDir string `envconfig:"DATA_DIR" default:"data"`

	JWTSecret string `envconfig:"JWT_SECRET" default:""`

	GitHubClientID     string `envconfig:"GITHUB_CLIENT_ID" default:""`
	GitHubClientSecret string `envconfig:"GITHUB_CLIENT_SECRET" default:""`
	GitHubCallbackURL  string `envconfig:"GITHUB_CALLBACK_URL" default:""`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:""`

	TogetherAPIKey string `envconfig:"TOGETHER_API_KEY" default:""`
	ImageModel     string `envconfig:"IMAGE_MODEL" default:""`
}

// New parses the environment and fills in derived defaults.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: processing environment: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return &cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LastCanvasPath is where the last-active-canvas slot file lives.
func (c *Config) LastCanvasPath() string {
	return filepath.Join(c.DataDir, "last-canvas.json")
}

// AuthEnabled reports whether the auth routes can be registered.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
