package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ClientConfig configures the clubctl command line client.
type ClientConfig struct {
	// BaseURL of the backend service. Empty means no backend is configured.
	BaseURL     string        `env:"CLUBHUB_URL"`
	SessionFile string        `env:"CLUBHUB_SESSION_FILE"`
	Timeout     time.Duration `env:"CLUBHUB_TIMEOUT" envDefault:"10s"`
}

// LoadClient reads client configuration from the environment.
func LoadClient() (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse client config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.SessionFile == "" {
		cfg.SessionFile = DefaultSessionFile()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg, nil
}

// Configured reports whether a backend URL was supplied.
func (c ClientConfig) Configured() bool { return c.BaseURL != "" }

// DefaultSessionFile returns the per-user location of the stored access token.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "clubhub", "session.json")
}
