// Package config handles the XDG configuration directory, file paths and
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// AppName is the application directory name.
	AppName = "taskgate"

	// TokenFile is the stored session token filename.
	TokenFile = "token.json"
)

// Env holds settings read from the environment.
type Env struct {
	APIURL    string        `env:"TASKGATE_API_URL" envDefault:"http://localhost:8000"`
	Timeout   time.Duration `env:"TASKGATE_TIMEOUT" envDefault:"5s"`
	ConfigDir string        `env:"TASKGATE_CONFIG_DIR"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is the root of the remote task service.
	APIURL string

	// Timeout bounds each remote call.
	Timeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// ParseEnv loads Env from environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// New creates a Config. configDir wins over TASKGATE_CONFIG_DIR; if both are
// empty, uses XDG_CONFIG_HOME/taskgate or $HOME/.config/taskgate.
func New(configDir string) (*Config, error) {
	e, err := ParseEnv()
	if err != nil {
		return nil, err
	}
	if e.Timeout <= 0 {
		return nil, fmt.Errorf("invalid TASKGATE_TIMEOUT: %s", e.Timeout)
	}

	dir := configDir
	if dir == "" {
		dir = e.ConfigDir
	}
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir, APIURL: e.APIURL, Timeout: e.Timeout}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// TokenPath returns the path to the stored token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}
