// Package config handles goldrun's own settings: where run logs and the
// history database live, which image the sandbox uses, and where traces
// go. Config is stored at $XDG_CONFIG_HOME/goldrun/config.yaml
// (defaults to ~/.config/goldrun/config.yaml); a missing file means
// defaults, not an error. Plans are separate files — this is tool
// configuration, not provisioning content.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSandboxImage is the rehearsal container image used when
// neither the config file nor the command line names one.
const DefaultSandboxImage = "ubuntu:24.04"

// Config holds tool settings. Zero fields fall back to defaults at the
// accessors, so a partial config file is fine.
type Config struct {
	LogDir       string `yaml:"log_dir,omitempty"`
	HistoryDB    string `yaml:"history_db,omitempty"`
	SandboxImage string `yaml:"sandbox_image,omitempty"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/goldrun/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "goldrun", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "goldrun", "config.yaml")
}

// Load reads the config file. If the file does not exist, defaults are
// returned (not an error).
func Load() (*Config, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save() error {
	p := Path()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LogPath returns the run log file for a plan: one file per plan name,
// appended across runs.
func (c *Config) LogPath(plan string) string {
	dir := c.LogDir
	if dir == "" {
		dir = "/var/log/goldrun"
	}
	return filepath.Join(dir, plan+".log")
}

// HistoryPath returns the history database location, defaulting to the
// XDG state directory.
func (c *Config) HistoryPath() string {
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "state", "goldrun", "history.db")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "goldrun", "history.db")
}

// Image returns the sandbox image to use.
func (c *Config) Image() string {
	if c.SandboxImage != "" {
		return c.SandboxImage
	}
	return DefaultSandboxImage
}
