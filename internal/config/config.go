package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Provider describes one backend provider entry from the config table.
// The client never interprets these beyond building outbound switch
// payloads.
type Provider struct {
	Models  []string          `toml:"models"`
	Options map[string]string `toml:"options"`
}

// Config holds client configuration, loaded from a TOML file with
// environment-variable overrides.
type Config struct {
	ServerURL      string        `toml:"server_url"`
	HistoryURL     string        `toml:"history_url"`
	UploadURL      string        `toml:"upload_url"`
	ReconnectDelay time.Duration `toml:"-"`
	PingInterval   time.Duration `toml:"-"`

	// TOML carries durations as seconds for readability.
	ReconnectDelaySec int `toml:"reconnect_delay_sec"`
	PingIntervalSec   int `toml:"ping_interval_sec"`

	Providers map[string]Provider `toml:"providers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL:      "ws://localhost:8420/ws",
		HistoryURL:     "http://localhost:8420",
		UploadURL:      "http://localhost:8420",
		ReconnectDelay: 3 * time.Second,
		PingInterval:   30 * time.Second,
		Providers:      map[string]Provider{},
	}
}

// Load reads a TOML config file, falling back to defaults for anything
// unset, then applies environment overrides. A missing file is not an
// error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.ReconnectDelaySec > 0 {
		cfg.ReconnectDelay = time.Duration(cfg.ReconnectDelaySec) * time.Second
	}
	if cfg.PingIntervalSec > 0 {
		cfg.PingInterval = time.Duration(cfg.PingIntervalSec) * time.Second
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides config fields from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AGENTCHAT_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("AGENTCHAT_HISTORY_URL"); v != "" {
		cfg.HistoryURL = v
	}
	if v := os.Getenv("AGENTCHAT_UPLOAD_URL"); v != "" {
		cfg.UploadURL = v
	}
	if v := os.Getenv("AGENTCHAT_RECONNECT_DELAY_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconnectDelay = time.Duration(n) * time.Second
		}
	}
}

// SwitchOptions returns the options table for a provider, for building
// the outbound switch payload. Unknown providers yield nil.
func (c Config) SwitchOptions(provider string) map[string]string {
	p, ok := c.Providers[provider]
	if !ok {
		return nil
	}
	return p.Options
}

// Models returns the model list for a provider.
func (c Config) Models(provider string) []string {
	p, ok := c.Providers[provider]
	if !ok {
		return nil
	}
	return p.Models
}
