package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"codeshare/internal/model"
)

// Config holds all server settings. Values come from compiled defaults,
// overridden by an optional YAML file, overridden by environment.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Sync    SyncConfig    `yaml:"sync"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SessionConfig struct {
	// TTLHours is how long an idle session is retained.
	TTLHours int `yaml:"ttl_hours"`

	// SweepIntervalMinutes is how often the sweeper scans for expired
	// sessions.
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`

	DefaultCode     string `yaml:"default_code"`
	DefaultLanguage string `yaml:"default_language"`
}

type SyncConfig struct {
	// DebounceMS is the client-side quiescence window before a local
	// edit is transmitted.
	DebounceMS int `yaml:"debounce_ms"`
}

// Default returns the reference policy settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Session: SessionConfig{
			TTLHours:             24,
			SweepIntervalMinutes: 60,
			DefaultCode:          model.DefaultCode,
			DefaultLanguage:      string(model.DefaultLanguage),
		},
		Sync: SyncConfig{
			DebounceMS: 300,
		},
	}
}

// Load builds the configuration. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

func (c SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

func (c SyncConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}
