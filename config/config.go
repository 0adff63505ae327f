package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// TomlRefresh holds the refresh pipeline configuration
type TomlRefresh struct {
	IntervalSeconds     int `toml:"interval_seconds"`
	MaxRetries          int `toml:"max_retries"`
	BackoffSeconds      int `toml:"backoff_seconds"`
	BackoffMaxSeconds   int `toml:"backoff_max_seconds"`
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
}

// TomlSMTP holds the outgoing mail configuration for owner notifications
type TomlSMTP struct {
	Addr string `toml:"addr"`
	From string `toml:"from"`
}

// TomlServer holds the HTTP trigger surface configuration
type TomlServer struct {
	Port int `toml:"port"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Database string      `toml:"database"`
	Refresh  TomlRefresh `toml:"refresh"`
	SMTP     TomlSMTP    `toml:"smtp"`
	Server   TomlServer  `toml:"server"`
}

// DefaultConfig mirrors the defaults the original deployment shipped with:
// a 5 minute cadence, 3 retries, and a 30s base / 10 minute cap backoff.
func DefaultConfig() *TomlConfig {
	return &TomlConfig{
		Database: "lector.db",
		Refresh: TomlRefresh{
			IntervalSeconds:     300,
			MaxRetries:          3,
			BackoffSeconds:      30,
			BackoffMaxSeconds:   600,
			FetchTimeoutSeconds: 20,
		},
		SMTP: TomlSMTP{
			From: "noreply@lector.local",
		},
		Server: TomlServer{
			Port: 3000,
		},
	}
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

func (c *TomlRefresh) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c *TomlRefresh) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

func (c *TomlRefresh) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxSeconds) * time.Second
}

func (c *TomlRefresh) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}
