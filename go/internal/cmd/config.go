package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. Environment variables override
// the file where both are set, so compose files stay small.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`

	Outbox struct {
		NotifyChannel    string `yaml:"notify_channel"`
		FallbackInterval string `yaml:"fallback_interval"`
		SinkBuffer       int    `yaml:"sink_buffer"`
	} `yaml:"outbox"`

	Restore struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"restore"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Outbox.SinkBuffer = 1024
	cfg.Restore.Enabled = true
	return &cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NATS.URL = url
	}
	return cfg, nil
}

func (c *Config) fallbackInterval() time.Duration {
	if c.Outbox.FallbackInterval == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.Outbox.FallbackInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
