// Package config loads relay configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	Port         string `env:"PORT" default:"8080"`
	SecretKey    string `env:"SECRET_KEY"`
	RedisURL     string `env:"REDIS_URL"`
	AllowedHosts string `env:"ALLOWED_HOSTS" default:"localhost:8080"`
	Debug        bool   `env:"DEBUG" default:"false"`
	LogLevel     string `env:"LOG_LEVEL" default:"info"`
	LogFormat    string `env:"LOG_FORMAT" default:"text"`

	MaxConnections   int64   `env:"MAX_CONNECTIONS" default:"10000"`
	ConnectsPerIP    float64 `env:"CONNECTS_PER_IP_PER_SECOND" default:"10"`
	ConnectsPerIPCap int     `env:"CONNECTS_PER_IP_BURST" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if len(cfg.SecretKey) < 10 {
		return fmt.Errorf("SECRET_KEY must be at least 10 characters")
	}
	if cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive")
	}
	return nil
}

// AllowedHostList returns the normalized origin allow-list.
func (c *Config) AllowedHostList() []string {
	var hosts []string
	for _, host := range strings.Split(c.AllowedHosts, ",") {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}
