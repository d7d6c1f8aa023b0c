package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "github.com/AmanYize/ev-charge/backend/libs/config"
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"AUTH_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"AUTH_POSTGRES_DSN"`
	} `yaml:"database"`
	JWT struct {
		// Secret is shared with charging-service, which verifies access tokens.
		Secret           string `yaml:"secret" env:"JWT_SECRET"`
		ExpiresInMinutes int    `yaml:"expiresInMinutes" env:"AUTH_JWT_EXPIRES_MINUTES"`
		RefreshInHours   int    `yaml:"refreshInHours" env:"AUTH_JWT_REFRESH_HOURS"`
	} `yaml:"jwt"`
	Signin struct {
		PerMinute float64 `yaml:"perMinute" env:"AUTH_SIGNIN_PER_MINUTE"`
		Burst     int     `yaml:"burst" env:"AUTH_SIGNIN_BURST"`
	} `yaml:"signin"`
	BcryptCost int `yaml:"bcryptCost" env:"AUTH_BCRYPT_COST"`
}

// Defaults returns configuration before file and env overrides.
func Defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.JWT.ExpiresInMinutes = 60
	cfg.JWT.RefreshInHours = 24 * 7
	cfg.Signin.PerMinute = 10
	cfg.Signin.Burst = 5
	return cfg
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database DSN is required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret is required")
	}
	if c.Signin.PerMinute < 0 {
		return errors.New("config: signin rate must not be negative")
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// JWTExpiration converts configured access token expiry to duration.
func (c *Config) JWTExpiration() time.Duration {
	if c.JWT.ExpiresInMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}

// RefreshExpiration converts configured refresh token expiry to duration.
func (c *Config) RefreshExpiration() time.Duration {
	if c.JWT.RefreshInHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.JWT.RefreshInHours) * time.Hour
}
