package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "github.com/AmanYize/ev-charge/backend/libs/config"
)

// Config defines charging service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"CHARGING_HTTP_PORT"`
		// AllowedOrigins limits browser origins of session streams; empty allows all.
		AllowedOrigins []string `yaml:"allowedOrigins" env:"CHARGING_ALLOWED_ORIGINS"`
	} `yaml:"http"`
	Database struct {
		DSN      string `yaml:"dsn" env:"CHARGING_POSTGRES_DSN"`
		SeedDemo bool   `yaml:"seedDemo" env:"CHARGING_SEED_DEMO"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"CHARGING_REDIS_ADDR"`
		Password string `yaml:"password" env:"CHARGING_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"CHARGING_REDIS_DB"`
		TTL      int    `yaml:"ttlSeconds" env:"CHARGING_REDIS_TTL"`
	} `yaml:"redis"`
	JWT struct {
		Secret string `yaml:"secret" env:"JWT_SECRET"`
	} `yaml:"jwt"`
	Charging struct {
		AccrualRateKWhPerSecond float64       `yaml:"accrualRateKwhPerSecond" env:"CHARGING_ACCRUAL_RATE"`
		TickInterval            time.Duration `yaml:"tickInterval" env:"CHARGING_TICK_INTERVAL"`
		DefaultBalance          float64       `yaml:"defaultBalance" env:"CHARGING_DEFAULT_BALANCE"`
		FallbackPricePerKWh     float64       `yaml:"fallbackPricePerKwh" env:"CHARGING_FALLBACK_PRICE"`
	} `yaml:"charging"`
	Directory struct {
		CacheSize int           `yaml:"cacheSize" env:"CHARGING_DIRECTORY_CACHE_SIZE"`
		CacheTTL  time.Duration `yaml:"cacheTTL" env:"CHARGING_DIRECTORY_CACHE_TTL"`
	} `yaml:"directory"`
	Backend struct {
		Latency time.Duration `yaml:"latency" env:"CHARGING_BACKEND_LATENCY"`
	} `yaml:"backend"`
}

// Defaults returns configuration before file and env overrides.
func Defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "8085"
	cfg.Database.SeedDemo = true
	cfg.Redis.TTL = 0
	cfg.Charging.AccrualRateKWhPerSecond = 0.01
	cfg.Charging.TickInterval = time.Second
	cfg.Charging.DefaultBalance = 1000
	cfg.Charging.FallbackPricePerKWh = 15
	cfg.Directory.CacheSize = 256
	cfg.Directory.CacheTTL = 30 * time.Second
	cfg.Backend.Latency = 300 * time.Millisecond
	return cfg
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret required")
	}
	if c.Charging.AccrualRateKWhPerSecond <= 0 {
		return errors.New("config: accrual rate must be positive")
	}
	if c.Charging.TickInterval <= 0 {
		return errors.New("config: tick interval must be positive")
	}
	if c.Charging.DefaultBalance < 0 {
		return errors.New("config: default balance must not be negative")
	}
	if c.Charging.FallbackPricePerKWh <= 0 {
		return errors.New("config: fallback price must be positive")
	}
	if c.Directory.CacheSize < 0 {
		return errors.New("config: directory cache size must not be negative")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8085"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// RedisTTL returns ttl as duration; zero keeps keys forever.
func (c *Config) RedisTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 0
	}
	return time.Duration(c.Redis.TTL) * time.Second
}
