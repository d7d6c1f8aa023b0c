package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	HTTP struct {
		Port string `yaml:"port" env:"SAMPLE_HTTP_PORT"`
	} `yaml:"http"`
	Charging struct {
		Rate         float64       `yaml:"rate"`
		TickInterval time.Duration `yaml:"tickInterval"`
		Enabled      bool          `yaml:"enabled"`
	} `yaml:"charging"`
	Ignored string   `env:"-"`
	Origins []string `env:"SAMPLE_ORIGINS"`
}

type checkedConfig struct {
	Port string `env:"CHECKED_PORT"`
}

func (c *checkedConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port required")
	}
	return nil
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	var cfg sampleConfig
	require.Error(t, LoadConfig(cfg))
	require.Error(t, LoadConfig(nil))
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("http:\n  port: \"9000\"\ncharging:\n  rate: 0.01\n  tickInterval: 2s\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv(FileEnv, path)
	t.Setenv("CHARGING_ENABLED", "true")
	t.Setenv("CHARGING_TICKINTERVAL", "250ms")
	t.Setenv("IGNORED", "nope")

	var cfg sampleConfig
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.InDelta(t, 0.01, cfg.Charging.Rate, 1e-9)
	assert.Equal(t, 250*time.Millisecond, cfg.Charging.TickInterval)
	assert.True(t, cfg.Charging.Enabled)
	assert.Empty(t, cfg.Ignored)
}

func TestLoadConfigExplicitEnvTag(t *testing.T) {
	t.Setenv("SAMPLE_HTTP_PORT", "8181")

	var cfg sampleConfig
	require.NoError(t, LoadConfig(&cfg))
	assert.Equal(t, "8181", cfg.HTTP.Port)
}

func TestLoadConfigInvalidValue(t *testing.T) {
	t.Setenv("CHARGING_RATE", "fast")

	var cfg sampleConfig
	err := LoadConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHARGING_RATE")
}

func TestLoadConfigStringList(t *testing.T) {
	t.Setenv("SAMPLE_ORIGINS", "https://a.example, ,https://b.example")

	var cfg sampleConfig
	require.NoError(t, LoadConfig(&cfg))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins)
}

func TestLoadConfigRunsValidator(t *testing.T) {
	var cfg checkedConfig
	require.EqualError(t, LoadConfig(&cfg), "port required")

	t.Setenv("CHECKED_PORT", "8080")
	require.NoError(t, LoadConfig(&cfg))
}
