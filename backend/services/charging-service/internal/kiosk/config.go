package kiosk

import (
	"errors"
	"strings"
	"time"

	libconfig "github.com/AmanYize/ev-charge/backend/libs/config"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/scanner"
)

// Config defines the device-side charging client.
type Config struct {
	Storage struct {
		Path string `yaml:"path" env:"KIOSK_STORAGE_PATH"`
	} `yaml:"storage"`
	Camera struct {
		FramesDir     string        `yaml:"framesDir" env:"KIOSK_FRAMES_DIR"`
		Facing        string        `yaml:"facing" env:"KIOSK_CAMERA_FACING"`
		FrameInterval time.Duration `yaml:"frameInterval" env:"KIOSK_FRAME_INTERVAL"`
		TryHarder     bool          `yaml:"tryHarder" env:"KIOSK_DECODE_TRY_HARDER"`
	} `yaml:"camera"`
	Expect struct {
		SiteID string `yaml:"siteId" env:"KIOSK_EXPECT_SITE"`
		GunID  string `yaml:"gunId" env:"KIOSK_EXPECT_GUN"`
	} `yaml:"expect"`
	Charging struct {
		AccrualRateKWhPerSecond float64       `yaml:"accrualRateKwhPerSecond" env:"KIOSK_ACCRUAL_RATE"`
		TickInterval            time.Duration `yaml:"tickInterval" env:"KIOSK_TICK_INTERVAL"`
		DefaultBalance          float64       `yaml:"defaultBalance" env:"KIOSK_DEFAULT_BALANCE"`
		FallbackPricePerKWh     float64       `yaml:"fallbackPricePerKwh" env:"KIOSK_FALLBACK_PRICE"`
		ChargeFor               time.Duration `yaml:"chargeFor" env:"KIOSK_CHARGE_FOR"`
	} `yaml:"charging"`
	Remote struct {
		AuthURL     string        `yaml:"authUrl" env:"KIOSK_AUTH_URL"`
		APIURL      string        `yaml:"apiUrl" env:"KIOSK_API_URL"`
		PhoneNumber string        `yaml:"phoneNumber" env:"KIOSK_PHONE_NUMBER"`
		Password    string        `yaml:"password" env:"KIOSK_PASSWORD"`
		Timeout     time.Duration `yaml:"timeout" env:"KIOSK_HTTP_TIMEOUT"`
	} `yaml:"remote"`
}

// DefaultConfig returns configuration before file and env overrides.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Storage.Path = "./data/kiosk.db"
	cfg.Camera.FramesDir = "./frames"
	cfg.Camera.Facing = string(scanner.FacingEnvironment)
	cfg.Camera.FrameInterval = 200 * time.Millisecond
	cfg.Charging.AccrualRateKWhPerSecond = 0.01
	cfg.Charging.TickInterval = time.Second
	cfg.Charging.DefaultBalance = 1000
	cfg.Charging.FallbackPricePerKWh = 15
	cfg.Remote.Timeout = 10 * time.Second
	return cfg
}

// LoadConfig reads kiosk configuration via shared helper.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and combinations.
func (c *Config) Validate() error {
	switch scanner.Facing(c.Camera.Facing) {
	case scanner.FacingEnvironment, scanner.FacingUser:
	default:
		return errors.New("config: camera facing must be environment or user")
	}
	if strings.TrimSpace(c.Camera.FramesDir) == "" {
		return errors.New("config: frames dir required")
	}
	if c.Charging.AccrualRateKWhPerSecond <= 0 || c.Charging.TickInterval <= 0 {
		return errors.New("config: accrual rate and tick interval must be positive")
	}
	if c.Charging.DefaultBalance < 0 || c.Charging.FallbackPricePerKWh <= 0 {
		return errors.New("config: invalid balance or fallback price")
	}
	if (c.Remote.APIURL == "") != (c.Remote.AuthURL == "") {
		return errors.New("config: remote api and auth urls must be set together")
	}
	return nil
}

// UsesRemote reports whether sessions are confirmed by a charging-service.
func (c *Config) UsesRemote() bool {
	return c.Remote.APIURL != ""
}
