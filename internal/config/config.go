package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	StoreBackend       string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	EventsChannel      string        `mapstructure:"EVENTS_CHANNEL"`
	ExpiryQueueEnabled bool          `mapstructure:"EXPIRY_QUEUE_ENABLED"`
	AuthSigningKey     string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer         string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience       string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ClinicTimezone     string        `mapstructure:"CLINIC_TIMEZONE"`
	HoldDefaultSeconds int           `mapstructure:"HOLD_DEFAULT_SECONDS"`
	HoldMaxSeconds     int           `mapstructure:"HOLD_MAX_SECONDS"`
	SweeperEnabled     bool          `mapstructure:"SWEEPER_ENABLED"`
	SweepInterval      time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepBatchSize     int           `mapstructure:"SWEEP_BATCH_SIZE"`
}

var keys = []string{
	"PORT", "ENV", "STORE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "EVENTS_CHANNEL", "EXPIRY_QUEUE_ENABLED",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "CLINIC_TIMEZONE",
	"HOLD_DEFAULT_SECONDS", "HOLD_MAX_SECONDS",
	"SWEEPER_ENABLED", "SWEEP_INTERVAL", "SWEEP_BATCH_SIZE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", BackendPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("EVENTS_CHANNEL", "slotengine.events")
	v.SetDefault("EXPIRY_QUEUE_ENABLED", false)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("CLINIC_TIMEZONE", "UTC")
	v.SetDefault("HOLD_DEFAULT_SECONDS", 300)
	v.SetDefault("HOLD_MAX_SECONDS", 1800)
	v.SetDefault("SWEEPER_ENABLED", true)
	v.SetDefault("SWEEP_INTERVAL", "60s")
	v.SetDefault("SWEEP_BATCH_SIZE", 500)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		v.BindEnv(k)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves CLINIC_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ClinicTimezone)
}

func (c *Config) HoldDefault() time.Duration {
	return time.Duration(c.HoldDefaultSeconds) * time.Second
}

func (c *Config) HoldMax() time.Duration {
	return time.Duration(c.HoldMaxSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. Outside
// development a signing key is required so bearer tokens are enforced.
func (c *Config) Validate() error {
	if c.StoreBackend != BackendPostgres && c.StoreBackend != BackendMemory {
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StoreBackend)
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("CLINIC_TIMEZONE %q is not a valid time zone: %w", c.ClinicTimezone, err)
	}
	if c.HoldDefaultSeconds <= 0 || c.HoldMaxSeconds <= 0 {
		return fmt.Errorf("HOLD_DEFAULT_SECONDS and HOLD_MAX_SECONDS must be positive")
	}
	if c.HoldDefaultSeconds > c.HoldMaxSeconds {
		return fmt.Errorf("HOLD_DEFAULT_SECONDS (%d) exceeds HOLD_MAX_SECONDS (%d)", c.HoldDefaultSeconds, c.HoldMaxSeconds)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.SweepBatchSize <= 0 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be positive, got %d", c.SweepBatchSize)
	}
	if c.ExpiryQueueEnabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when EXPIRY_QUEUE_ENABLED is true")
	}
	return nil
}
