package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Slot generation tuning.
	SlotWorkers       int           `mapstructure:"SLOT_WORKERS"`
	StoreTimeout      time.Duration `mapstructure:"STORE_TIMEOUT"`
	GenRetryAttempts  int           `mapstructure:"GENERATION_RETRY_ATTEMPTS"`
	SchedulerPollTick time.Duration `mapstructure:"SCHEDULER_POLL_TICK"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SLOT_WORKERS", 4)
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("GENERATION_RETRY_ATTEMPTS", 3)
	v.SetDefault("SCHEDULER_POLL_TICK", "1m")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("SLOT_WORKERS")
	v.BindEnv("STORE_TIMEOUT")
	v.BindEnv("GENERATION_RETRY_ATTEMPTS")
	v.BindEnv("SCHEDULER_POLL_TICK")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that tuning values are sane enough to run with.
func (c *Config) Validate() error {
	if c.SlotWorkers <= 0 {
		return fmt.Errorf("SLOT_WORKERS must be positive, got %d", c.SlotWorkers)
	}
	if c.GenRetryAttempts <= 0 {
		return fmt.Errorf("GENERATION_RETRY_ATTEMPTS must be positive, got %d", c.GenRetryAttempts)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.SchedulerPollTick <= 0 {
		return fmt.Errorf("SCHEDULER_POLL_TICK must be positive, got %s", c.SchedulerPollTick)
	}
	return nil
}
