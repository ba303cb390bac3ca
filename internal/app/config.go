package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/clearpath-backend/internal/data/db"
	"github.com/yungbote/clearpath-backend/internal/observability"
	"github.com/yungbote/clearpath-backend/internal/platform/config"
	"github.com/yungbote/clearpath-backend/internal/realtime/bus"
)

type Config struct {
	LogMode string `env:"LOG_MODE" envDefault:"development"`
	Port    string `env:"PORT" envDefault:"8080"`

	JWTSecretKey string `env:"JWT_SECRET_KEY"`

	GatingRulesPath string `env:"GATING_RULES_PATH"`
	GatingFanout    int    `env:"GATING_FANOUT" envDefault:"4"`

	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"false"`
	MetricsAddr    string   `env:"METRICS_ADDR"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`

	DB   db.Config
	Bus  bus.Config
	Otel observability.OtelConfig
}

// LoadConfig reads the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the API server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.GatingFanout <= 0 {
		return fmt.Errorf("GATING_FANOUT must be positive, got %d", c.GatingFanout)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
