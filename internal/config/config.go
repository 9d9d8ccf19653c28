package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Redis    RedisConfig    `koanf:"redis"`
	Finalize FinalizeConfig `koanf:"finalize"`
	Poller   PollerConfig   `koanf:"poller"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type StoreConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required"`
	PublishableKey string        `koanf:"publishable_key" validate:"required"`
	ConnTimeout    time.Duration `koanf:"conn_timeout" validate:"required"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// FinalizeConfig bounds the placement retry loop. RetryStep scales linearly
// with the attempt number, so attempt n waits RetryStep*n before retrying.
type FinalizeConfig struct {
	MaxAttempts  int           `koanf:"max_attempts" validate:"required"`
	RetryStep    time.Duration `koanf:"retry_step" validate:"required"`
	SettleDelay  time.Duration `koanf:"settle_delay" validate:"required"`
	DisplayDelay time.Duration `koanf:"display_delay" validate:"required"`
}

// PollerConfig bounds the companion payment-status poller.
type PollerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	MaxChecks int           `koanf:"max_checks" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// defaults match the behavior the storefront shipped with: four placement
// attempts, 2s linear backoff, 1s settling delays, a 3s/10-check poller,
// and a 5s display delay before failure redirects.
var defaults = map[string]interface{}{
	"primary.env":             "development",
	"server.port":             "8080",
	"server.read_timeout":     "10s",
	"server.write_timeout":    "60s",
	"server.idle_timeout":     "120s",
	"store.conn_timeout":      "15s",
	"finalize.max_attempts":   4,
	"finalize.retry_step":     "2s",
	"finalize.settle_delay":   "1s",
	"finalize.display_delay":  "5s",
	"poller.interval":         "3s",
	"poller.max_checks":       10,
	"logger.level":            "info",
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider("FINALIZER_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "FINALIZER_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
