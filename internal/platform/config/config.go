package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendKafka = "kafka"
	BackendRedis = "redis"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	PoolInitialUnits int `env:"POOL_INITIAL_UNITS" default:"3"`
	PoolMaxUnits     int `env:"POOL_MAX_UNITS" default:"3"`
	UnitCapacity     int `env:"UNIT_CAPACITY" default:"3"`

	LogBackend        string        `env:"LOG_BACKEND" default:"kafka"`
	LogTopic          string        `env:"LOG_TOPIC" default:"emoji-stream"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" default:"localhost:9092"`
	RedisURL          string        `env:"REDIS_URL"`
	RedisStreamMaxLen int64         `env:"REDIS_STREAM_MAXLEN" default:"100000"`
	LogForwardTimeout time.Duration `env:"LOG_FORWARD_TIMEOUT" default:"2s"`

	WSConnectRate  float64  `env:"WS_CONNECT_RATE" default:"5"`
	WSConnectBurst int      `env:"WS_CONNECT_BURST" default:"10"`
	WSMaxPerIP     int      `env:"WS_MAX_PER_IP" default:"20"`
	HTTPRate       float64  `env:"HTTP_RATE" default:"20"`
	HTTPBurst      int      `env:"HTTP_BURST" default:"40"`
	CORSOrigins    []string `env:"CORS_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether the relay runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

func validate(cfg *Config) error {
	if cfg.PoolInitialUnits < 1 {
		return errors.New("POOL_INITIAL_UNITS must be at least 1")
	}
	if cfg.PoolMaxUnits < cfg.PoolInitialUnits {
		return fmt.Errorf("POOL_MAX_UNITS (%d) must not be below POOL_INITIAL_UNITS (%d)", cfg.PoolMaxUnits, cfg.PoolInitialUnits)
	}
	if cfg.UnitCapacity < 1 {
		return errors.New("UNIT_CAPACITY must be at least 1")
	}

	if !slices.Contains([]string{"text", "json"}, cfg.LogFormat) {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	switch cfg.LogBackend {
	case BackendKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when LOG_BACKEND=kafka")
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when LOG_BACKEND=redis")
		}
	default:
		return fmt.Errorf("LOG_BACKEND must be kafka or redis, got %q", cfg.LogBackend)
	}
	if cfg.LogTopic == "" {
		return errors.New("LOG_TOPIC is required")
	}
	if cfg.LogForwardTimeout <= 0 {
		return errors.New("LOG_FORWARD_TIMEOUT must be positive")
	}

	if cfg.WSConnectRate < 0 || cfg.HTTPRate < 0 {
		return errors.New("rate limits must not be negative")
	}

	return nil
}
