package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvProd  = "PROD"
	EnvLocal = "LOCAL"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	localEnvFile = "local.env"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"LOCAL"`
	Port        string `env:"PORT" env-default:"8080"`
	MetricsPort string `env:"METRICS_PORT" env-default:"9090"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	Storage  StorageConfig
	Cache    CacheConfig
	Shutdown time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`

	// 0 - сид от текущего времени
	RandomSeed int64 `env:"RANDOM_SEED" env-default:"0"`
}

type StorageConfig struct {
	Driver          string        `env:"STORAGE_DRIVER" env-default:"postgres"`
	DSN             string        `env:"PG_DSN"`
	ConnectAttempts uint          `env:"DB_CONNECT_ATTEMPTS" env-default:"10"`
	ConnectDelay    time.Duration `env:"DB_CONNECT_DELAY" env-default:"2s"`
}

type CacheConfig struct {
	// пустой - кеш выключен
	RedisURL string        `env:"REDIS_URL"`
	TTL      time.Duration `env:"CACHE_TTL" env-default:"300s"`
	// кеш необязателен, поэтому на старте долго его не ждем
	ConnectAttempts uint          `env:"CACHE_CONNECT_ATTEMPTS" env-default:"1"`
	ConnectTimeout  time.Duration `env:"CACHE_CONNECT_TIMEOUT" env-default:"1s"`
}

// Load - в не-PROD окружении сначала подтягиваем local.env, если он есть
func Load() (*Config, error) {
	if os.Getenv("ENVIRONMENT") != EnvProd {
		if err := godotenv.Load(localEnvFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", localEnvFile, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("PG_DSN is required for storage driver %q", c.Storage.Driver)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Storage.ConnectAttempts == 0 {
		c.Storage.ConnectAttempts = 1
	}
	if c.Cache.ConnectAttempts == 0 {
		c.Cache.ConnectAttempts = 1
	}
	if c.Cache.ConnectTimeout <= 0 {
		c.Cache.ConnectTimeout = time.Second
	}

	return nil
}
