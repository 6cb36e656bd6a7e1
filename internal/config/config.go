package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string        `env:"DATABASE_DSN,required=true"`
	RabbitMQURL         string        `env:"RABBITMQ_URL,required=true"`
	RedisURL            string        `env:"REDIS_URL,required=true"`
	GeneratorURL        string        `env:"GENERATOR_URL,required=true"`
	PublishURL          string        `env:"PUBLISH_URL"`
	PublishAPIKey       string        `env:"PUBLISH_API_KEY"`
	RateLimitPerSec     int           `env:"RATE_LIMIT_PER_SEC,default=100"`
	WorkerConcurrency   int           `env:"WORKER_CONCURRENCY,default=16"`
	RetryScanInterval   time.Duration `env:"RETRY_SCAN_INTERVAL,default=30s"`
	PublishScanInterval time.Duration `env:"PUBLISH_SCAN_INTERVAL,default=1m"`
	APIPort             int           `env:"API_PORT,default=8080"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.PublishURL != "" && cfg.PublishAPIKey == "" {
		return nil, fmt.Errorf("PUBLISH_API_KEY is required when PUBLISH_URL is set")
	}

	return &cfg, nil
}
