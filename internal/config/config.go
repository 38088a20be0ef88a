package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                  int    `env:"PORT" envDefault:"8080"`
	DatabaseURL           string `env:"DATABASE_URL,required"`
	RedisURL              string `env:"REDIS_URL,required"`
	BaseURL               string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
	FanoutConcurrency     int    `env:"FANOUT_CONCURRENCY" envDefault:"8"`
	RateLimitPerMin       int    `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ReaperIntervalSeconds int    `env:"REAPER_INTERVAL_SECONDS" envDefault:"300"`
	MaxOverrunMinutes     int    `env:"MAX_OVERRUN_MINUTES" envDefault:"60"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) ReaperInterval() time.Duration {
	return time.Duration(c.ReaperIntervalSeconds) * time.Second
}

func (c *Config) MaxOverrun() time.Duration {
	return time.Duration(c.MaxOverrunMinutes) * time.Minute
}

// JoinURL builds the client-facing URL for joining a session.
func (c *Config) JoinURL(sessionID string) string {
	return fmt.Sprintf("%s/live-sessions/%s/join", strings.TrimRight(c.BaseURL, "/"), sessionID)
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
