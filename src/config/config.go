package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Exchange names for challenge events.
const (
	UnlockExchange  = "capsule.unlocks"
	AttemptExchange = "capsule.attempts"
)

type GlobalConfig struct {
	LogLevel string
	Host     string
	Port     string

	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	RabbitHost string
	RabbitPort int
	RabbitUser string
	RabbitPass string

	// Idle-session sweeping. Optional; defaults match the engine's.
	SweepInterval time.Duration
	IdleThreshold time.Duration

	// Per-session sample rate limiting.
	SampleRatePerSecond float64
	SampleBurst         int
}

func NewConfig() (GlobalConfig, error) {
	cfg := GlobalConfig{
		SweepInterval:       60 * time.Second,
		IdleThreshold:       5 * time.Minute,
		SampleRatePerSecond: 30,
		SampleBurst:         60,
	}

	var err error
	if cfg.LogLevel, err = requireEnv("LOG_LEVEL"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.Host, err = requireEnv("HOST"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.Port, err = requireEnv("PORT"); err != nil {
		return GlobalConfig{}, err
	}

	if cfg.DBHost, err = requireEnv("DB_HOST"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.DBPort, err = requireIntEnv("DB_PORT"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.DBUser, err = requireEnv("DB_USER"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.DBPass, err = requireEnv("DB_PASS"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.DBName, err = requireEnv("DB_NAME"); err != nil {
		return GlobalConfig{}, err
	}

	if cfg.RabbitHost, err = requireEnv("RABBITMQ_HOST"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.RabbitPort, err = requireIntEnv("RABBITMQ_PORT"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.RabbitUser, err = requireEnv("RABBITMQ_USER"); err != nil {
		return GlobalConfig{}, err
	}
	if cfg.RabbitPass, err = requireEnv("RABBITMQ_PASS"); err != nil {
		return GlobalConfig{}, err
	}

	// Optional overrides for the sweeper and the sample rate limiter.
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return GlobalConfig{}, fmt.Errorf("SWEEP_INTERVAL_SECONDS must be a valid integer: %w", err)
		}
		cfg.SweepInterval = time.Duration(seconds) * time.Second
	}
	if v := os.Getenv("IDLE_THRESHOLD_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return GlobalConfig{}, fmt.Errorf("IDLE_THRESHOLD_SECONDS must be a valid integer: %w", err)
		}
		cfg.IdleThreshold = time.Duration(seconds) * time.Second
	}
	if v := os.Getenv("SAMPLE_RATE_PER_SECOND"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return GlobalConfig{}, fmt.Errorf("SAMPLE_RATE_PER_SECOND must be a valid number: %w", err)
		}
		cfg.SampleRatePerSecond = rate
	}

	return cfg, nil
}

// AMQPURL builds the RabbitMQ connection string.
func (c *GlobalConfig) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.RabbitUser, c.RabbitPass, c.RabbitHost, c.RabbitPort)
}

func requireEnv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%s environment variable is required", name)
	}
	return value, nil
}

func requireIntEnv(name string) (int, error) {
	value, err := requireEnv(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
	}
	return n, nil
}
