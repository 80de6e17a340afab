package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from its environment so main
// stays lean.
type Config struct {
	Addr           string
	DatabaseURL    string
	JWTSigningKey  string
	LogLevel       string
	RequestTimeout time.Duration
	// RateLimitPerMinute caps API requests per customer; 0 disables limiting.
	RateLimitPerMinute int
	Redis              RedisConfig
	Kafka              KafkaConfig
}

// RedisConfig configures the optional derived-snapshot cache. An empty URL
// disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional event sink. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:			envOr("WASTETRACK_ADDR", ":8080"),
		DatabaseURL:		os.Getenv("DATABASE_URL"),
		JWTSigningKey:		envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LogLevel:		envOr("LOG_LEVEL", "info"),
		RequestTimeout:		envDurationOr("REQUEST_TIMEOUT", 15*time.Second),
		RateLimitPerMinute:	envIntOr("RATE_LIMIT_PER_MINUTE", 0),
		Redis: RedisConfig{
			URL:		os.Getenv("REDIS_URL"),
			PoolSize:	envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns:	envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:	envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:	envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:	envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("KAFKA_EVENTS_TOPIC", "wastetrack.events"),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
