package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	Port     int
	LogLevel string
	Env      string
	DB       DBConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Push     PushConfig
	Refresh  RefreshConfig
	Auth     AuthConfig
}

// DBConfig holds the database configuration.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the Kafka broker and topic configuration.
type KafkaConfig struct {
	Brokers       []string
	EventsTopic   string
	ConsumerGroup string
}

// RedisConfig holds the Redis snapshot cache configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PushConfig holds the realtime push gateway configuration.
type PushConfig struct {
	BaseURL string
	Enabled bool
}

// RefreshConfig controls the projection refresh loop.
type RefreshConfig struct {
	Interval time.Duration
	Debounce time.Duration
}

// AuthConfig holds the bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))

	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))

	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	refreshInterval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "10s"))

	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}

	refreshDebounce, err := time.ParseDuration(getEnv("REFRESH_DEBOUNCE", "2s"))

	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_DEBOUNCE: %w", err)
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "catering"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			EventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "catering.order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "catering-ops"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Push: PushConfig{
			BaseURL: getEnv("PUSH_GATEWAY_URL", "http://localhost:8099"),
			Enabled: getEnv("PUSH_GATEWAY_ENABLED", "true") == "true",
		},
		Refresh: RefreshConfig{
			Interval: refreshInterval,
			Debounce: refreshDebounce,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		},
	}, nil
}

// GetDBConnString returns the database connection string.
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
