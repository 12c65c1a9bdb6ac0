// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ServiceName    = "gourmetgo-booking"
	ServiceVersion = "0.1.0"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port        string `validate:"required,numeric"`
	Env         string `validate:"oneof=development production test"`
	StoreDriver string `validate:"oneof=postgres memory"`
	JWTSecret   string `validate:"required,min=16"`

	DB DBConfig

	ChallengeStore      string        `validate:"oneof=memory redis"`
	ChallengeTTL        time.Duration `validate:"gt=0"`
	ChallengeMaxEntries int           `validate:"min=1"`
	Redis               RedisConfig

	Notifier        string        `validate:"oneof=log smtp kafka"`
	DeliveryTimeout time.Duration `validate:"gt=0"`
	SMTP            SMTPConfig
	Kafka           KafkaConfig

	OtelEndpoint string

	// ChefBookingsAnyChef lets any chef list any other chef's bookings.
	ChefBookingsAnyChef bool
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds a libpq-compatible connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds the Redis connection used by the deletion challenge store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// KafkaConfig holds the notification outbox topic settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads .env (if present) and the process environment, falling back to
// local-development defaults, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "gourmetgo"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		ChallengeStore: getEnv("CHALLENGE_STORE", "memory"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Notifier: getEnv("NOTIFIER", "log"),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "mail.spacemail.com"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "booking-notifications"),
		},
		OtelEndpoint: os.Getenv("OTEL_ENDPOINT"),
	}

	var err error
	if cfg.ChallengeTTL, err = getDuration("DELETE_CODE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DeliveryTimeout, err = getDuration("DELIVERY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChallengeMaxEntries, err = getInt("CHALLENGE_MAX_ENTRIES", 10000); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", 465); err != nil {
		return nil, err
	}
	if cfg.ChefBookingsAnyChef, err = getBool("CHEF_BOOKINGS_ANY_CHEF", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and the cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Notifier == "smtp" && (c.SMTP.User == "" || c.SMTP.From == "") {
		return fmt.Errorf("invalid configuration: SMTP_USER and SMTP_FROM are required when NOTIFIER=smtp")
	}
	if c.Notifier == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("invalid configuration: KAFKA_BROKERS is required when NOTIFIER=kafka")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
