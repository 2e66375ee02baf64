// Package config reads the storefront settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/postgres"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string
	CORSOrigins        []string

	JWTSecret   string
	TokenTTL    time.Duration
	AdminEmails []string
	// AuthRateLimit is login/register requests per minute per client.
	AuthRateLimit int

	Postgres          postgres.Credentials
	UsersMigrations   string
	OrdersMigrations  string
	CatalogDBPath     string
	CatalogMigrations string
	MongoURI          string
	MongoDatabase     string
	MongoTimeout      time.Duration
	MongoMaxPool      int
	RedisAddr         string
	CartCacheTTL      time.Duration
	KafkaBrokers      []string
	OrderEventsTopic  string
	CartConsumerGroup string

	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50051"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second, &errs),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		MaxRequestBodySize: 1 << 20,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSOrigins:        getList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      getDuration("TOKEN_TTL", 24*time.Hour, &errs),
		AdminEmails:   getList("ADMIN_EMAILS", nil),
		AuthRateLimit: getInt("AUTH_RATE_LIMIT", 20, &errs),

		Postgres: postgres.Credentials{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432, &errs),
			User:     getEnv("POSTGRES_USER", "storefront"),
			Password: getEnv("POSTGRES_PASSWORD", "storefront"),
			DBName:   getEnv("POSTGRES_DB", "storefront"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		UsersMigrations:   getEnv("USERS_MIGRATIONS", "internal/accounts/repository/migrations"),
		OrdersMigrations:  getEnv("ORDERS_MIGRATIONS", "internal/orders/repository/migrations"),
		CatalogDBPath:     getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrations: getEnv("CATALOG_MIGRATIONS", "internal/catalog/repository/migrations"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DATABASE", "storefront"),
		MongoTimeout:      getDuration("MONGO_TIMEOUT", 10*time.Second, &errs),
		MongoMaxPool:      getInt("MONGO_MAX_POOL", 50, &errs),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		CartCacheTTL:      getDuration("CART_CACHE_TTL", 15*time.Minute, &errs),
		KafkaBrokers:      getList("KAFKA_BROKERS", []string{"localhost:9092"}),
		OrderEventsTopic:  getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		CartConsumerGroup: getEnv("CART_CONSUMER_GROUP", "storefront-cart-cleaner"),

		ShippingFee: getDecimal("SHIPPING_FEE", decimal.NewFromInt(99), &errs),
		TaxRate:     getDecimal("TAX_RATE", decimal.RequireFromString("0.18"), &errs),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.ShippingFee.IsNegative() {
		errs = append(errs, errors.New("SHIPPING_FEE must not be negative"))
	}
	if cfg.MongoMaxPool < 1 {
		errs = append(errs, errors.New("MONGO_MAX_POOL must be at least 1"))
	}
	if cfg.TaxRate.IsNegative() {
		errs = append(errs, errors.New("TAX_RATE must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getDecimal(key string, defaultValue decimal.Decimal, errs *[]error) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

// getList splits a comma separated variable, dropping empty entries. An
// empty list disables whatever the variable configures (e.g. KAFKA_BROKERS).
func getList(key string, defaultValue []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
