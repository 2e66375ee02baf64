package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ShippingFee.Equal(decimal.NewFromInt(99)))
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.18")))
	assert.Empty(t, cfg.AdminEmails)
	assert.Equal(t, 10*time.Second, cfg.MongoTimeout)
	assert.Equal(t, 50, cfg.MongoMaxPool)
	assert.Equal(t, 15*time.Minute, cfg.CartCacheTTL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("ADMIN_EMAILS", "a@shop.test, b@shop.test ,")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("TAX_RATE", "0.05")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("MONGO_MAX_POOL", "8")
	t.Setenv("CART_CACHE_TTL", "90s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MongoMaxPool)
	assert.Equal(t, 90*time.Second, cfg.CartCacheTTL)

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, []string{"a@shop.test", "b@shop.test"}, cfg.AdminEmails)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("POSTGRES_PORT", "five")
	t.Setenv("SHIPPING_FEE", "-1")
	t.Setenv("MONGO_MAX_POOL", "0")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "POSTGRES_PORT")
	assert.Contains(t, err.Error(), "SHIPPING_FEE must not be negative")
	assert.Contains(t, err.Error(), "MONGO_MAX_POOL must be at least 1")
}

func TestDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nGRPC_PORT=6000\n"), 0o600))

	t.Setenv("JWT_SECRET", "")
	t.Setenv("GRPC_PORT", "")
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("GRPC_PORT")
	require.NoError(t, godotenv.Load(path))

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "6000", cfg.GRPCPort)
}
