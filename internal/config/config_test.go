package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrders(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "postgres://localhost/storefront")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

		cfg, err := LoadOrders()
		require.NoError(t, err)

		assert.Equal(t, "8081", cfg.Port)
		assert.Equal(t, "storefront", cfg.DB.Schema)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, 10*time.Second, cfg.ShippingTimeout)
		assert.Equal(t, 2*time.Minute, cfg.FulfillClaimTTL)
		assert.Equal(t, 50, cfg.OutboxBatchSize)
		assert.Equal(t, 10, cfg.OutboxMaxAttempts)
		assert.Equal(t, []byte("s3cret"), cfg.Auth.JWTSecret)
	})

	t.Run("reports every missing value", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "")
		t.Setenv("JWT_SECRET", "")

		_, err := LoadOrders()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "POSTGRES_URL")
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("claim ttl must outlive the shipping timeout", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "postgres://localhost/storefront")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("SHIPPING_TIMEOUT", "30s")
		t.Setenv("FULFILL_CLAIM_TTL", "20s")

		_, err := LoadOrders()
		require.ErrorContains(t, err, "FULFILL_CLAIM_TTL")
	})

	for _, timeout := range []string{"0", "0s", "-5s"} {
		t.Run("rejects shipping timeout "+timeout, func(t *testing.T) {
			t.Setenv("POSTGRES_URL", "postgres://localhost/storefront")
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv("SHIPPING_TIMEOUT", timeout)

			_, err := LoadOrders()
			require.ErrorContains(t, err, "SHIPPING_TIMEOUT must be positive")
		})
	}

	t.Run("rejects a batch size with trailing text", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "postgres://localhost/storefront")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("OUTBOX_BATCH_SIZE", "50abc")

		_, err := LoadOrders()
		require.ErrorContains(t, err, "OUTBOX_BATCH_SIZE")
	})

	t.Run("rejects malformed durations", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "postgres://localhost/storefront")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("SHIPPING_TIMEOUT", "soon")

		_, err := LoadOrders()
		require.ErrorContains(t, err, "SHIPPING_TIMEOUT")
	})
}

func TestLoadMigrate(t *testing.T) {
	t.Run("requires a database url", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "")

		_, err := LoadMigrate()
		require.ErrorContains(t, err, "POSTGRES_URL")
	})

	t.Run("defaults the migrations source", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "postgres://localhost/storefront")
		t.Setenv("MIGRATIONS_PATH", "")

		cfg, err := LoadMigrate()
		require.NoError(t, err)
		assert.Equal(t, "file://migrations", cfg.SourceURL)
		assert.Equal(t, "postgres://localhost/storefront", cfg.DB.URL)
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_NAME=Corner Shop\n"), 0o600))
	t.Setenv("STORE_NAME", "")
	require.NoError(t, os.Unsetenv("STORE_NAME"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "Corner Shop", os.Getenv("STORE_NAME"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "nope"} {
		assert.False(t, isTruthy(v), v)
	}
}

func TestIntDefault(t *testing.T) {
	t.Setenv("SOME_INT", " 25 ")
	n, err := intDefault("SOME_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	for _, raw := range []string{"50abc", "0", "-3", "1.5"} {
		t.Setenv("SOME_INT", raw)
		n, err := intDefault("SOME_INT", 7)
		require.Error(t, err, raw)
		assert.Equal(t, 7, n, raw)
	}
}
