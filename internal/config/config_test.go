package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "chat.db", cfg.DBDSN)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenExpiry)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 256, cfg.InboundQueueSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ADDR", ":9999")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "host=localhost dbname=chat")
	t.Setenv("TOKEN_EXPIRY", "30m")
	t.Setenv("INBOUND_QUEUE_SIZE", "64")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "host=localhost dbname=chat", cfg.DBDSN)
	assert.Equal(t, 30*time.Minute, cfg.TokenExpiry)
	assert.Equal(t, 64, cfg.InboundQueueSize)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
