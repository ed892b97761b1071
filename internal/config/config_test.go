package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithMemoryDriver(t *testing.T) {
	t.Setenv("VQ_STORAGE_DRIVER", "memory")
	t.Setenv("VQ_AUTH_JWT_SECRET", "secret")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, 5*time.Second, cfg.Engine.TickInterval)
	assert.Equal(t, 3*time.Second, cfg.Engine.LockTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Engine.NoShowTimeout)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "queue")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("JWT_ACCESS_SECRET", "legacy")
	t.Setenv("VQ_ENGINE_TICK_INTERVAL", "2s")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.Equal(t, "legacy", cfg.JWTSecret)
	assert.Equal(t, 2*time.Second, cfg.Engine.TickInterval)
	assert.Equal(t, "host=db port=5432 user=postgres password= dbname=queue sslmode=disable", cfg.DB.DSN())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vq.yaml")
	body := "storage:\n  driver: memory\nauth:\n  jwt_secret: file-secret\nengine:\n  tick_interval: 10s\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 10*time.Second, cfg.Engine.TickInterval)
}

func TestValidateRejects(t *testing.T) {
	t.Setenv("VQ_STORAGE_DRIVER", "mongo")
	t.Setenv("VQ_ENGINE_TICK_INTERVAL", "100ms")

	_, err := Load(New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")
	assert.Contains(t, err.Error(), "tick_interval")
}
