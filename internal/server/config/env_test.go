package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	EnvFile = filepath.Join(t.TempDir(), "missing.env")
	t.Cleanup(func() { EnvFile = ".env" })

	t.Setenv("SFS_DATABASE_DSN", "postgres://env/db")
	t.Setenv("SFS_SESSION_VALIDITY", "2h")
	t.Setenv("SFS_S3_USE_PATH_STYLE", "false")
	t.Setenv("SFS_STORAGE_BACKEND", "fs")
	t.Setenv("SFS_MAX_UPLOAD_BYTES", "4096")
	t.Setenv("SFS_CHUNK_SIZE", "2048")
	t.Setenv("SFS_SMTP_PORT", "465")
	t.Setenv("SFS_OTEL_ENABLED", "true")
	t.Setenv("SFS_OTEL_SAMPLING_RATE", "0.5")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "postgres://env/db", cfg.DatabaseDSN)
	assert.Equal(t, 2*time.Hour, cfg.SessionValidityDuration)
	assert.False(t, cfg.S3UsePathStyle)
	assert.Equal(t, BackendFS, cfg.StorageBackend)
	assert.Equal(t, int64(4096), cfg.MaxUploadBytes)
	assert.Equal(t, 2048, cfg.ChunkSize)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.True(t, cfg.OtelEnabled)
	assert.InDelta(t, 0.5, cfg.OtelSamplingRate, 1e-9)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func Test_parseEnv_DotEnvFile(t *testing.T) {
	EnvFile = filepath.Join(t.TempDir(), "test.env")
	t.Cleanup(func() { EnvFile = ".env" })
	t.Cleanup(func() {
		_ = os.Unsetenv("SFS_FS_ROOT")
		_ = os.Unsetenv("SFS_SMTP_FROM")
	})

	require.NoError(t, os.WriteFile(EnvFile, []byte("SFS_FS_ROOT=/from/dotenv\nSFS_SMTP_FROM=dotenv@example.com\n"), 0o600))
	t.Setenv("SFS_SMTP_FROM", "process@example.com")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "/from/dotenv", cfg.FSRoot)
	assert.Equal(t, "process@example.com", cfg.SMTPFrom, "process environment wins over .env")
}

func Test_parseEnv_BadValues(t *testing.T) {
	EnvFile = filepath.Join(t.TempDir(), "missing.env")
	t.Cleanup(func() { EnvFile = ".env" })

	t.Setenv("SFS_RETENTION", "a while")
	t.Setenv("SFS_S3_USE_PATH_STYLE", "maybe")
	t.Setenv("SFS_MAX_UPLOAD_BYTES", "lots")

	cfg := &Config{}
	cfg.LoadDefaults()
	err := parseEnv(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SFS_RETENTION")
	assert.Contains(t, err.Error(), "SFS_S3_USE_PATH_STYLE")
	assert.Contains(t, err.Error(), "SFS_MAX_UPLOAD_BYTES")
}
