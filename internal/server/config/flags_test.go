package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseFlags(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	args := []string{
		"-c", "ignored.json",
		"-a", "localhost:9090",
		"-driver", "sqlite",
		"-d", "postgres://u:p@h/db",
		"-s", "jwt-secret",
		"-t", "30",
		"-u", "minio",
		"-p", "minio-pass",
		"-b", "files",
		"-g", "eu-west-1",
		"-e", "http://minio:9000",
		"-backend", "fs",
		"-fs-root", "/srv/objects",
		"-scratch", "/tmp/sfs",
		"-max-upload=2048",
		"-suite", "xchacha20poly1305",
		"-retention", "24h",
		"-sweep", "10m",
		"-notifier", "smtp",
		"-log-level", "DEBUG",
		"-unknown", "value",
	}
	require.NoError(t, parseFlags(cfg, args))

	assert.Equal(t, "localhost:9090", cfg.HTTPAddr)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "postgres://u:p@h/db", cfg.DatabaseDSN)
	assert.Equal(t, "jwt-secret", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.SessionValidityDuration)
	assert.Equal(t, "minio", cfg.S3RootUser)
	assert.Equal(t, "minio-pass", cfg.S3RootPassword)
	assert.Equal(t, "files", cfg.S3Bucket)
	assert.Equal(t, "eu-west-1", cfg.S3Region)
	assert.Equal(t, "http://minio:9000", cfg.S3BaseEndpoint)
	assert.Equal(t, BackendFS, cfg.StorageBackend)
	assert.Equal(t, "/srv/objects", cfg.FSRoot)
	assert.Equal(t, "/tmp/sfs", cfg.ScratchDir)
	assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
	assert.Equal(t, "xchacha20poly1305", cfg.CipherSuite)
	assert.Equal(t, 24*time.Hour, cfg.Retention)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.Equal(t, NotifierSMTP, cfg.Notifier)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func Test_parseFlags_KeepsValuesWhenAbsent(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseFlags(cfg, nil))

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *cfg)
}

func Test_parseFlags_BadValue(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	assert.Error(t, parseFlags(cfg, []string{"-t", "soon"}))
	assert.Error(t, parseFlags(cfg, []string{"-retention", "forever"}))
}
