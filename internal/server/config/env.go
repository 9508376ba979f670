package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is the dotenv file read before the environment is consulted.
// Variables already present in the process environment take precedence.
var EnvFile = ".env"

// parseEnv overlays SFS_* environment variables onto config. A missing
// EnvFile is not an error.
func parseEnv(config *Config) error {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", EnvFile, err)
	}

	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int64) {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}

	str("SFS_HTTP_ADDR", &config.HTTPAddr)
	str("SFS_DATABASE_DRIVER", &config.DatabaseDriver)
	str("SFS_DATABASE_DSN", &config.DatabaseDSN)
	str("SFS_SECRET_KEY", &config.SecretKey)
	dur("SFS_SESSION_VALIDITY", &config.SessionValidityDuration)
	boolean("SFS_COOKIE_SECURE", &config.CookieSecure)

	str("SFS_S3_ROOT_USER", &config.S3RootUser)
	str("SFS_S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("SFS_S3_BUCKET", &config.S3Bucket)
	str("SFS_S3_REGION", &config.S3Region)
	str("SFS_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("SFS_S3_PREFIX", &config.S3Prefix)
	dur("SFS_S3_TIMEOUT", &config.S3Timeout)
	boolean("SFS_S3_USE_PATH_STYLE", &config.S3UsePathStyle)

	str("SFS_STORAGE_BACKEND", &config.StorageBackend)
	str("SFS_FS_ROOT", &config.FSRoot)
	str("SFS_BOLT_PATH", &config.BoltPath)

	str("SFS_SCRATCH_DIR", &config.ScratchDir)
	integer("SFS_MAX_UPLOAD_BYTES", &config.MaxUploadBytes)
	str("SFS_CIPHER_SUITE", &config.CipherSuite)
	chunk := int64(config.ChunkSize)
	integer("SFS_CHUNK_SIZE", &chunk)
	config.ChunkSize = int(chunk)

	dur("SFS_RETENTION", &config.Retention)
	dur("SFS_SWEEP_INTERVAL", &config.SweepInterval)

	str("SFS_NOTIFIER", &config.Notifier)
	str("SFS_SMTP_HOST", &config.SMTPHost)
	port := int64(config.SMTPPort)
	integer("SFS_SMTP_PORT", &port)
	config.SMTPPort = int(port)
	str("SFS_SMTP_USER", &config.SMTPUser)
	str("SFS_SMTP_PASSWORD", &config.SMTPPassword)
	str("SFS_SMTP_FROM", &config.SMTPFrom)

	str("SFS_LOG_LEVEL", &config.LogLevel)
	boolean("SFS_OTEL_ENABLED", &config.OtelEnabled)
	str("SFS_OTEL_ENDPOINT", &config.OtelEndpoint)
	str("SFS_OTEL_SERVICE_NAME", &config.OtelServiceName)
	if v, ok := os.LookupEnv("SFS_OTEL_SAMPLING_RATE"); ok {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SFS_OTEL_SAMPLING_RATE: %w", err))
		} else {
			config.OtelSamplingRate = r
		}
	}

	return errors.Join(errs...)
}
