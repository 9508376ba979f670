package config

import (
	"flag"
	"io"
	"time"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/flagx"
)

var allowedFlags = []string{
	"-a", "-driver", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e",
	"-backend", "-fs-root", "-bolt-path", "-scratch",
	"-max-upload", "-suite", "-retention", "-sweep",
	"-notifier", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string       HTTP bind address (e.g., ":8080")
//	-driver         database driver: pgx or sqlite
//	-d string       database DSN
//	-s string       JWT HMAC secret key
//	-t int          session validity, minutes
//	-u string       S3 root user
//	-p string       S3 root password
//	-b string       S3 bucket name
//	-g string       S3 region
//	-e string       S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-backend        storage backend: s3, fs or bolt
//	-fs-root        root directory of the fs backend
//	-bolt-path      database file of the bolt backend
//	-scratch        scratch directory for staging files
//	-max-upload     largest accepted upload, bytes
//	-suite          cipher suite for new objects
//	-retention      object retention (e.g., "720h"; 0 disables)
//	-sweep          retention sweep interval
//	-notifier       notifier backend: smtp or log
//	-log-level      DEBUG, INFO, WARN or ERROR
//
// Arguments are filtered with flagx.FilterArgs first, so flags owned by
// other loaders (-c/-config) do not cause parse errors.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, allowedFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.StorageBackend, "backend", config.StorageBackend, "storage backend")
	fs.StringVar(&config.FSRoot, "fs-root", config.FSRoot, "fs backend root")
	fs.StringVar(&config.BoltPath, "bolt-path", config.BoltPath, "bolt backend file")
	fs.StringVar(&config.ScratchDir, "scratch", config.ScratchDir, "scratch directory")
	fs.Int64Var(&config.MaxUploadBytes, "max-upload", config.MaxUploadBytes, "max upload size in bytes")
	fs.StringVar(&config.CipherSuite, "suite", config.CipherSuite, "cipher suite")
	fs.DurationVar(&config.Retention, "retention", config.Retention, "object retention")
	fs.DurationVar(&config.SweepInterval, "sweep", config.SweepInterval, "retention sweep interval")
	fs.StringVar(&config.Notifier, "notifier", config.Notifier, "notifier backend")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	return nil
}
