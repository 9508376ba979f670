package config

import (
	"encoding/json"
	"os"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/flagx"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations use
// timex.Duration so both "90s" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddr                string         `json:"http_addr"`
	DatabaseDriver          string         `json:"database_driver"`
	DatabaseDSN             string         `json:"database_dsn"`
	SecretKey               string         `json:"secret_key"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration"`
	CookieSecure            bool           `json:"cookie_secure"`

	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	S3Prefix       string         `json:"s3_prefix"`
	S3Timeout      timex.Duration `json:"s3_timeout"`
	S3UsePathStyle bool           `json:"s3_use_path_style"`

	StorageBackend string `json:"storage_backend"`
	FSRoot         string `json:"fs_root"`
	BoltPath       string `json:"bolt_path"`

	ScratchDir     string `json:"scratch_dir"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
	CipherSuite    string `json:"cipher_suite"`
	ChunkSize      int    `json:"chunk_size"`

	Retention     timex.Duration `json:"retention"`
	SweepInterval timex.Duration `json:"sweep_interval"`

	Notifier     string `json:"notifier"`
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	SMTPFrom     string `json:"smtp_from"`

	LogLevel         string  `json:"log_level"`
	OtelEnabled      bool    `json:"otel_enabled"`
	OtelEndpoint     string  `json:"otel_endpoint"`
	OtelServiceName  string  `json:"otel_service_name"`
	OtelSamplingRate float64 `json:"otel_sampling_rate"`
}

// parseJson loads the file named by -c/-config (if any) over config.
// Keys absent from the file keep their current value.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}
	fromJson(config, c)
	return nil
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:                c.HTTPAddr,
		DatabaseDriver:          c.DatabaseDriver,
		DatabaseDSN:             c.DatabaseDSN,
		SecretKey:               c.SecretKey,
		SessionValidityDuration: timex.Duration{Duration: c.SessionValidityDuration},
		CookieSecure:            c.CookieSecure,
		S3RootUser:              c.S3RootUser,
		S3RootPassword:          c.S3RootPassword,
		S3Bucket:                c.S3Bucket,
		S3Region:                c.S3Region,
		S3BaseEndpoint:          c.S3BaseEndpoint,
		S3Prefix:                c.S3Prefix,
		S3Timeout:               timex.Duration{Duration: c.S3Timeout},
		S3UsePathStyle:          c.S3UsePathStyle,
		StorageBackend:          c.StorageBackend,
		FSRoot:                  c.FSRoot,
		BoltPath:                c.BoltPath,
		ScratchDir:              c.ScratchDir,
		MaxUploadBytes:          c.MaxUploadBytes,
		CipherSuite:             c.CipherSuite,
		ChunkSize:               c.ChunkSize,
		Retention:               timex.Duration{Duration: c.Retention},
		SweepInterval:           timex.Duration{Duration: c.SweepInterval},
		Notifier:                c.Notifier,
		SMTPHost:                c.SMTPHost,
		SMTPPort:                c.SMTPPort,
		SMTPUser:                c.SMTPUser,
		SMTPPassword:            c.SMTPPassword,
		SMTPFrom:                c.SMTPFrom,
		LogLevel:                c.LogLevel,
		OtelEnabled:             c.OtelEnabled,
		OtelEndpoint:            c.OtelEndpoint,
		OtelServiceName:         c.OtelServiceName,
		OtelSamplingRate:        c.OtelSamplingRate,
	}
}

func fromJson(c *Config, j *JsonConfig) {
	c.HTTPAddr = j.HTTPAddr
	c.DatabaseDriver = j.DatabaseDriver
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.SessionValidityDuration = j.SessionValidityDuration.Duration
	c.CookieSecure = j.CookieSecure
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.S3Prefix = j.S3Prefix
	c.S3Timeout = j.S3Timeout.Duration
	c.S3UsePathStyle = j.S3UsePathStyle
	c.StorageBackend = j.StorageBackend
	c.FSRoot = j.FSRoot
	c.BoltPath = j.BoltPath
	c.ScratchDir = j.ScratchDir
	c.MaxUploadBytes = j.MaxUploadBytes
	c.CipherSuite = j.CipherSuite
	c.ChunkSize = j.ChunkSize
	c.Retention = j.Retention.Duration
	c.SweepInterval = j.SweepInterval.Duration
	c.Notifier = j.Notifier
	c.SMTPHost = j.SMTPHost
	c.SMTPPort = j.SMTPPort
	c.SMTPUser = j.SMTPUser
	c.SMTPPassword = j.SMTPPassword
	c.SMTPFrom = j.SMTPFrom
	c.LogLevel = j.LogLevel
	c.OtelEnabled = j.OtelEnabled
	c.OtelEndpoint = j.OtelEndpoint
	c.OtelServiceName = j.OtelServiceName
	c.OtelSamplingRate = j.OtelSamplingRate
}
