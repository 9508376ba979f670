package server

import (
	"context"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/config"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/exchange"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/notify"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/objectstore"
)

// OpenStore opens the object store backend named by cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	return objectstore.Open(ctx, objectstore.Options{
		Backend: cfg.StorageBackend,
		S3: objectstore.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Prefix:       cfg.S3Prefix,
			Timeout:      cfg.S3Timeout,
			UsePathStyle: cfg.S3UsePathStyle,
		},
		FSRoot:   cfg.FSRoot,
		BoltPath: cfg.BoltPath,
	})
}

// PipelineConfig derives the exchange settings from cfg.
func PipelineConfig(cfg *config.Config) (exchange.Config, error) {
	suite, err := cryptox.ParseSuite(cfg.CipherSuite)
	if err != nil {
		return exchange.Config{}, err
	}
	return exchange.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Suite:          suite,
		ChunkSize:      cfg.ChunkSize,
	}, nil
}

// NewNotifier builds the receipt notifier named by cfg.
func NewNotifier(cfg *config.Config, log logging.Logger) notify.Notifier {
	if cfg.Notifier == config.NotifierSMTP {
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, log)
	}
	return notify.NewLogNotifier(log)
}
