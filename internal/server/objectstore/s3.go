package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// s3API is the subset of *s3.Client the store calls.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Config carries connection settings for S3Store.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string // empty means the AWS default resolver
	AccessKey    string
	SecretKey    string
	Prefix       string
	Timeout      time.Duration
	UsePathStyle bool
}

// S3Store stores objects as S3 keys {prefix}/{id[:2]}/{id}.
type S3Store struct {
	client  s3API
	bucket  string
	prefix  string
	timeout time.Duration
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds an S3 client from cfg using static credentials.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", common.ErrorStorage, err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client s3API, cfg S3Config) *S3Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		timeout: timeout,
	}
}

func (s *S3Store) objectKey(id string) string {
	return path.Join(s.prefix, id[:2], id)
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !errors.Is(classifyS3Error(err), common.ErrorNotFound) {
		return fmt.Errorf("%w: head bucket: %w", common.ErrorStorage, err)
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("%w: create bucket: %w", common.ErrorStorage, err)
	}
	return nil
}

// Put uploads body with If-None-Match: *, so an existing key is reported
// as common.ErrorAlreadyExists instead of being replaced.
func (s *S3Store) Put(ctx context.Context, id string, body io.ReadSeeker, size int64) error {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(id)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", classifyS3Error(err))
	}
	return nil
}

// Get opens the object body. The per-call timeout stays armed until the
// returned reader is closed.
func (s *S3Store) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("get object: %w", classifyS3Error(err))
	}

	return &cancelOnClose{ReadCloser: out.Body, cancel: cancel}, nil
}

// Delete removes the object. S3 does not report missing keys on delete, so
// neither does this method.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", classifyS3Error(err))
	}
	return nil
}

// DeleteOlderThan pages through every key under the prefix and deletes the
// ones last modified before cutoff.
func (s *S3Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	deleted := 0
	pages := s3.NewListObjectsV2Paginator(s.client, input)
	for pages.HasMorePages() {
		pageCtx, cancel := context.WithTimeout(ctx, s.timeout)
		page, err := pages.NextPage(pageCtx)
		cancel()
		if err != nil {
			return deleted, fmt.Errorf("list objects: %w", classifyS3Error(err))
		}

		for _, obj := range page.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}

			delCtx, cancel := context.WithTimeout(ctx, s.timeout)
			_, err := s.client.DeleteObject(delCtx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			cancel()
			if err != nil {
				return deleted, fmt.Errorf("delete object: %w", classifyS3Error(err))
			}
			deleted++
		}
	}

	return deleted, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *S3Store) Close() error { return nil }

// classifyS3Error maps SDK failures onto the common sentinels while keeping
// the original error in the chain.
func classifyS3Error(err error) error {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return fmt.Errorf("%w: %w", common.ErrorNotFound, err)
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %w", common.ErrorNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %w", common.ErrorNotFound, err)
		case "PreconditionFailed", "ConditionalRequestConflict":
			return fmt.Errorf("%w: %w", common.ErrorAlreadyExists, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", common.ErrorNotFound, err)
		case http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %w", common.ErrorAlreadyExists, err)
		}
	}

	return fmt.Errorf("%w: %w", common.ErrorStorage, err)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
