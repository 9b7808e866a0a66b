package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"
	log "github.com/sirupsen/logrus"
)

// MinioConfig holds the connection settings for the order bucket.
type MinioConfig struct {
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PublicBase string
	UseSSL     bool
	// SSE enables SSE-S3 server-side encryption for every uploaded object.
	SSE bool
}

// MinioStorage implements Gateway using a MinIO (or any S3-compatible) backend.
// Objects stay private; readers only reach them through presigned links.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
	sse        bool
	logger     *log.Entry
}

var _ Gateway = (*MinioStorage)(nil)

// NewMinioStorage creates a MinIO client, ensures the bucket exists and
// returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, cfg MinioConfig, logger *log.Entry) (*MinioStorage, error) {
	s, err := newMinioStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	exists, err := s.client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		s.logger.WithField("bucket", cfg.Bucket).Info("created bucket")
	}

	return s, nil
}

func newMinioStorage(cfg MinioConfig, logger *log.Entry) (*MinioStorage, error) {
	if logger == nil {
		logger = log.WithField("component", "storage")
	}
	// A fixed region keeps presigning local: minio-go skips the bucket location lookup.
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStorage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		sse:        cfg.SSE,
		logger:     logger,
	}, nil
}

// Put uploads data under a fresh "orders/" key and returns its locator.
func (s *MinioStorage) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := ObjectKey(filename)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	logger := s.logger.WithFields(log.Fields{"bucket": s.bucket, "key": key})
	logger.WithFields(log.Fields{"filename": filename, "size": len(data)}).Info("uploading file")

	opts := minio.PutObjectOptions{ContentType: contentType}
	if s.sse {
		opts.ServerSideEncryption = encrypt.NewSSE()
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		logger.WithError(err).Error("upload failed")
		return "", fmt.Errorf("put object %q: %w", key, err)
	}

	logger.Info("file uploaded")
	return Locator(s.publicBase, key), nil
}

// SignedGet presigns a GET request for the object behind locator.
func (s *MinioStorage) SignedGet(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	key, err := KeyFromLocator(s.publicBase, locator)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", locator, err)
	}
	logger := s.logger.WithFields(log.Fields{"bucket": s.bucket, "key": key})

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		logger.WithError(err).Error("presign failed")
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}

	logger.WithField("expiry", ttl).Info("presigned URL generated")
	return u.String(), nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (s *MinioStorage) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}
