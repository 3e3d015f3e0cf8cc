// Package s3 implements the blob store on S3-compatible object storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/blob"
)

// Config holds the connection settings for an S3-compatible endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store talks to a single bucket on an S3-compatible service.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ blob.Store = (*Store)(nil)

// New builds a Store. It does not contact the service; availability is
// probed per call so a late-starting backend still gets picked up.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: building client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, bucket: cfg.Bucket, logger: logger.With("component", "blob_s3")}, nil
}

func (s *Store) Available(ctx context.Context) bool {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		s.logger.Warn("bucket probe failed", "bucket", s.bucket, "error", err)
		return false
	}
	return ok
}

func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("s3: uploading %s: %w", key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3: probing %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3: opening %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("s3: reading %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3: removing %s: %w", key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
