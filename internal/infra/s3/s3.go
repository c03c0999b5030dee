package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func NewClient(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return client, nil
}

// Storage resolves stored photo keys to short-lived presigned URLs for
// candidate cards. Media upload and moderation live elsewhere; this is
// read-only.
type Storage struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewStorage(client *minio.Client, bucket string, ttl time.Duration) *Storage {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Storage{
		client: client,
		bucket: bucket,
		ttl:    ttl,
	}
}

func (s *Storage) PresignPhotoURL(ctx context.Context, key string) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("s3 client is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("photo key is required")
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign photo url: %w", err)
	}

	return u.String(), nil
}
