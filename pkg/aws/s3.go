package aws

import (
	"auctions/pkg/config"
	"time"

	"github.com/gofiber/storage/s3/v2"
)

// S3 stores listing images in a bucket. Objects never expire.
type S3 struct {
	bucket *s3.Storage
}

func NewS3Bucket(cfg *config.AppConfig) *S3 {
	storage := s3.New(s3.Config{
		Endpoint: cfg.AWSEndpoint,
		Bucket:   cfg.AWSBucket,
		Region:   cfg.AWSDefaultRegion,
		Credentials: s3.Credentials{
			AccessKey:       cfg.AWSAccessKey,
			SecretAccessKey: cfg.AWSSecretKey,
		},
		MaxAttempts:    3,
		RequestTimeout: 10 * time.Second,
		Reset:          false,
	})

	return &S3{bucket: storage}
}

func (s *S3) Upload(key string, data []byte) error {
	return s.bucket.Set(key, data, 0)
}

func (s *S3) Delete(key string) error {
	return s.bucket.Delete(key)
}

func (s *S3) Close() error {
	return s.bucket.Close()
}
