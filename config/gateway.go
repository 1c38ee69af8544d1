package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mlserve/storage"
)

// OpenGateway builds the storage backend selected by storage.backend.
func (c *Config) OpenGateway(ctx context.Context, logger *zap.Logger) (storage.Gateway, error) {
	s := c.Storage
	switch s.Backend {
	case BackendMinio:
		client, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  s.Endpoint,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
			Region:    s.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		gateway := storage.NewMinioGateway(client, s.Bucket, s.Prefix)
		if s.CreateBucket {
			created, err := gateway.EnsureBucket(ctx, s.Region)
			if err != nil {
				return nil, fmt.Errorf("ensure bucket %s: %w", s.Bucket, err)
			}
			if created {
				logger.Info("created bucket", zap.String("bucket", s.Bucket))
			}
		}
		return gateway, nil

	case BackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3Config{
			Endpoint:  s.Endpoint,
			Region:    s.Region,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return storage.NewS3Gateway(client, s.Bucket, s.Prefix), nil

	case BackendLocal:
		return storage.NewLocalGateway(s.Root), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", s.Backend)
}
