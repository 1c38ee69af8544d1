package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	// "http://127.0.0.1:9000" or "127.0.0.1:9000"
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
}

// MinioGateway reads objects from a MinIO (or any S3-compatible) bucket.
type MinioGateway struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioClient accepts endpoints with or without a scheme; https selects TLS.
func NewMinioClient(cfg MinioConfig) (*minio.Client, error) {
	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
}

func NewMinioGateway(client *minio.Client, bucket, prefix string) *MinioGateway {
	return &MinioGateway{client: client, bucket: bucket, prefix: prefix}
}

func (g *MinioGateway) key(name string) string {
	return path.Join(g.prefix, name)
}

// EnsureBucket creates the bucket if it does not exist yet.
func (g *MinioGateway) EnsureBucket(ctx context.Context, region string) (created bool, err error) {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return false, unavailable(g.bucket, err)
	}
	if exists {
		return false, nil
	}
	if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return false, fmt.Errorf("couldn't create bucket %s: %w", g.bucket, err)
	}
	return true, nil
}

func (g *MinioGateway) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	key := g.key(name)
	obj, err := g.client.GetObject(ctx, g.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinio(name, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, classifyMinio(name, err)
	}
	return obj, nil
}

func (g *MinioGateway) Put(ctx context.Context, name string, data []byte) error {
	_, err := g.client.PutObject(ctx, g.bucket, g.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return unavailable(name, err)
	}
	return nil
}

func classifyMinio(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return notFound(name)
	}
	return unavailable(name, err)
}

func splitEndpoint(endpoint string) (host string, secure bool, err error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("storage endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
