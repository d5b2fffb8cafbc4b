package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCS fetches objects from a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a client for bucket. A non-empty endpoint targets an
// emulator without credentials.
func NewGCS(ctx context.Context, bucket, endpoint string) (*GCS, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs: bucket required")
	}
	var opts []option.ClientOption
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Open starts reading key from the bucket.
func (g *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := g.client.Bucket(g.bucket).Object(strings.TrimLeft(key, "/")).NewReader(ctx)
	if err != nil {
		return nil, classifyGCSError(key, err)
	}
	return reader, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func classifyGCSError(key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("fetch %s: %w", key, ErrObjectNotFound)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Key: key, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("fetch %s: %w", key, err)
}
