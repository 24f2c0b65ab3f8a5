package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docgate/service/internal/config"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
type MinioStorage struct {
	client *minio.Client
	region string
}

// NewMinioStorage creates a MinIO client for the configured endpoint. No request
// is made to the server until the first operation.
func NewMinioStorage(cfg config.StorageConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStorage{client: client, region: cfg.Region}, nil
}

// EnsureBucket checks for the bucket and creates it when missing. Losing a
// creation race to another caller is not an error.
func (s *MinioStorage) EnsureBucket(ctx context.Context, bucket string) (bool, error) {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Put streams body to MinIO with an unknown size, so the client uploads it in
// PartSize chunks until the reader is exhausted.
func (s *MinioStorage) Put(ctx context.Context, bucket, name string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, name, body, -1, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    PartSize,
	})
	return err
}

// List walks the whole bucket recursively.
func (s *MinioStorage) List(ctx context.Context, bucket string) ([]Object, error) {
	// Cancelling stops the listing goroutine if we return early on an error.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []Object
	for info := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return nil, info.Err
		}
		objects = append(objects, Object{
			Name:         info.Key,
			ETag:         info.ETag,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	return objects, nil
}

// Remove deletes the object at name from the bucket.
func (s *MinioStorage) Remove(ctx context.Context, bucket, name string) error {
	return s.client.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{})
}
