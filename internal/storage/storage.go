// Package storage defines the interface for object storage operations.
// Swap implementations by changing the driver selected at startup;
// the MinIO and S3 drivers work with any S3-compatible provider (MinIO, AWS S3, ArvanCloud).
//
// Errors returned by the drivers are the client library's own errors, unwrapped,
// so their text can be handed to callers as the store reported it.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docgate/service/internal/config"
)

// PartSize is the chunk size used for multipart transfers of streams whose
// total length is not known up front.
const PartSize = 10 << 20

// Object describes a stored object as reported by a bucket listing.
type Object struct {
	Name         string
	ETag         string // without surrounding quotes
	Size         int64
	LastModified time.Time
}

// Storage is the interface for writing, enumerating and removing objects.
// Every method takes the bucket explicitly.
type Storage interface {
	// EnsureBucket creates the bucket when it does not exist yet and reports
	// whether this call created it.
	EnsureBucket(ctx context.Context, bucket string) (bool, error)
	// Put streams body to the store under name, overwriting any existing object.
	// The length of body is not known in advance.
	Put(ctx context.Context, bucket, name string, body io.Reader, contentType string) error
	// List returns every object in the bucket in the order the store yields them.
	List(ctx context.Context, bucket string) ([]Object, error)
	// Remove deletes the object identified by name.
	Remove(ctx context.Context, bucket, name string) error
}

// New builds the driver named by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case config.DriverMinio:
		s, err := NewMinioStorage(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverS3:
		s, err := NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
