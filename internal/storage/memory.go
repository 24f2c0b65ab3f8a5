package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// ErrNoSuchBucket is returned by MemoryStorage for operations on a bucket
// that was never created.
var ErrNoSuchBucket = errors.New("the specified bucket does not exist")

type memoryObject struct {
	data         []byte
	contentType  string
	etag         string
	lastModified time.Time
}

// MemoryStorage keeps objects in process memory. ETags are the hex MD5 of the
// content, the same value S3 reports for single-part uploads.
type MemoryStorage struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memoryObject
	now     func() time.Time
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		buckets: make(map[string]map[string]memoryObject),
		now:     time.Now,
	}
}

// EnsureBucket creates an empty bucket unless one with that name exists.
func (s *MemoryStorage) EnsureBucket(_ context.Context, bucket string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[bucket]; ok {
		return false, nil
	}
	s.buckets[bucket] = make(map[string]memoryObject)
	return true, nil
}

// Put buffers body and stores it with an md5 hex ETag. The bucket must exist.
func (s *MemoryStorage) Put(ctx context.Context, bucket, name string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sum := md5.Sum(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchBucket, bucket)
	}
	objects[name] = memoryObject{
		data:         data,
		contentType:  contentType,
		etag:         hex.EncodeToString(sum[:]),
		lastModified: s.now(),
	}
	return nil
}

// List returns objects sorted by name, as S3 listings are.
func (s *MemoryStorage) List(_ context.Context, bucket string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchBucket, bucket)
	}
	out := make([]Object, 0, len(objects))
	for name, obj := range objects {
		out = append(out, Object{
			Name:         name,
			ETag:         obj.etag,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove is a no-op for a missing object, matching S3 DeleteObject.
func (s *MemoryStorage) Remove(_ context.Context, bucket, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchBucket, bucket)
	}
	delete(objects, name)
	return nil
}

// Content returns a copy of the stored bytes and content type.
func (s *MemoryStorage) Content(bucket, name string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.buckets[bucket][name]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), obj.data...), obj.contentType, true
}
