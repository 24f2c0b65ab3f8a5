// Package document validates document uploads and maps the gateway's
// upload, list and delete operations onto object storage.
package document

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/docgate/service/internal/config"
	"github.com/docgate/service/internal/storage"
)

// allowedExtensions are compared against the lower-cased suffix after the last dot.
var allowedExtensions = map[string]bool{
	"pdf":  true,
	"doc":  true,
	"docx": true,
	"txt":  true,
}

// ErrNoFileSelected is returned when the upload carries an empty filename.
var ErrNoFileSelected = errors.New("no file selected")

// ErrTypeNotAllowed is returned when the filename has no allowed extension.
var ErrTypeNotAllowed = errors.New("file type not allowed")

// ErrNotFound is returned when no object in the bucket carries the requested etag.
var ErrNotFound = errors.New("no object with the given etag")

// Service contains the document operations. Store errors are returned as the
// store produced them.
type Service struct {
	store         storage.Storage
	defaultBucket string
	log           logrus.FieldLogger
}

// NewService creates a document Service. Requests that name no bucket use
// cfg.Storage.Bucket.
func NewService(store storage.Storage, cfg *config.Config, log logrus.FieldLogger) *Service {
	return &Service{
		store:         store,
		defaultBucket: cfg.Storage.Bucket,
		log:           log.WithField("component", "document"),
	}
}

// ValidateFilename checks that name is non-empty and ends in an allowed extension.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrNoFileSelected
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 || !allowedExtensions[strings.ToLower(name[i+1:])] {
		return ErrTypeNotAllowed
	}
	return nil
}

// Bucket resolves an empty bucket name to the configured default.
func (s *Service) Bucket(bucket string) string {
	if bucket == "" {
		return s.defaultBucket
	}
	return bucket
}

// EnsureDefaultBucket creates the default bucket if it is missing.
func (s *Service) EnsureDefaultBucket(ctx context.Context) error {
	return s.ensureBucket(ctx, s.defaultBucket)
}

func (s *Service) ensureBucket(ctx context.Context, bucket string) error {
	created, err := s.store.EnsureBucket(ctx, bucket)
	if err != nil {
		s.log.WithError(err).WithField("bucket", bucket).Error("ensure bucket failed")
		return err
	}
	if created {
		s.log.WithField("bucket", bucket).Info("created bucket")
	}
	return nil
}

// Upload validates filename, makes sure the bucket exists and streams body into
// it under filename. An existing object of the same name is overwritten.
// Nothing reaches the store when validation fails.
func (s *Service) Upload(ctx context.Context, bucket, filename, contentType string, body io.Reader) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	bucket = s.Bucket(bucket)

	if err := s.ensureBucket(ctx, bucket); err != nil {
		return err
	}

	log := s.log.WithFields(logrus.Fields{"bucket": bucket, "file": filename})
	if err := s.store.Put(ctx, bucket, filename, body, contentType); err != nil {
		log.WithError(err).Error("upload failed")
		return err
	}
	log.Info("uploaded document")
	return nil
}

// List returns the bucket's objects in store order.
func (s *Service) List(ctx context.Context, bucket string) ([]storage.Object, error) {
	bucket = s.Bucket(bucket)
	objects, err := s.store.List(ctx, bucket)
	if err != nil {
		s.log.WithError(err).WithField("bucket", bucket).Error("list failed")
		return nil, err
	}
	return objects, nil
}

// DeleteByETag scans the whole listing and removes the first object whose etag
// equals etag. ETags are not guaranteed unique within a bucket; when several
// objects match, only the first listed is removed and the rest are logged.
func (s *Service) DeleteByETag(ctx context.Context, bucket, etag string) (storage.Object, error) {
	bucket = s.Bucket(bucket)
	log := s.log.WithFields(logrus.Fields{"bucket": bucket, "etag": etag})

	objects, err := s.store.List(ctx, bucket)
	if err != nil {
		log.WithError(err).Error("list failed")
		return storage.Object{}, err
	}

	var (
		match  *storage.Object
		others []string
	)
	for i := range objects {
		if objects[i].ETag != etag {
			continue
		}
		if match == nil {
			match = &objects[i]
			continue
		}
		others = append(others, objects[i].Name)
	}
	if match == nil {
		return storage.Object{}, ErrNotFound
	}
	if len(others) > 0 {
		log.WithFields(logrus.Fields{"file": match.Name, "also_matching": others}).
			Warn("etag is shared by several objects, deleting the first listed")
	}

	if err := s.store.Remove(ctx, bucket, match.Name); err != nil {
		log.WithError(err).WithField("file", match.Name).Error("delete failed")
		return storage.Object{}, err
	}
	log.WithField("file", match.Name).Info("deleted document")
	return *match, nil
}
