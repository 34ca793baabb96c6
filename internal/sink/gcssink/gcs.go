// Package gcssink implements a Google Cloud Storage sink.
package gcssink

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/discochess/qrcache/internal/sink"
)

// Compile-time check that Sink implements sink.Sink.
var _ sink.Sink = (*Sink)(nil)

// Sink is a Google Cloud Storage sink.
type Sink struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// New creates a new GCS sink.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Sink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s := &Sink{
		client: client,
		bucket: client.Bucket(bucketName),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Option configures a Sink.
type Option func(*Sink)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Sink) {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
	}
}

// Put uploads data to bucket/prefix+name.
func (s *Sink) Put(ctx context.Context, name string, data []byte, contentType string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if name == "" {
		return sink.ErrInvalidName
	}

	w := s.bucket.Object(s.objectKey(name)).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", name, err)
	}
	return nil
}

// Close releases resources.
func (s *Sink) Close() error {
	return s.client.Close()
}

// objectKey returns the full object key for name.
func (s *Sink) objectKey(name string) string {
	return s.prefix + strings.TrimPrefix(name, "/")
}
