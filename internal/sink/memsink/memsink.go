// Package memsink provides an in-memory sink implementation for testing.
package memsink

import (
	"context"
	"sort"
	"sync"

	"github.com/discochess/qrcache/internal/sink"
)

// Compile-time check that Sink implements sink.Sink.
var _ sink.Sink = (*Sink)(nil)

// Object is a stored object.
type Object struct {
	Data        []byte
	ContentType string
}

// Sink is an in-memory sink for testing.
type Sink struct {
	mu      sync.RWMutex
	objects map[string]Object
	closed  bool
}

// New creates a new in-memory sink.
func New() *Sink {
	return &Sink{
		objects: make(map[string]Object),
	}
}

// Put stores a copy of data under name.
func (s *Sink) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return sink.ErrInvalidName
	}

	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = Object{Data: copied, ContentType: contentType}
	return nil
}

// Get returns the object stored under name.
func (s *Sink) Get(name string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[name]
	return obj, ok
}

// Names returns the stored object names in sorted order.
func (s *Sink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Closed reports whether Close has been called.
func (s *Sink) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close marks the sink closed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
