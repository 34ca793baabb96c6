// Package disksink implements a sink that writes objects to a local directory.
package disksink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/discochess/qrcache/internal/sink"
)

// Compile-time check that Sink implements sink.Sink.
var _ sink.Sink = (*Sink)(nil)

// Sink writes objects as files below a root directory.
type Sink struct {
	root string
}

// New creates a disk sink rooted at dir, creating it if needed.
func New(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &Sink{root: dir}, nil
}

// Put writes data to root/name. The write goes to a temporary file that is
// renamed into place, so readers never see a partial image.
func (s *Sink) Put(ctx context.Context, name string, data []byte, contentType string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	path, err := s.objectPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming object: %w", err)
	}
	return nil
}

// Root returns the sink's root directory.
func (s *Sink) Root() string {
	return s.root
}

// Close releases any resources held by the sink.
func (s *Sink) Close() error {
	return nil
}

// objectPath maps an object name to a path, rejecting names that would
// land outside the root.
func (s *Sink) objectPath(name string) (string, error) {
	if name == "" {
		return "", sink.ErrInvalidName
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", sink.ErrInvalidName, name)
	}
	return filepath.Join(s.root, clean), nil
}
