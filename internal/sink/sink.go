// Package sink defines destinations that rendered QR images are exported to.
package sink

import (
	"context"
	"errors"
)

// ErrInvalidName is returned for object names that are empty or escape the sink root.
var ErrInvalidName = errors.New("sink: invalid object name")

// Sink writes named objects to a destination.
// Implementations handle path formats and storage details internally.
type Sink interface {
	// Put writes data under name, replacing any existing object.
	Put(ctx context.Context, name string, data []byte, contentType string) error

	// Close releases any resources held by the sink.
	Close() error
}
