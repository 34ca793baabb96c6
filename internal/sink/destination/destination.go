// Package destination resolves export destinations such as
// "s3://bucket/prefix", "gs://bucket/prefix" or a local directory into sinks.
package destination

import (
	"context"
	"fmt"
	"strings"

	"github.com/discochess/qrcache/internal/sink"
	"github.com/discochess/qrcache/internal/sink/disksink"
	"github.com/discochess/qrcache/internal/sink/gcssink"
	"github.com/discochess/qrcache/internal/sink/s3sink"
)

// Scheme identifies the kind of destination.
type Scheme string

const (
	SchemeDisk Scheme = "file"
	SchemeS3   Scheme = "s3"
	SchemeGCS  Scheme = "gs"
)

// Destination is a parsed export destination.
type Destination struct {
	Scheme Scheme
	Bucket string // Empty for disk destinations.
	Prefix string // Object prefix, or the directory for disk destinations.
}

// Parse parses dest. Strings without a recognised scheme are treated as
// local directories.
func Parse(dest string) (Destination, error) {
	for _, scheme := range []Scheme{SchemeS3, SchemeGCS} {
		rest, ok := strings.CutPrefix(dest, string(scheme)+"://")
		if !ok {
			continue
		}
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Destination{}, fmt.Errorf("invalid %s destination %q: missing bucket name", scheme, dest)
		}
		return Destination{Scheme: scheme, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
	}

	dir := strings.TrimPrefix(dest, "file://")
	if dir == "" {
		return Destination{}, fmt.Errorf("invalid destination: empty path")
	}
	return Destination{Scheme: SchemeDisk, Prefix: dir}, nil
}

// String formats d back into destination syntax.
func (d Destination) String() string {
	if d.Scheme == SchemeDisk {
		return d.Prefix
	}
	s := string(d.Scheme) + "://" + d.Bucket
	if d.Prefix != "" {
		s += "/" + d.Prefix
	}
	return s
}

// Open parses dest and constructs the matching sink.
func Open(ctx context.Context, dest string) (sink.Sink, error) {
	d, err := Parse(dest)
	if err != nil {
		return nil, err
	}

	switch d.Scheme {
	case SchemeS3:
		return s3sink.New(ctx, d.Bucket, s3sink.WithPrefix(d.Prefix))
	case SchemeGCS:
		return gcssink.New(ctx, d.Bucket, gcssink.WithPrefix(d.Prefix))
	default:
		return disksink.New(d.Prefix)
	}
}
