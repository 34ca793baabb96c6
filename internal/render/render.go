// Package render defines how QR images are produced and encoded.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
)

// ErrEmptyContent is returned when asked to render an empty string.
var ErrEmptyContent = errors.New("render: empty content")

// Generator produces an image encoding content.
// Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, content string) (image.Image, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, content string) (image.Image, error)

// Compile-time check that GeneratorFunc implements Generator.
var _ Generator = GeneratorFunc(nil)

// Generate calls f(ctx, content).
func (f GeneratorFunc) Generate(ctx context.Context, content string) (image.Image, error) {
	return f(ctx, content)
}

var encoder = png.Encoder{CompressionLevel: png.BestCompression}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if img == nil {
		return errors.New("render: nil image")
	}
	if err := encoder.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// PNGBytes returns img encoded as PNG.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
