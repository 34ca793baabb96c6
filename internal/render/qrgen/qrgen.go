// Package qrgen renders QR codes with github.com/skip2/go-qrcode.
package qrgen

import (
	"context"
	"fmt"
	"image"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/discochess/qrcache/internal/render"
)

// DefaultSize is the default edge length of a rendered code in pixels.
const DefaultSize = 256

// Compile-time check that Generator implements render.Generator.
var _ render.Generator = (*Generator)(nil)

// Generator renders square QR code images.
type Generator struct {
	size       int
	level      qrcode.RecoveryLevel
	noBorder   bool
	foreground color.Color
	background color.Color
}

// Option configures a Generator.
type Option func(*Generator)

// WithSize sets the edge length of the image in pixels.
// Non-positive values are ignored.
func WithSize(px int) Option {
	return func(g *Generator) {
		if px > 0 {
			g.size = px
		}
	}
}

// WithRecoveryLevel sets the error correction level.
func WithRecoveryLevel(level qrcode.RecoveryLevel) Option {
	return func(g *Generator) {
		g.level = level
	}
}

// WithoutBorder drops the quiet zone around the code.
func WithoutBorder() Option {
	return func(g *Generator) {
		g.noBorder = true
	}
}

// WithColors sets the module and background colors.
func WithColors(fg, bg color.Color) Option {
	return func(g *Generator) {
		g.foreground = fg
		g.background = bg
	}
}

// New returns a Generator. Defaults: DefaultSize pixels, medium recovery,
// black on white with a border.
func New(opts ...Option) *Generator {
	g := &Generator{
		size:       DefaultSize,
		level:      qrcode.Medium,
		foreground: color.Black,
		background: color.White,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Size returns the edge length of generated images in pixels.
func (g *Generator) Size() int {
	return g.size
}

// Generate renders content as a QR code.
func (g *Generator) Generate(ctx context.Context, content string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, render.ErrEmptyContent
	}

	q, err := qrcode.New(content, g.level)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	q.DisableBorder = g.noBorder
	q.ForegroundColor = g.foreground
	q.BackgroundColor = g.background

	return q.Image(g.size), nil
}

// ParseRecoveryLevel maps a level name (low, medium, high, highest) to its
// go-qrcode constant.
func ParseRecoveryLevel(name string) (qrcode.RecoveryLevel, error) {
	switch name {
	case "low", "L":
		return qrcode.Low, nil
	case "medium", "M", "":
		return qrcode.Medium, nil
	case "high", "Q":
		return qrcode.High, nil
	case "highest", "H":
		return qrcode.Highest, nil
	default:
		return 0, fmt.Errorf("unknown recovery level: %s", name)
	}
}
