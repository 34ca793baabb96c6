package imagecache

import (
	"fmt"
	"image"
)

// BytesPerPixel is the footprint assumed for one decoded RGBA pixel.
const BytesPerPixel = 4

// CostFunc estimates the memory footprint of an image in bytes.
type CostFunc func(img image.Image) int64

// RGBACost charges BytesPerPixel for every pixel in the image bounds.
// Nil and empty images cost nothing.
func RGBACost(img image.Image) int64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return 0
	}
	return int64(w) * int64(h) * BytesPerPixel
}

// NativeCost charges the bytes per pixel of the image's concrete pixel
// format, falling back to RGBACost for formats it does not recognise.
func NativeCost(img image.Image) int64 {
	var bpp int64
	switch img.(type) {
	case *image.Paletted, *image.Gray, *image.Alpha:
		bpp = 1
	case *image.Gray16, *image.Alpha16:
		bpp = 2
	case *image.RGBA64, *image.NRGBA64:
		bpp = 8
	default:
		return RGBACost(img)
	}
	return RGBACost(img) / BytesPerPixel * bpp
}

// ParseCostFunc returns the cost function named by model: "rgba" or the
// empty string for RGBACost, "native" for NativeCost.
func ParseCostFunc(model string) (CostFunc, error) {
	switch model {
	case "", "rgba":
		return RGBACost, nil
	case "native":
		return NativeCost, nil
	default:
		return nil, fmt.Errorf("%w: unknown cost model %q", ErrInvalidConfig, model)
	}
}
