package image

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension is the longest edge, in pixels, beyond which working
// with the full-resolution raster noticeably hurts interactive latency.
const DefaultMaxDimension = 4000

// ShouldSuggestResize reports whether either dimension exceeds maxDim.
func ShouldSuggestResize(src *image.RGBA, maxDim int) bool {
	b := src.Bounds()
	return b.Dx() > maxDim || b.Dy() > maxDim
}

// ResizedCopy returns a copy scaled so the longest edge equals maxDim.
// Images already within bounds come back as plain copies.
func ResizedCopy(src *image.RGBA, maxDim int) *image.RGBA {
	b := src.Bounds()
	longest := b.Dx()
	if b.Dy() > longest {
		longest = b.Dy()
	}
	if longest <= maxDim {
		return Clone(src)
	}

	scale := float64(maxDim) / float64(longest)
	newW := int(float64(b.Dx()) * scale)
	newH := int(float64(b.Dy()) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
