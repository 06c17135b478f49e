// Package image provides raster loading, transformation, and compositing for
// the overlay alignment pipeline.
//
// All buffers are *image.RGBA holding unassociated (straight) alpha: each
// pipeline stage interpolates and blends channels independently, and
// compositing happens explicitly rather than through the premultiplied
// stdlib draw path. Engines never write into a caller's buffer; outputs are
// always fresh allocations.
package image

import (
	"image"
	"image/color"
)

// Clone returns a deep copy of src with bounds translated to the origin.
func Clone(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y) : src.PixOffset(b.Min.X, b.Min.Y+y)+4*b.Dx()]
		dstRow := dst.Pix[dst.PixOffset(0, y) : dst.PixOffset(0, y)+4*b.Dx()]
		copy(dstRow, srcRow)
	}
	return dst
}

// ToRGBA converts a decoded image into a straight-alpha RGBA raster.
func ToRGBA(src image.Image) *image.RGBA {
	switch s := src.(type) {
	case *image.RGBA:
		return Clone(s)
	case *image.NRGBA:
		// NRGBA is already straight alpha; copy rows byte for byte.
		b := s.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			srcRow := s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y) : s.PixOffset(b.Min.X, b.Min.Y+y)+4*b.Dx()]
			dstRow := dst.Pix[dst.PixOffset(0, y) : dst.PixOffset(0, y)+4*b.Dx()]
			copy(dstRow, srcRow)
		}
		return dst
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = c.A
		}
	}
	return dst
}

// HasOpaquePixels reports whether any pixel has non-zero alpha.
func HasOpaquePixels(src *image.RGBA) bool {
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y) : src.PixOffset(b.Min.X, y)+4*b.Dx()]
		for i := 3; i < len(row); i += 4 {
			if row[i] != 0 {
				return true
			}
		}
	}
	return false
}
