package image

import (
	"image"
	"math"
)

// ScaleAlpha returns a copy of src with every alpha value scaled by opacity
// (clamped to [0,1]). Colour channels are left untouched.
func ScaleAlpha(src *image.RGBA, opacity float64) *image.RGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	dst := Clone(src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = uint8(math.Round(float64(dst.Pix[i]) * opacity))
	}
	return dst
}

// CompositeOver blends the overlay onto the photo with a straight-alpha
// source-over blend and returns the result as a new raster sized to the
// photo. The photo is treated as fully opaque; overlay pixels outside the
// photo bounds are ignored.
func CompositeOver(photo, overlay *image.RGBA) *image.RGBA {
	dst := Clone(photo)
	db := dst.Bounds()
	ob := overlay.Bounds()

	w := db.Dx()
	if ob.Dx() < w {
		w = ob.Dx()
	}
	h := db.Dy()
	if ob.Dy() < h {
		h = ob.Dy()
	}

	for y := 0; y < h; y++ {
		oi := overlay.PixOffset(ob.Min.X, ob.Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < w; x++ {
			a := float64(overlay.Pix[oi+3]) / 255.0
			if a > 0 {
				for c := 0; c < 3; c++ {
					ov := float64(overlay.Pix[oi+c])
					dv := float64(dst.Pix[di+c])
					dst.Pix[di+c] = uint8(math.Round(ov*a + dv*(1-a)))
				}
				dst.Pix[di+3] = 255
			}
			oi += 4
			di += 4
		}
	}
	return dst
}
