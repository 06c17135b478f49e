package align

import (
	"image"

	"github.com/gregleeform/landviewer/pkg/geometry"
)

// Warp resamples the overlay into a width×height destination canvas so that
// the overlay's corner quad lands on dst. The homography is solved in the
// destination-to-source direction and each output pixel is bilinearly
// sampled, so destination points outside the canvas never clip the
// transform; the canvas merely crops the visible result. Out-of-bounds
// source lookups contribute transparent pixels.
func Warp(overlay *image.RGBA, dst geometry.Quad, width, height int) (*image.RGBA, error) {
	b := overlay.Bounds()
	src := geometry.RectQuad(float64(b.Dx()), float64(b.Dy()))

	inv, err := SolveHomography(dst, src)
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sp, ok := inv.Apply(geometry.Point2D{X: float64(x), Y: float64(y)})
			if !ok {
				continue
			}
			r, g, bl, a := sampleBilinear(overlay, sp.X, sp.Y)
			if a == 0 {
				continue
			}
			i := out.PixOffset(x, y)
			out.Pix[i+0] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = bl
			out.Pix[i+3] = a
		}
	}
	return out, nil
}

// sampleBilinear interpolates the four straight-alpha neighbours of a
// fractional source position. Neighbours outside the raster count as fully
// transparent, so warped edges fade out instead of smearing.
func sampleBilinear(src *image.RGBA, x, y float64) (r, g, b, a uint8) {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if x < -1 || y < -1 || x > float64(w) || y > float64(h) {
		return 0, 0, 0, 0
	}

	x0 := int(fastFloor(x))
	y0 := int(fastFloor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	var acc [4]float64
	weights := [4]struct {
		dx, dy int
		w      float64
	}{
		{0, 0, (1 - fx) * (1 - fy)},
		{1, 0, fx * (1 - fy)},
		{0, 1, (1 - fx) * fy},
		{1, 1, fx * fy},
	}
	for _, wt := range weights {
		px, py := x0+wt.dx, y0+wt.dy
		if px < 0 || px >= w || py < 0 || py >= h || wt.w == 0 {
			continue
		}
		i := src.PixOffset(sb.Min.X+px, sb.Min.Y+py)
		acc[0] += float64(src.Pix[i+0]) * wt.w
		acc[1] += float64(src.Pix[i+1]) * wt.w
		acc[2] += float64(src.Pix[i+2]) * wt.w
		acc[3] += float64(src.Pix[i+3]) * wt.w
	}
	return clamp8(acc[0]), clamp8(acc[1]), clamp8(acc[2]), clamp8(acc[3])
}

func fastFloor(v float64) float64 {
	f := float64(int(v))
	if v < f {
		f--
	}
	return f
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
