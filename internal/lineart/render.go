package lineart

import (
	"image"

	img "github.com/gregleeform/landviewer/internal/image"
)

// Stroke geometry defaults, tuned against scanned cadastral sheets.
const (
	DefaultMinRadius = 1.25
	DefaultMaxRadius = 7.5
	DefaultFeather   = 1.25
)

// Render rebuilds the overlay's strokes at a uniform radius derived from
// strength in [0,1]. Every pixel within radius+feather of the skeleton takes
// the colour of its nearest skeleton pixel, weighted 1.0 inside the radius
// and fading linearly to zero across the feather band, composited onto the
// original with a per-channel maximum. Pixels outside the band are left
// untouched. A nil sketch or strength <= 0 returns src unchanged.
func Render(src *image.RGBA, sketch *Sketch, strength float64) *image.RGBA {
	if sketch == nil || strength <= 0 {
		return src
	}
	b := src.Bounds()
	if b.Dx() != sketch.width || b.Dy() != sketch.height {
		return src
	}

	if strength > 1 {
		strength = 1
	}
	radius := DefaultMinRadius + (DefaultMaxRadius-DefaultMinRadius)*strength
	feather := DefaultFeather
	limit := radius + feather

	dst := img.Clone(src)
	w, h := sketch.width, sketch.height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			lbl := sketch.label[i]
			if lbl == 0 {
				continue
			}
			d := float64(sketch.dist[i])
			if d > limit {
				continue
			}

			weight := 1.0
			if d > radius && feather > 1e-6 {
				weight = (limit - d) / feather
				if weight < 0 {
					weight = 0
				}
			}

			sx := int(lbl-1) % w
			sy := int(lbl-1) / w
			si := src.PixOffset(b.Min.X+sx, b.Min.Y+sy)
			di := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				v := uint8(float64(src.Pix[si+c]) * weight)
				if v > dst.Pix[di+c] {
					dst.Pix[di+c] = v
				}
			}
		}
	}
	return dst
}
