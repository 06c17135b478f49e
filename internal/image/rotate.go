package image

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// rotationEpsilon is the angular tolerance below which a rotation is treated
// as exact. Slider detents land on whole degrees, so anything closer than
// this to 0/90/180/270 takes the lossless path.
const rotationEpsilon = 1e-6

// Rotate rotates src clockwise by the given angle in degrees, expanding the
// canvas to fit the rotated content. Quarter turns are exact pixel
// permutations; any other angle resamples with a Catmull-Rom (bicubic-class)
// kernel onto a transparent canvas. Angles within 1e-6 of zero return an
// unrotated copy.
func Rotate(src *image.RGBA, degrees float64) *image.RGBA {
	deg := math.Mod(degrees, 360)
	if deg < 0 {
		deg += 360
	}

	switch {
	case deg < rotationEpsilon || 360-deg < rotationEpsilon:
		return Clone(src)
	case math.Abs(deg-90) < rotationEpsilon:
		return rotate90(src)
	case math.Abs(deg-180) < rotationEpsilon:
		return rotate180(src)
	case math.Abs(deg-270) < rotationEpsilon:
		return rotate270(src)
	}

	return rotateArbitrary(src, deg)
}

// rotate90 rotates clockwise by a quarter turn: dst(x,y) = src(y, H-1-x).
func rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			si := src.PixOffset(b.Min.X+y, b.Min.Y+h-1-x)
			di := dst.PixOffset(x, y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

func rotate180(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := src.PixOffset(b.Min.X+w-1-x, b.Min.Y+h-1-y)
			di := dst.PixOffset(x, y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

// rotate270 rotates counter-clockwise by a quarter turn: dst(x,y) = src(W-1-y, x).
func rotate270(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			si := src.PixOffset(b.Min.X+w-1-y, b.Min.Y+x)
			di := dst.PixOffset(x, y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

func rotateArbitrary(src *image.RGBA, deg float64) *image.RGBA {
	b := src.Bounds()
	w := float64(b.Dx())
	h := float64(b.Dy())

	theta := deg * math.Pi / 180
	sin, cos := math.Sincos(theta)
	absSin, absCos := math.Abs(sin), math.Abs(cos)

	newW := int(math.Ceil(w*absCos + h*absSin))
	newH := int(math.Ceil(w*absSin + h*absCos))
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))

	// Rotate about the source centre, then recentre on the expanded canvas.
	// With y pointing down, [cos -sin; sin cos] is a clockwise screen rotation.
	scx, scy := float64(b.Min.X)+w/2, float64(b.Min.Y)+h/2
	dcx, dcy := float64(newW)/2, float64(newH)/2
	m := f64.Aff3{
		cos, -sin, dcx - cos*scx + sin*scy,
		sin, cos, dcy - sin*scx - cos*scy,
	}

	// draw.Src keeps channel interpolation independent, which is what straight
	// alpha buffers need.
	draw.CatmullRom.Transform(dst, m, src, b, draw.Src, nil)
	return dst
}
