package image

import (
	"errors"
	"fmt"
	"image"
)

// MinCrop is the smallest crop edge the engine accepts, in pixels.
const MinCrop = 128

// ErrInvalidCrop reports a crop region that violates the minimum size or
// falls outside the source raster.
var ErrInvalidCrop = errors.New("invalid crop region")

// CropRegion is an integer pixel rectangle into a rotated source image.
// Coordinates are relative to the rotated frame, so a rotation change
// invalidates any stored region.
type CropRegion struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the horizontal extent of the region.
func (c CropRegion) Width() int { return c.Right - c.Left }

// Height returns the vertical extent of the region.
func (c CropRegion) Height() int { return c.Bottom - c.Top }

// Validate checks the region against a width×height source raster.
func (c CropRegion) Validate(width, height int) error {
	if c.Width() < MinCrop || c.Height() < MinCrop {
		return fmt.Errorf("%w: %dx%d is below the %dpx minimum", ErrInvalidCrop, c.Width(), c.Height(), MinCrop)
	}
	if c.Left < 0 || c.Top < 0 || c.Right > width || c.Bottom > height {
		return fmt.Errorf("%w: %+v exceeds %dx%d source", ErrInvalidCrop, c, width, height)
	}
	return nil
}

// Crop copies the region out of src into a new raster.
func Crop(src *image.RGBA, region CropRegion) (*image.RGBA, error) {
	b := src.Bounds()
	if err := region.Validate(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, region.Width(), region.Height()))
	for y := 0; y < region.Height(); y++ {
		si := src.PixOffset(b.Min.X+region.Left, b.Min.Y+region.Top+y)
		di := dst.PixOffset(0, y)
		copy(dst.Pix[di:di+4*region.Width()], src.Pix[si:si+4*region.Width()])
	}
	return dst, nil
}
