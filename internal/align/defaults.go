package align

import (
	"github.com/gregleeform/landviewer/pkg/geometry"
)

// defaultFitFraction leaves a margin around the initial overlay placement
// so all four handles start visibly inside the photo.
const defaultFitFraction = 0.65

// DefaultPoints returns the initial destination quad for manual pinning:
// the overlay scaled to 65% of its aspect-preserving fit inside the photo
// and centred on it.
func DefaultPoints(overlay, photo geometry.Size) geometry.Quad {
	if overlay.Width <= 0 || overlay.Height <= 0 || photo.Width <= 0 || photo.Height <= 0 {
		return geometry.RectQuad(photo.Width, photo.Height)
	}

	scale := photo.Width / overlay.Width
	if s := photo.Height / overlay.Height; s < scale {
		scale = s
	}
	scale *= defaultFitFraction

	w := overlay.Width * scale
	h := overlay.Height * scale
	left := (photo.Width - w) / 2
	top := (photo.Height - h) / 2

	return geometry.Quad{
		{X: left, Y: top},
		{X: left + w, Y: top},
		{X: left + w, Y: top + h},
		{X: left, Y: top + h},
	}
}
