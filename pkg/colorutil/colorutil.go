// Package colorutil provides shared colour parsing and distance helpers for
// the overlay filtering pipeline.
package colorutil

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidColor reports a colour specification that is not a valid
// #RRGGBB hex value.
var ErrInvalidColor = errors.New("invalid colour")

// RGB is a colour triplet with float components in [0, 255].
type RGB [3]float64

// ParseHex parses a "#RRGGBB" string into an RGB triplet. The leading '#' is
// optional and hex digits are case-insensitive.
func ParseHex(value string) (RGB, error) {
	s := strings.TrimSpace(value)
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("%w: %q must be a #RRGGBB hex code", ErrInvalidColor, value)
	}
	var c RGB
	for i := 0; i < 3; i++ {
		hi, ok1 := hexDigit(s[i*2])
		lo, ok2 := hexDigit(s[i*2+1])
		if !ok1 || !ok2 {
			return RGB{}, fmt.Errorf("%w: %q must be a #RRGGBB hex code", ErrInvalidColor, value)
		}
		c[i] = float64(hi<<4 | lo)
	}
	return c, nil
}

// Hex formats the triplet back into canonical "#RRGGBB" form.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", int(c[0]), int(c[1]), int(c[2]))
}

// ToleranceRadiusSquared maps a 0-100 tolerance slider value onto a squared
// matching radius in RGB space. The tolerance is clamped; 100 covers the full
// 255 channel range.
func ToleranceRadiusSquared(tolerance int) float64 {
	if tolerance < 0 {
		tolerance = 0
	}
	if tolerance > 100 {
		tolerance = 100
	}
	radius := float64(tolerance) / 100.0 * 255.0
	return radius * radius
}

// DistanceSquared returns the squared Euclidean distance between a pixel's
// RGB channels and a reference colour. Alpha is deliberately excluded.
func DistanceSquared(r, g, b float64, c RGB) float64 {
	dr := r - c[0]
	dg := g - c[1]
	db := b - c[2]
	return dr*dr + dg*dg + db*db
}

func hexDigit(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	}
	return 0, false
}
