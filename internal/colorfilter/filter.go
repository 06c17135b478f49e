// Package colorfilter applies ordered keep/remove colour rules to an
// overlay raster.
//
// Matching happens in full float precision on the RGB channels; alpha only
// selects which pixels are considered at all. Remove rules win over keep
// rules, and keep rules recolour matches to their exact configured colour.
package colorfilter

import (
	"fmt"
	"image"

	img "github.com/gregleeform/landviewer/internal/image"
	"github.com/gregleeform/landviewer/pkg/colorutil"
)

// DefaultTolerance is the tolerance a freshly added rule starts with.
const DefaultTolerance = 50

// Rule pairs a reference colour with a 0-100 matching tolerance.
type Rule struct {
	Color     string `json:"color"`
	Tolerance int    `json:"tolerance"`
}

type compiledRule struct {
	color    colorutil.RGB
	radiusSq float64
}

// compile parses every rule up front so that a malformed colour fails before
// any pixel work starts.
func compile(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		c, err := colorutil.ParseHex(r.Color)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		compiled = append(compiled, compiledRule{
			color:    c,
			radiusSq: colorutil.ToleranceRadiusSquared(r.Tolerance),
		})
	}
	return compiled, nil
}

// Validate checks every rule in both lists without touching any raster.
func Validate(keep, remove []Rule) error {
	if _, err := compile(keep); err != nil {
		return fmt.Errorf("keep %w", err)
	}
	if _, err := compile(remove); err != nil {
		return fmt.Errorf("remove %w", err)
	}
	return nil
}

// Apply returns a copy of src with the keep/remove rules applied.
//
// Pixels matching any remove rule become transparent. When keep rules exist,
// surviving pixels must match at least one keep rule or they also become
// transparent; matches are recoloured to the exact keep colour at full
// opacity. With no rules at all the result is an exact copy.
func Apply(src *image.RGBA, keep, remove []Rule) (*image.RGBA, error) {
	keepRules, err := compile(keep)
	if err != nil {
		return nil, fmt.Errorf("keep %w", err)
	}
	removeRules, err := compile(remove)
	if err != nil {
		return nil, fmt.Errorf("remove %w", err)
	}

	dst := img.Clone(src)
	if len(keepRules) == 0 && len(removeRules) == 0 {
		return dst, nil
	}

	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i+3] == 0 {
			continue
		}
		r := float64(dst.Pix[i+0])
		g := float64(dst.Pix[i+1])
		b := float64(dst.Pix[i+2])

		removed := false
		for _, rule := range removeRules {
			if colorutil.DistanceSquared(r, g, b, rule.color) <= rule.radiusSq {
				dst.Pix[i+3] = 0
				removed = true
				break
			}
		}
		if removed || len(keepRules) == 0 {
			continue
		}

		// Later keep rules overwrite earlier matches, so the last matching
		// rule decides the recolour.
		matched := -1
		for k, rule := range keepRules {
			if colorutil.DistanceSquared(r, g, b, rule.color) <= rule.radiusSq {
				matched = k
			}
		}
		if matched < 0 {
			dst.Pix[i+3] = 0
			continue
		}
		c := keepRules[matched].color
		dst.Pix[i+0] = uint8(c[0])
		dst.Pix[i+1] = uint8(c[1])
		dst.Pix[i+2] = uint8(c[2])
		dst.Pix[i+3] = 255
	}
	return dst, nil
}
