// Package lineart rebuilds overlay linework at a uniform stroke thickness.
//
// A Sketch is derived once per overlay raster: a morphological skeleton of
// the alpha mask, plus an exact Euclidean distance field that records, for
// every pixel, which skeleton pixel is nearest. Rendering then paints a
// stroke of the requested radius around the skeleton by sampling colours
// from the nearest skeleton pixels.
package lineart

import (
	"image"
	"math"
)

// Sketch caches distance and label data derived from one overlay raster.
type Sketch struct {
	width  int
	height int

	// dist holds the Euclidean distance to the nearest skeleton pixel.
	dist []float32
	// label holds the 1-based flat index of that nearest skeleton pixel;
	// 0 means no skeleton pixel exists anywhere in the image.
	label []int32
	// skeleton is the binary skeleton mask (255 = skeleton).
	skeleton []uint8
}

// Size returns the sketch dimensions in pixels.
func (s *Sketch) Size() (width, height int) {
	return s.width, s.height
}

// SkeletonAt reports whether the pixel is part of the skeleton mask.
func (s *Sketch) SkeletonAt(x, y int) bool {
	return s.skeleton[y*s.width+x] != 0
}

// DistanceAt returns the distance from the pixel to the nearest skeleton pixel.
func (s *Sketch) DistanceAt(x, y int) float64 {
	return float64(s.dist[y*s.width+x])
}

// PrepareSketch derives a Sketch from an overlay raster's alpha channel.
// Returns nil when the overlay has no opaque pixels. If skeletonisation
// collapses the mask entirely, the original binary mask is used as the
// skeleton so rendering always has data to work with.
func PrepareSketch(src *image.RGBA) *Sketch {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	mask := make([]uint8, w*h)
	opaque := false
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)+3] > 0 {
				mask[y*w+x] = 255
				opaque = true
			}
		}
	}
	if !opaque {
		return nil
	}

	skeleton := morphologicalSkeleton(mask, w, h)
	empty := true
	for _, v := range skeleton {
		if v != 0 {
			empty = false
			break
		}
	}
	if empty {
		skeleton = mask
	}

	dist, label := distanceTransform(skeleton, w, h)
	return &Sketch{
		width:    w,
		height:   h,
		dist:     dist,
		label:    label,
		skeleton: skeleton,
	}
}

// morphologicalSkeleton thins the binary mask by iterative opening: each
// round collects the pixels the opening strips away, then erodes and
// repeats until nothing is left. A 3x3 cross is the structuring element.
func morphologicalSkeleton(mask []uint8, w, h int) []uint8 {
	skeleton := make([]uint8, w*h)
	eroded := make([]uint8, w*h)
	copy(eroded, mask)

	tmp := make([]uint8, w*h)
	opened := make([]uint8, w*h)

	for {
		erodeCross(eroded, tmp, w, h)
		dilateCross(tmp, opened, w, h)

		any := false
		for i := range eroded {
			if eroded[i] != 0 && opened[i] == 0 {
				skeleton[i] = 255
			}
			if tmp[i] != 0 {
				any = true
			}
		}

		eroded, tmp = tmp, eroded
		if !any {
			return skeleton
		}
	}
}

// erodeCross erodes with a 3x3 cross. Out-of-bounds neighbours count as
// foreground so border strokes are not eaten from the outside.
func erodeCross(src, dst []uint8, w, h int) {
	at := func(x, y int) uint8 {
		if x < 0 || x >= w || y < 0 || y >= h {
			return 255
		}
		return src[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src[y*w+x] != 0 &&
				at(x-1, y) != 0 && at(x+1, y) != 0 &&
				at(x, y-1) != 0 && at(x, y+1) != 0 {
				dst[y*w+x] = 255
			} else {
				dst[y*w+x] = 0
			}
		}
	}
}

// dilateCross dilates with a 3x3 cross; out-of-bounds neighbours are empty.
func dilateCross(src, dst []uint8, w, h int) {
	at := func(x, y int) uint8 {
		if x < 0 || x >= w || y < 0 || y >= h {
			return 0
		}
		return src[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src[y*w+x] != 0 ||
				at(x-1, y) != 0 || at(x+1, y) != 0 ||
				at(x, y-1) != 0 || at(x, y+1) != 0 {
				dst[y*w+x] = 255
			} else {
				dst[y*w+x] = 0
			}
		}
	}
}

const infDist = math.MaxFloat32 / 4

// distanceTransform computes the exact Euclidean distance from every pixel
// to the nearest skeleton pixel, along with that pixel's 1-based flat index.
// Felzenszwalb-Huttenlocher two-pass squared distance transform with argmin
// tracking: a column sweep finds the nearest skeleton pixel per column, then
// a row sweep combines columns through a lower envelope of parabolas.
func distanceTransform(skeleton []uint8, w, h int) ([]float32, []int32) {
	colDistSq := make([]float64, w*h)
	colNearestY := make([]int32, w*h)

	for x := 0; x < w; x++ {
		last := -1
		for y := 0; y < h; y++ {
			i := y*w + x
			if skeleton[i] != 0 {
				last = y
			}
			if last < 0 {
				colDistSq[i] = infDist
				colNearestY[i] = -1
			} else {
				d := float64(y - last)
				colDistSq[i] = d * d
				colNearestY[i] = int32(last)
			}
		}
		last = -1
		for y := h - 1; y >= 0; y-- {
			i := y*w + x
			if skeleton[i] != 0 {
				last = y
			}
			if last >= 0 {
				d := float64(last - y)
				if d*d < colDistSq[i] {
					colDistSq[i] = d * d
					colNearestY[i] = int32(last)
				}
			}
		}
	}

	dist := make([]float32, w*h)
	label := make([]int32, w*h)

	sites := make([]int, w)     // column index of each envelope parabola
	bounds := make([]float64, w+1)

	for y := 0; y < h; y++ {
		row := colDistSq[y*w : y*w+w]

		// Build the lower envelope, skipping empty columns.
		k := -1
		for q := 0; q < w; q++ {
			if row[q] >= infDist {
				continue
			}
			fq := row[q] + float64(q)*float64(q)
			for k >= 0 {
				p := sites[k]
				s := (fq - (row[p] + float64(p)*float64(p))) / (2*float64(q) - 2*float64(p))
				if s > bounds[k] {
					bounds[k+1] = s
					break
				}
				k--
			}
			if k < 0 {
				k = 0
				sites[0] = q
				bounds[0] = math.Inf(-1)
				bounds[1] = math.Inf(1)
				continue
			}
			k++
			sites[k] = q
			bounds[k+1] = math.Inf(1)
		}

		if k < 0 {
			// No skeleton pixel reaches this row through any column; can only
			// happen with an empty skeleton, which PrepareSketch rules out.
			for x := 0; x < w; x++ {
				dist[y*w+x] = float32(math.Sqrt(infDist))
				label[y*w+x] = 0
			}
			continue
		}

		j := 0
		for x := 0; x < w; x++ {
			for bounds[j+1] < float64(x) {
				j++
			}
			q := sites[j]
			dx := float64(x - q)
			dSq := dx*dx + row[q]
			dist[y*w+x] = float32(math.Sqrt(dSq))
			label[y*w+x] = colNearestY[y*w+q]*int32(w) + int32(q) + 1
		}
	}

	return dist, label
}
