// Package align computes the projective transform between the cadastral
// overlay and the field photo, warps the overlay into the photo's frame,
// and drives the guided auto-pinning wizard.
package align

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gregleeform/landviewer/pkg/geometry"
)

// ErrDegenerate reports a correspondence that admits no usable projective
// transform (collapsed quad, singular system, or non-finite solution).
var ErrDegenerate = errors.New("degenerate correspondence")

// Homography is a 3x3 projective transform in row-major order with the
// bottom-right element normalised to 1.
type Homography [9]float64

// SolveHomography solves the unique projective transform mapping the four
// source points onto the four destination points. Exactly four
// correspondences pin all eight degrees of freedom, so this is a direct
// 8x8 solve rather than a least-squares fit.
func SolveHomography(src, dst geometry.Quad) (Homography, error) {
	if !src.IsNonDegenerate() || !dst.IsNonDegenerate() {
		return Homography{}, fmt.Errorf("%w: quad area below threshold", ErrDegenerate)
	}

	// Each correspondence (x,y) -> (u,v) contributes two rows:
	//   u = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
	//   v = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -u*x)
		A.Set(i*2, 7, -u*y)
		b.SetVec(i*2, u)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -v*x)
		A.Set(i*2+1, 7, -v*y)
		b.SetVec(i*2+1, v)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(A, b); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	var h Homography
	for i := 0; i < 8; i++ {
		v := sol.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Homography{}, fmt.Errorf("%w: non-finite solution", ErrDegenerate)
		}
		h[i] = v
	}
	h[8] = 1
	return h, nil
}

// Apply maps a point through the transform. The second return value is
// false when the point lies on the transform's vanishing line, where the
// projective division blows up.
func (h Homography) Apply(p geometry.Point2D) (geometry.Point2D, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return geometry.Point2D{}, false
	}
	out := geometry.Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
	return out, out.IsFinite()
}

// ProjectQuad maps all four corners of a quad through the transform.
// Any corner on the vanishing line or projecting to non-finite
// coordinates yields ErrDegenerate.
func (h Homography) ProjectQuad(q geometry.Quad) (geometry.Quad, error) {
	var out geometry.Quad
	for i, p := range q {
		mapped, ok := h.Apply(p)
		if !ok {
			return geometry.Quad{}, fmt.Errorf("%w: corner %d projects to infinity", ErrDegenerate, i)
		}
		out[i] = mapped
	}
	return out, nil
}
