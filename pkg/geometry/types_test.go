package geometry

import (
	"math"
	"testing"
)

func TestQuadIsNonDegenerate(t *testing.T) {
	tests := []struct {
		name string
		q    Quad
		want bool
	}{
		{"unit rect quad", RectQuad(100, 50), true},
		{"skewed quad", Quad{{0, 0}, {90, 10}, {100, 100}, {5, 80}}, true},
		{"tiny but real", Quad{{0, 0}, {2, 0}, {2, 2}, {0, 2}}, true},
		{"all coincident", Quad{{5, 5}, {5, 5}, {5, 5}, {5, 5}}, false},
		{"two distinct points", Quad{{0, 0}, {10, 0}, {10, 0}, {0, 0}}, false},
		{"three distinct collinear", Quad{{0, 0}, {5, 5}, {10, 10}, {0, 0}}, false},
		{"four collinear", Quad{{0, 0}, {3, 3}, {6, 6}, {9, 9}}, false},
		{"sub-pixel sliver", Quad{{0, 0}, {100, 0}, {100, 0.005}, {0, 0.005}}, false},
		{"counter-clockwise still valid", Quad{{0, 0}, {0, 10}, {10, 10}, {10, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.IsNonDegenerate(); got != tt.want {
				t.Errorf("IsNonDegenerate() = %v, want %v (area %v)", got, tt.want, tt.q.Area())
			}
		})
	}
}

func TestQuadArea(t *testing.T) {
	q := RectQuad(10, 20)
	if got := q.Area(); math.Abs(got-200) > 1e-9 {
		t.Errorf("Area() = %v, want 200", got)
	}
	// Reversing the winding flips the sign.
	rev := Quad{q[3], q[2], q[1], q[0]}
	if got := rev.Area(); math.Abs(got+200) > 1e-9 {
		t.Errorf("reversed Area() = %v, want -200", got)
	}
}

func TestClampToRect(t *testing.T) {
	r := NewRect(0, 0, 100, 60)
	tests := []struct {
		name string
		p    Point2D
		want Point2D
	}{
		{"inside unchanged", Point2D{30, 40}, Point2D{30, 40}},
		{"left of rect", Point2D{-10, 20}, Point2D{0, 20}},
		{"past both edges", Point2D{250, 99}, Point2D{100, 60}},
		{"above rect", Point2D{50, -5}, Point2D{50, 0}},
		{"corner snap", Point2D{-1, -1}, Point2D{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.ClampToRect(r); got != tt.want {
				t.Errorf("ClampToRect(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestQuadCentroid(t *testing.T) {
	q := RectQuad(100, 40)
	got := q.Centroid()
	if got.X != 50 || got.Y != 20 {
		t.Errorf("Centroid() = %v, want (50, 20)", got)
	}
}

func TestQuadIsFinite(t *testing.T) {
	q := RectQuad(10, 10)
	if !q.IsFinite() {
		t.Error("rect quad should be finite")
	}
	q[2].X = math.NaN()
	if q.IsFinite() {
		t.Error("quad with NaN corner should not be finite")
	}
	q[2].X = math.Inf(1)
	if q.IsFinite() {
		t.Error("quad with Inf corner should not be finite")
	}
}

func TestBoundingBox(t *testing.T) {
	pts := []Point2D{{3, 7}, {-2, 4}, {10, -1}}
	box := BoundingBox(pts)
	want := Rect{X: -2, Y: -1, Width: 12, Height: 8}
	if box != want {
		t.Errorf("BoundingBox() = %v, want %v", box, want)
	}
	if got := BoundingBox(nil); got != (Rect{}) {
		t.Errorf("BoundingBox(nil) = %v, want zero rect", got)
	}
}
