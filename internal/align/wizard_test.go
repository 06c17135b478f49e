package align

import (
	"errors"
	"testing"

	"github.com/gregleeform/landviewer/pkg/geometry"
)

func completeWizard(t *testing.T, src, dst geometry.Quad) *PinWizard {
	t.Helper()
	w := NewPinWizard()
	for i := 0; i < 4; i++ {
		if err := w.Click(src[i]); err != nil {
			t.Fatalf("source click %d: %v", i, err)
		}
		if err := w.Click(dst[i]); err != nil {
			t.Fatalf("destination click %d: %v", i, err)
		}
	}
	return w
}

func TestWizardPhaseSequence(t *testing.T) {
	w := NewPinWizard()
	if w.Phase() != PhaseAwaitingSource || w.Step() != 0 {
		t.Fatalf("fresh wizard: phase %v step %d", w.Phase(), w.Step())
	}

	for pair := 0; pair < 4; pair++ {
		if w.Phase() != PhaseAwaitingSource {
			t.Fatalf("pair %d: phase %v, want awaiting source", pair, w.Phase())
		}
		if w.Step() != pair*2 {
			t.Fatalf("pair %d: step %d, want %d", pair, w.Step(), pair*2)
		}
		if err := w.Click(geometry.Point2D{X: float64(pair), Y: 0}); err != nil {
			t.Fatal(err)
		}
		if w.Phase() != PhaseAwaitingDestination || w.Step() != pair*2+1 {
			t.Fatalf("pair %d after source click: phase %v step %d", pair, w.Phase(), w.Step())
		}
		if err := w.Click(geometry.Point2D{X: float64(pair), Y: 100}); err != nil {
			t.Fatal(err)
		}
	}

	if w.Phase() != PhaseComplete || w.Step() != 8 {
		t.Fatalf("after 8 clicks: phase %v step %d, want complete/8", w.Phase(), w.Step())
	}
	if err := w.Click(geometry.Point2D{}); !errors.Is(err, ErrWizardState) {
		t.Errorf("click after completion: error = %v, want ErrWizardState", err)
	}
}

func TestWizardSolveBeforeCompletion(t *testing.T) {
	w := NewPinWizard()
	_ = w.Click(geometry.Point2D{X: 1, Y: 2})
	if _, err := w.Solve(geometry.NewSize(100, 100)); !errors.Is(err, ErrWizardState) {
		t.Errorf("premature solve: error = %v, want ErrWizardState", err)
	}
}

// The two-stage pipeline (solve clicked correspondences, then project the
// overlay corners) must be mathematically equivalent to warping directly by
// the clicked correspondences.
func TestWizardSolveEquivalentToDirectHomography(t *testing.T) {
	overlay := geometry.NewSize(200, 150)
	// Clicks at arbitrary interior positions, not the overlay corners.
	srcClicks := geometry.Quad{{X: 20, Y: 15}, {X: 170, Y: 25}, {X: 180, Y: 130}, {X: 35, Y: 120}}
	dstClicks := geometry.Quad{{X: 310, Y: 140}, {X: 520, Y: 160}, {X: 505, Y: 330}, {X: 300, Y: 310}}

	w := completeWizard(t, srcClicks, dstClicks)
	corners, err := w.Solve(overlay)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	direct, err := SolveHomography(srcClicks, dstClicks)
	if err != nil {
		t.Fatalf("SolveHomography: %v", err)
	}
	derived, err := SolveHomography(geometry.RectQuad(overlay.Width, overlay.Height), corners)
	if err != nil {
		t.Fatalf("derived SolveHomography: %v", err)
	}

	centre := geometry.Point2D{X: overlay.Width / 2, Y: overlay.Height / 2}
	wantCentre, ok1 := direct.Apply(centre)
	gotCentre, ok2 := derived.Apply(centre)
	if !ok1 || !ok2 {
		t.Fatal("centre projects to infinity")
	}
	if !almostEqual(gotCentre, wantCentre, 1e-6) {
		t.Errorf("derived centre %v, direct centre %v", gotCentre, wantCentre)
	}

	// The equivalence holds across the whole overlay, not just the centre.
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 60, Y: 90}, {X: 199, Y: 149}} {
		want, ok1 := direct.Apply(p)
		got, ok2 := derived.Apply(p)
		if !ok1 || !ok2 || !almostEqual(got, want, 1e-5) {
			t.Errorf("point %v: derived %v, direct %v", p, got, want)
		}
	}
}

func TestWizardSolveDegenerateClicks(t *testing.T) {
	// All destination clicks collinear: no valid transform.
	srcClicks := geometry.Quad{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 90, Y: 90}, {X: 10, Y: 90}}
	dstClicks := geometry.Quad{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}}
	w := completeWizard(t, srcClicks, dstClicks)
	if _, err := w.Solve(geometry.NewSize(100, 100)); !errors.Is(err, ErrDegenerate) {
		t.Errorf("error = %v, want ErrDegenerate", err)
	}
}

func TestWizardAdjustDestination(t *testing.T) {
	overlay := geometry.NewSize(100, 100)
	srcClicks := geometry.RectQuad(100, 100)
	dstClicks := geometry.Quad{{X: 50, Y: 50}, {X: 150, Y: 50}, {X: 150, Y: 150}, {X: 50, Y: 150}}
	w := completeWizard(t, srcClicks, dstClicks)

	if _, err := w.Solve(overlay); err != nil {
		t.Fatalf("Solve: %v", err)
	}

	moved, err := w.AdjustDestination(1, geometry.Point2D{X: 170, Y: 40}, overlay)
	if err != nil {
		t.Fatalf("AdjustDestination: %v", err)
	}
	if !almostEqual(moved[1], geometry.Point2D{X: 170, Y: 40}, 1e-6) {
		t.Errorf("adjusted corner = %v, want the new handle position", moved[1])
	}
	if got := w.DestinationClicks()[1]; !almostEqual(got, geometry.Point2D{X: 170, Y: 40}, 0) {
		t.Errorf("stored destination click = %v, want updated", got)
	}

	// A degenerate adjustment reverts the stored click.
	if _, err := w.AdjustDestination(1, geometry.Point2D{X: 50, Y: 50}, overlay); !errors.Is(err, ErrDegenerate) {
		t.Fatalf("degenerate adjust error = %v, want ErrDegenerate", err)
	}
	if got := w.DestinationClicks()[1]; !almostEqual(got, geometry.Point2D{X: 170, Y: 40}, 0) {
		t.Errorf("failed adjust must revert, got %v", got)
	}
}

func TestWizardAdjustBounds(t *testing.T) {
	w := NewPinWizard()
	if _, err := w.AdjustDestination(0, geometry.Point2D{}, geometry.NewSize(10, 10)); !errors.Is(err, ErrWizardState) {
		t.Errorf("adjust before completion: error = %v, want ErrWizardState", err)
	}
}
