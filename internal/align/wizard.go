package align

import (
	"errors"
	"fmt"

	"github.com/gregleeform/landviewer/pkg/geometry"
)

// Wizard click order, one source/destination pair per corner.
const pinPairs = 4

// ErrWizardState reports a wizard operation attempted in the wrong phase.
var ErrWizardState = errors.New("auto-pin wizard: invalid state")

// Phase identifies what the auto-pin wizard is waiting for.
type Phase int

const (
	// PhaseAwaitingSource means the next click belongs on the overlay preview.
	PhaseAwaitingSource Phase = iota
	// PhaseAwaitingDestination means the next click belongs on the photo.
	PhaseAwaitingDestination
	// PhaseComplete means all four pairs are collected and the wizard can solve.
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingSource:
		return "awaiting source"
	case PhaseAwaitingDestination:
		return "awaiting destination"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// PinWizard collects four alternating source/destination click pairs in a
// fixed corner order (top-left, top-right, bottom-right, bottom-left) and
// solves the correspondence into an equivalent corner-to-corner warp.
//
// The phase plus pair index make illegal states unrepresentable: there is
// no separate step counter to fall out of sync.
type PinWizard struct {
	phase Phase
	pair  int
	src   geometry.Quad
	dst   geometry.Quad
}

// NewPinWizard starts a wizard awaiting the first source click.
func NewPinWizard() *PinWizard {
	return &PinWizard{phase: PhaseAwaitingSource}
}

// Phase returns the wizard's current phase.
func (w *PinWizard) Phase() Phase { return w.phase }

// Step returns the 0..7 click counter the caller can use for progress
// markers: even steps await a source click, odd steps a destination click,
// 8 means complete.
func (w *PinWizard) Step() int {
	switch w.phase {
	case PhaseAwaitingSource:
		return w.pair * 2
	case PhaseAwaitingDestination:
		return w.pair*2 + 1
	default:
		return pinPairs * 2
	}
}

// Click records the next point in the alternating sequence. Source clicks
// are in overlay pixel space, destination clicks in photo pixel space.
func (w *PinWizard) Click(p geometry.Point2D) error {
	switch w.phase {
	case PhaseAwaitingSource:
		w.src[w.pair] = p
		w.phase = PhaseAwaitingDestination
	case PhaseAwaitingDestination:
		w.dst[w.pair] = p
		w.pair++
		if w.pair == pinPairs {
			w.phase = PhaseComplete
		} else {
			w.phase = PhaseAwaitingSource
		}
	default:
		return fmt.Errorf("%w: wizard already complete", ErrWizardState)
	}
	return nil
}

// SourceClicks returns the collected overlay-space clicks.
func (w *PinWizard) SourceClicks() geometry.Quad { return w.src }

// DestinationClicks returns the collected photo-space clicks. After
// completion these remain editable as auto-adjust handles.
func (w *PinWizard) DestinationClicks() geometry.Quad { return w.dst }

// Solve computes the homography mapping the clicked source points onto the
// clicked destination points and projects the overlay's actual corner quad
// through it, yielding the manual correspondence that reproduces the
// clicked alignment as a corner-to-corner warp. The projected corners may
// legitimately fall outside the photo canvas.
func (w *PinWizard) Solve(overlaySize geometry.Size) (geometry.Quad, error) {
	if w.phase != PhaseComplete {
		return geometry.Quad{}, fmt.Errorf("%w: %d of %d pairs collected", ErrWizardState, w.pair, pinPairs)
	}
	h, err := SolveHomography(w.src, w.dst)
	if err != nil {
		return geometry.Quad{}, err
	}
	corners, err := h.ProjectQuad(geometry.RectQuad(overlaySize.Width, overlaySize.Height))
	if err != nil {
		return geometry.Quad{}, err
	}
	return corners, nil
}

// AdjustDestination moves one of the four destination clicks after
// completion and re-solves. A failed re-solve leaves the stored clicks at
// their previous positions.
func (w *PinWizard) AdjustDestination(index int, p geometry.Point2D, overlaySize geometry.Size) (geometry.Quad, error) {
	if w.phase != PhaseComplete {
		return geometry.Quad{}, fmt.Errorf("%w: cannot adjust before completion", ErrWizardState)
	}
	if index < 0 || index >= pinPairs {
		return geometry.Quad{}, fmt.Errorf("%w: handle index %d", ErrWizardState, index)
	}

	prev := w.dst[index]
	w.dst[index] = p
	corners, err := w.Solve(overlaySize)
	if err != nil {
		w.dst[index] = prev
		return geometry.Quad{}, err
	}
	return corners, nil
}
