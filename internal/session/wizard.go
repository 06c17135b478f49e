package session

import (
	"fmt"

	"github.com/gregleeform/landviewer/internal/align"
	"github.com/gregleeform/landviewer/pkg/geometry"
)

// StartAutoPin begins a guided pinning round, replacing any round already
// in progress. Manual points are untouched until the round completes.
func (s *Session) StartAutoPin() {
	s.mu.Lock()
	s.wizard = align.NewPinWizard()
	s.mu.Unlock()
	s.notify(Update{Kind: UpdateWizard, Step: 0})
}

// AutoPinActive reports whether a pinning round is collecting clicks.
func (s *Session) AutoPinActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizard != nil && s.wizard.Phase() != align.PhaseComplete
}

// AutoPinStep returns the zero-based click index of the active round, or
// -1 when no round is collecting clicks.
func (s *Session) AutoPinStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wizard == nil || s.wizard.Phase() == align.PhaseComplete {
		return -1
	}
	return s.wizard.Step()
}

// CancelAutoPin abandons the active round, keeping the manual points as
// they were.
func (s *Session) CancelAutoPin() {
	s.mu.Lock()
	s.wizard = nil
	s.mu.Unlock()
	s.notify(Update{Kind: UpdateWizard, Step: -1})
}

// AutoPinClick records one wizard click. On the eighth click the
// correspondence is solved and, when non-degenerate, the projected overlay
// corners replace the manual points with constrained dragging disabled.
// A degenerate click set abandons the round and leaves the points alone.
func (s *Session) AutoPinClick(p geometry.Point2D) error {
	s.mu.Lock()
	if s.wizard == nil {
		s.mu.Unlock()
		return fmt.Errorf("no pinning round in progress")
	}
	if err := s.wizard.Click(p); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.wizard.Phase() != align.PhaseComplete {
		step := s.wizard.Step()
		s.mu.Unlock()
		s.notify(Update{Kind: UpdateWizard, Step: step})
		return nil
	}

	corners, err := s.wizard.Solve(s.overlaySizeLocked())
	if err != nil {
		s.wizard = nil
		s.mu.Unlock()
		s.log.Warn("auto-pin solve failed", "err", err)
		s.notify(Update{Kind: UpdateFailure, Err: err})
		return err
	}
	s.points = corners
	s.constrained = false
	s.mu.Unlock()

	s.notify(Update{Kind: UpdatePoints, Points: corners})
	return nil
}

// AdjustAutoPin moves one destination click of a completed round and
// re-solves. A move that would degenerate the correspondence is rejected
// and the previous solution stays in effect.
func (s *Session) AdjustAutoPin(index int, p geometry.Point2D) error {
	s.mu.Lock()
	if s.wizard == nil {
		s.mu.Unlock()
		return fmt.Errorf("no completed pinning round to adjust")
	}
	corners, err := s.wizard.AdjustDestination(index, p, s.overlaySizeLocked())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.points = corners
	s.mu.Unlock()

	s.notify(Update{Kind: UpdatePoints, Points: corners})
	return nil
}
