package session

import (
	"fmt"

	"github.com/gregleeform/landviewer/pkg/geometry"
)

// UpdateKind distinguishes the session events delivered to subscribers.
type UpdateKind int

const (
	// UpdatePoints reports a change to the correspondence quad.
	UpdatePoints UpdateKind = iota
	// UpdateOverlay reports that the effective overlay raster changed and
	// the display should re-render.
	UpdateOverlay
	// UpdateWizard reports auto-pin progress: a click was recorded or the
	// round was started or abandoned. Step carries the next click index.
	UpdateWizard
	// UpdateFailure reports a background failure that left previous state
	// in effect.
	UpdateFailure
)

// Update is one session event. Points is set for UpdatePoints, Step for
// UpdateWizard, Err for UpdateFailure.
type Update struct {
	Kind   UpdateKind
	Points geometry.Quad
	Step   int
	Err    error
}

// Subscribe returns a channel of session events. The channel is buffered;
// a subscriber that falls behind misses events rather than blocking the
// session. Close closes all subscriber channels.
func (s *Session) Subscribe() <-chan Update {
	ch := make(chan Update, 16)
	s.mu.Lock()
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch
	}
	s.subs[s.nextSub] = ch
	s.nextSub++
	s.mu.Unlock()
	return ch
}

func (s *Session) notify(u Update) {
	s.mu.Lock()
	targets := make([]chan Update, 0, len(s.subs))
	for _, ch := range s.subs {
		targets = append(targets, ch)
	}
	s.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- u:
		default:
		}
	}
}

func errInvalidHandle(index int) error {
	return fmt.Errorf("handle index %d out of range [0, 3]", index)
}
