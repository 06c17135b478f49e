package session

import (
	"context"
	goimage "image"

	"github.com/gregleeform/landviewer/internal/colorfilter"
	"github.com/gregleeform/landviewer/internal/image"
)

// filterRequest carries one filtering job to the background worker. The
// source raster is a snapshot taken at submit time so the worker never
// touches session-owned memory.
type filterRequest struct {
	token  uint64
	src    *goimage.RGBA
	keep   []colorfilter.Rule
	remove []colorfilter.Rule
}

type filterResult struct {
	token uint64
	img   *goimage.RGBA
	err   error
}

// Filters returns the active keep and remove rule sets.
func (s *Session) Filters() (keep, remove []colorfilter.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]colorfilter.Rule(nil), s.keepRules...),
		append([]colorfilter.Rule(nil), s.removeRules...)
}

// SetFilters replaces the colour filter rule sets. Rules are validated
// synchronously; the filtering itself runs on the background worker and a
// later call supersedes any run still in flight. Clearing both sets drops
// back to the unfiltered overlay immediately.
func (s *Session) SetFilters(keep, remove []colorfilter.Rule) error {
	if err := colorfilter.Validate(keep, remove); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.keepRules = append([]colorfilter.Rule(nil), keep...)
	s.removeRules = append([]colorfilter.Rule(nil), remove...)

	if len(keep) == 0 && len(remove) == 0 {
		s.latestToken++ // invalidates any run still in flight
		s.filtered = nil
		s.version++
		s.mu.Unlock()
		s.notify(Update{Kind: UpdateOverlay})
		return nil
	}

	s.submitFilterLocked()
	s.mu.Unlock()
	return nil
}

// submitFilterLocked queues a filter run for the current overlay and rule
// sets. The request channel holds at most one pending job; a queued job
// that was never picked up gets displaced rather than processed.
func (s *Session) submitFilterLocked() {
	s.latestToken++
	req := filterRequest{
		token:  s.latestToken,
		src:    image.Clone(s.overlay),
		keep:   append([]colorfilter.Rule(nil), s.keepRules...),
		remove: append([]colorfilter.Rule(nil), s.removeRules...),
	}
	for {
		select {
		case s.requests <- req:
			return
		default:
		}
		select {
		case <-s.requests: // displace the superseded pending job
		default:
		}
	}
}

func (s *Session) filterWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			out, err := colorfilter.Apply(req.src, req.keep, req.remove)
			s.applyFilterResult(filterResult{token: req.token, img: out, err: err})
		}
	}
}

// applyFilterResult commits a worker result unless a newer request has
// been issued since it was submitted. Failed runs keep the previous good
// output so the display never regresses to a half-applied state.
func (s *Session) applyFilterResult(res filterResult) {
	s.mu.Lock()
	if s.closed || res.token != s.latestToken {
		s.mu.Unlock()
		return
	}
	if res.err != nil {
		s.mu.Unlock()
		s.log.Warn("colour filter failed, keeping previous output", "err", res.err)
		s.notify(Update{Kind: UpdateFailure, Err: res.err})
		return
	}
	s.filtered = res.img
	s.version++
	s.mu.Unlock()
	s.notify(Update{Kind: UpdateOverlay})
}
