// Package session orchestrates the alignment engines against per-session
// state: crop and rotation of the cadastral overlay, colour filter rules,
// line-uniformity strength, correspondence points, and the auto-pin wizard.
//
// All state is owned by the Session and mutated only through its methods.
// Colour filtering runs on a dedicated background worker with
// last-request-wins semantics; everything else is cheap enough to run
// synchronously on the caller's goroutine.
package session

import (
	"context"
	"errors"
	goimage "image"
	"log/slog"
	"sync"

	"github.com/gregleeform/landviewer/internal/align"
	"github.com/gregleeform/landviewer/internal/colorfilter"
	"github.com/gregleeform/landviewer/internal/image"
	"github.com/gregleeform/landviewer/internal/lineart"
	"github.com/gregleeform/landviewer/pkg/geometry"
)

// Default overlay settings, matching a fresh editing session.
const (
	DefaultOpacity = 0.65
)

// ErrClosed reports use of a session after Close.
var ErrClosed = errors.New("session closed")

// Session holds one overlay-alignment editing session.
type Session struct {
	mu  sync.Mutex
	log *slog.Logger

	photo     *goimage.RGBA
	cadastral *goimage.RGBA // as uploaded, before rotation

	rotation float64
	rotated  *goimage.RGBA // cadastral with rotation applied
	crop     *image.CropRegion
	overlay  *goimage.RGBA // rotated + cropped, before colour filtering

	keepRules   []colorfilter.Rule
	removeRules []colorfilter.Rule
	filtered    *goimage.RGBA // last good filter output; nil = unfiltered

	showOverlay bool
	opacity     float64
	strength    float64

	points      geometry.Quad
	constrained bool // clamp handle drags to the photo bounds
	wizard      *align.PinWizard

	// version counts effective-overlay raster changes; the sketch cache is
	// validated against it before reuse.
	version       uint64
	sketch        *lineart.Sketch
	sketchVersion uint64

	latestToken uint64
	requests    chan filterRequest
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closed      bool

	subs    map[int]chan Update
	nextSub int
}

// New creates a session for the given photo and cadastral overlay. Both
// rasters are copied; the session never aliases caller memory. The logger
// may be nil, in which case slog.Default() is used.
func New(photo, cadastral *goimage.RGBA, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		log:         logger,
		photo:       image.Clone(photo),
		cadastral:   image.Clone(cadastral),
		showOverlay: true,
		opacity:     DefaultOpacity,
		constrained: true,
		requests:    make(chan filterRequest, 1),
		cancel:      cancel,
		subs:        make(map[int]chan Update),
	}
	s.rotated = image.Clone(s.cadastral)
	s.overlay = s.rotated
	s.points = align.DefaultPoints(s.overlaySizeLocked(), s.photoSizeLocked())

	s.wg.Add(1)
	go s.filterWorker(ctx)
	return s
}

// Close drains the background filter worker and releases subscribers.
// The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

// Photo returns a copy of the session's photo raster.
func (s *Session) Photo() *goimage.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return image.Clone(s.photo)
}

// Rotation returns the current overlay rotation in degrees.
func (s *Session) Rotation() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotation
}

// SetRotation re-rotates the cadastral image. Any committed crop is
// invalidated because crop coordinates are relative to the rotated frame,
// and the correspondence points reset to their defaults.
func (s *Session) SetRotation(degrees float64) {
	s.mu.Lock()
	if degrees == s.rotation && s.crop == nil {
		s.mu.Unlock()
		return
	}
	s.rotation = degrees
	s.rotated = image.Rotate(s.cadastral, degrees)
	s.crop = nil
	s.overlay = s.rotated
	s.overlayChangedLocked()
	s.resetPointsLocked()
	s.mu.Unlock()

	s.notify(Update{Kind: UpdateOverlay})
	s.notify(Update{Kind: UpdatePoints, Points: s.Points()})
}

// Crop returns the committed crop region, if any.
func (s *Session) Crop() (image.CropRegion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crop == nil {
		return image.CropRegion{}, false
	}
	return *s.crop, true
}

// SetCrop commits a crop region against the rotated cadastral image and
// resets the correspondence points for the new overlay dimensions.
func (s *Session) SetCrop(region image.CropRegion) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	cropped, err := image.Crop(s.rotated, region)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.crop = &region
	s.overlay = cropped
	s.overlayChangedLocked()
	s.resetPointsLocked()
	s.mu.Unlock()

	s.notify(Update{Kind: UpdateOverlay})
	s.notify(Update{Kind: UpdatePoints, Points: s.Points()})
	return nil
}

// SetVisible toggles overlay rendering.
func (s *Session) SetVisible(visible bool) {
	s.mu.Lock()
	s.showOverlay = visible
	s.mu.Unlock()
}

// SetOpacity sets the overlay opacity, clamped to [0, 1].
func (s *Session) SetOpacity(opacity float64) {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	s.mu.Lock()
	s.opacity = opacity
	s.mu.Unlock()
}

// Opacity returns the current overlay opacity.
func (s *Session) Opacity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opacity
}

// SetStrength sets the line-uniformity strength, clamped to [0, 1].
// Strength changes reuse the cached sketch; only overlay changes rebuild it.
func (s *Session) SetStrength(strength float64) {
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	s.mu.Lock()
	s.strength = strength
	s.mu.Unlock()
}

// Points returns the current manual correspondence quad.
func (s *Session) Points() geometry.Quad {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points
}

// SetPoints replaces the whole correspondence quad, e.g. when restoring a
// previously edited alignment.
func (s *Session) SetPoints(q geometry.Quad) {
	s.mu.Lock()
	s.points = q
	s.mu.Unlock()
	s.notify(Update{Kind: UpdatePoints, Points: q})
}

// UpdatePoint moves a single destination handle. While the session is in
// constrained mode the position is clamped to the photo bounds; after
// auto-pinning, handles float freely since projected corners may land
// outside the canvas.
func (s *Session) UpdatePoint(index int, p geometry.Point2D) error {
	if index < 0 || index > 3 {
		return errInvalidHandle(index)
	}
	s.mu.Lock()
	if s.constrained {
		ps := s.photoSizeLocked()
		p = p.ClampToRect(geometry.NewRect(0, 0, ps.Width, ps.Height))
	}
	s.points[index] = p
	q := s.points
	s.mu.Unlock()

	s.notify(Update{Kind: UpdatePoints, Points: q})
	return nil
}

// ResetPoints restores the default handle placement and re-enables
// constrained dragging.
func (s *Session) ResetPoints() {
	s.mu.Lock()
	s.resetPointsLocked()
	q := s.points
	s.mu.Unlock()
	s.notify(Update{Kind: UpdatePoints, Points: q})
}

func (s *Session) resetPointsLocked() {
	s.points = align.DefaultPoints(s.overlaySizeLocked(), s.photoSizeLocked())
	s.constrained = true
	s.wizard = nil
}

// overlayChangedLocked records that the effective overlay raster was
// replaced: the cached sketch is stale and any filter output no longer
// matches, so filtering restarts against the new raster.
func (s *Session) overlayChangedLocked() {
	s.filtered = nil
	s.version++
	if len(s.keepRules) > 0 || len(s.removeRules) > 0 {
		s.submitFilterLocked()
	}
}

func (s *Session) overlaySizeLocked() geometry.Size {
	b := s.overlay.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

func (s *Session) photoSizeLocked() geometry.Size {
	b := s.photo.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

// effectiveOverlayLocked is the raster the warp consumes: the last good
// filter output when rules are active, the plain overlay otherwise.
func (s *Session) effectiveOverlayLocked() *goimage.RGBA {
	if s.filtered != nil {
		return s.filtered
	}
	return s.overlay
}

// Render composites the current state into a display raster sized to the
// photo. Geometric degeneracy and warp failures suppress the overlay and
// fall back to the bare photo; they never raise.
func (s *Session) Render() *goimage.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.showOverlay {
		return image.Clone(s.photo)
	}
	if !s.points.IsFinite() || !s.points.IsNonDegenerate() {
		s.log.Warn("overlay hidden: degenerate correspondence", "points", s.points)
		return image.Clone(s.photo)
	}

	effective := s.effectiveOverlayLocked()
	if s.strength > 0 {
		if s.sketch == nil || s.sketchVersion != s.version {
			s.sketch = lineart.PrepareSketch(effective)
			s.sketchVersion = s.version
		}
		effective = lineart.Render(effective, s.sketch, s.strength)
	}

	pb := s.photo.Bounds()
	warped, err := align.Warp(effective, s.points, pb.Dx(), pb.Dy())
	if err != nil {
		s.log.Warn("overlay hidden: warp failed", "err", err)
		return image.Clone(s.photo)
	}
	if s.opacity < 1 {
		warped = image.ScaleAlpha(warped, s.opacity)
	}
	return image.CompositeOver(s.photo, warped)
}
