package session

import (
	goimage "image"
	"image/color"
	"testing"
	"time"

	"github.com/gregleeform/landviewer/internal/align"
	"github.com/gregleeform/landviewer/internal/colorfilter"
	"github.com/gregleeform/landviewer/internal/image"
	"github.com/gregleeform/landviewer/pkg/geometry"
)

func testPhoto(w, h int) *goimage.RGBA {
	img := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	return img
}

// testOverlay draws a red horizontal band over a blue background so colour
// filter effects are observable per pixel.
func testOverlay(w, h int) *goimage.RGBA {
	img := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{B: 255, A: 255}
			if y >= h/3 && y < 2*h/3 {
				c = color.RGBA{R: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := New(testPhoto(200, 150), testOverlay(90, 60), nil)
	t.Cleanup(s.Close)
	return s
}

// waitFor reads the subscription until an update of the wanted kind
// arrives or the deadline passes.
func waitFor(t *testing.T, ch <-chan Update, kind UpdateKind) Update {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed before expected update")
			}
			if u.Kind == kind {
				return u
			}
		case <-deadline:
			t.Fatalf("timed out waiting for update kind %d", kind)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	s := newTestSession(t)

	if got := s.Opacity(); got != DefaultOpacity {
		t.Fatalf("Opacity() = %v, want %v", got, DefaultOpacity)
	}
	want := align.DefaultPoints(geometry.NewSize(90, 60), geometry.NewSize(200, 150))
	if got := s.Points(); got != want {
		t.Fatalf("Points() = %v, want default placement %v", got, want)
	}
	if _, ok := s.Crop(); ok {
		t.Fatal("new session should have no crop")
	}
}

func TestRotationInvalidatesCrop(t *testing.T) {
	s := newTestSession(t)

	region := image.CropRegion{Left: 0, Top: 0, Right: 130, Bottom: 130}
	if err := s.SetCrop(region); err == nil {
		t.Fatal("crop larger than the overlay should fail")
	}
	region = image.CropRegion{Left: 1, Top: 1, Right: 2, Bottom: 2}
	if err := s.SetCrop(region); err == nil {
		t.Fatal("crop below the minimum size should fail")
	}

	s.mu.Lock()
	s.overlay = testOverlay(400, 300)
	s.rotated = s.overlay
	s.mu.Unlock()
	region = image.CropRegion{Left: 10, Top: 10, Right: 150, Bottom: 150}
	if err := s.SetCrop(region); err != nil {
		t.Fatalf("SetCrop() = %v", err)
	}
	if _, ok := s.Crop(); !ok {
		t.Fatal("crop not recorded")
	}

	s.SetRotation(90)
	if _, ok := s.Crop(); ok {
		t.Fatal("rotation must invalidate the committed crop")
	}
	s.mu.Lock()
	b := s.overlay.Bounds()
	s.mu.Unlock()
	if b.Dx() != 60 || b.Dy() != 90 {
		t.Fatalf("overlay after 90 degree rotation = %dx%d, want 60x90", b.Dx(), b.Dy())
	}
}

func TestSetFiltersAppliesInBackground(t *testing.T) {
	s := newTestSession(t)
	ch := s.Subscribe()

	err := s.SetFilters(nil, []colorfilter.Rule{{Color: "FF0000", Tolerance: 10}})
	if err != nil {
		t.Fatalf("SetFilters() = %v", err)
	}
	waitFor(t, ch, UpdateOverlay)

	s.mu.Lock()
	filtered := s.filtered
	s.mu.Unlock()
	if filtered == nil {
		t.Fatal("filter result not committed")
	}
	if _, _, _, a := filtered.RGBAAt(45, 30).RGBA(); a != 0 {
		t.Fatal("red band should be removed by the filter")
	}
	if c := filtered.RGBAAt(45, 5); c.A == 0 || c.B != 255 {
		t.Fatalf("blue background altered: %+v", c)
	}
}

func TestSetFiltersInvalidRuleFailsFast(t *testing.T) {
	s := newTestSession(t)

	err := s.SetFilters([]colorfilter.Rule{{Color: "not-a-colour"}}, nil)
	if err == nil {
		t.Fatal("invalid rule should be rejected synchronously")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filtered != nil || len(s.keepRules) != 0 {
		t.Fatal("rejected rules must not change session state")
	}
}

func TestClearingFiltersIsSynchronous(t *testing.T) {
	s := newTestSession(t)
	ch := s.Subscribe()

	if err := s.SetFilters(nil, []colorfilter.Rule{{Color: "#FF0000"}}); err != nil {
		t.Fatalf("SetFilters() = %v", err)
	}
	waitFor(t, ch, UpdateOverlay)

	if err := s.SetFilters(nil, nil); err != nil {
		t.Fatalf("SetFilters(nil, nil) = %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filtered != nil {
		t.Fatal("clearing the rules must drop the filtered raster immediately")
	}
}

func TestStaleFilterResultDiscarded(t *testing.T) {
	s := newTestSession(t)

	s.mu.Lock()
	s.latestToken = 7
	s.mu.Unlock()

	stale := goimage.NewRGBA(goimage.Rect(0, 0, 1, 1))
	s.applyFilterResult(filterResult{token: 3, img: stale})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filtered != nil {
		t.Fatal("result for a superseded token must be discarded")
	}
}

func TestSketchCacheFollowsOverlayVersion(t *testing.T) {
	s := newTestSession(t)
	s.SetStrength(0.5)

	s.Render()
	s.mu.Lock()
	first := s.sketch
	s.mu.Unlock()
	if first == nil {
		t.Fatal("rendering with strength > 0 should build a sketch")
	}

	s.Render()
	s.mu.Lock()
	second := s.sketch
	s.mu.Unlock()
	if second != first {
		t.Fatal("sketch must be reused while the overlay is unchanged")
	}

	s.SetRotation(180)
	s.Render()
	s.mu.Lock()
	third := s.sketch
	version, sketchVersion := s.version, s.sketchVersion
	s.mu.Unlock()
	if third == first {
		t.Fatal("overlay change must rebuild the sketch")
	}
	if sketchVersion != version {
		t.Fatalf("sketch version %d out of step with overlay version %d", sketchVersion, version)
	}
}

func TestRenderFallsBackOnDegeneratePoints(t *testing.T) {
	s := newTestSession(t)

	p := geometry.NewPoint2D(10, 10)
	s.SetPoints(geometry.Quad{p, p, p, p})

	out := s.Render()
	want := s.Photo()
	if len(out.Pix) != len(want.Pix) {
		t.Fatalf("render size mismatch: %d vs %d", len(out.Pix), len(want.Pix))
	}
	for i := range out.Pix {
		if out.Pix[i] != want.Pix[i] {
			t.Fatal("degenerate points must render the bare photo")
		}
	}
}

func TestRenderCompositesOverlay(t *testing.T) {
	s := newTestSession(t)
	s.SetOpacity(1)

	out := s.Render()
	q := s.Points()
	center := q.Centroid()
	c := out.RGBAAt(int(center.X), int(center.Y))
	if c.R == 120 && c.G == 120 && c.B == 120 {
		t.Fatal("overlay not visible at the quad centroid")
	}
	if c := out.RGBAAt(2, 2); c.R != 120 || c.G != 120 || c.B != 120 {
		t.Fatalf("photo corner outside the quad altered: %+v", c)
	}
}

func TestUpdatePointClampsWhileConstrained(t *testing.T) {
	s := newTestSession(t)

	if err := s.UpdatePoint(4, geometry.NewPoint2D(0, 0)); err == nil {
		t.Fatal("handle index out of range should fail")
	}
	if err := s.UpdatePoint(2, geometry.NewPoint2D(1000, -50)); err != nil {
		t.Fatalf("UpdatePoint() = %v", err)
	}
	got := s.Points()[2]
	if got.X != 200 || got.Y != 0 {
		t.Fatalf("constrained drag clamped to %v, want (200, 0)", got)
	}
}

func TestAutoPinRound(t *testing.T) {
	s := newTestSession(t)
	ch := s.Subscribe()

	s.StartAutoPin()
	if !s.AutoPinActive() {
		t.Fatal("round should be active after StartAutoPin")
	}
	if got := s.AutoPinStep(); got != 0 {
		t.Fatalf("AutoPinStep() = %d, want 0", got)
	}
	if u := waitFor(t, ch, UpdateWizard); u.Step != 0 {
		t.Fatalf("start update step = %d, want 0", u.Step)
	}

	src := []geometry.Point2D{{X: 10, Y: 10}, {X: 80, Y: 10}, {X: 80, Y: 50}, {X: 10, Y: 50}}
	dst := []geometry.Point2D{{X: 40, Y: 30}, {X: 160, Y: 35}, {X: 165, Y: 120}, {X: 35, Y: 115}}
	for i := 0; i < 4; i++ {
		if err := s.AutoPinClick(src[i]); err != nil {
			t.Fatalf("source click %d: %v", i, err)
		}
		if u := waitFor(t, ch, UpdateWizard); u.Step != i*2+1 {
			t.Fatalf("progress after source click %d = step %d, want %d", i, u.Step, i*2+1)
		}
		if err := s.AutoPinClick(dst[i]); err != nil {
			t.Fatalf("destination click %d: %v", i, err)
		}
		if i < 3 {
			if u := waitFor(t, ch, UpdateWizard); u.Step != i*2+2 {
				t.Fatalf("progress after destination click %d = step %d, want %d", i, u.Step, i*2+2)
			}
		}
	}

	if s.AutoPinActive() {
		t.Fatal("round should complete after eight clicks")
	}
	u := waitFor(t, ch, UpdatePoints)
	if !u.Points.IsNonDegenerate() {
		t.Fatalf("solved corners degenerate: %v", u.Points)
	}
	if s.Points() == align.DefaultPoints(geometry.NewSize(90, 60), geometry.NewSize(200, 150)) {
		t.Fatal("solve should replace the default points")
	}

	// Solved corners may fall outside the photo; dragging must not clamp.
	if err := s.UpdatePoint(0, geometry.NewPoint2D(-20, -15)); err != nil {
		t.Fatalf("UpdatePoint() after solve = %v", err)
	}
	if got := s.Points()[0]; got.X != -20 || got.Y != -15 {
		t.Fatalf("post-solve drag clamped to %v", got)
	}
}

func TestAdjustAutoPinRevertsOnDegeneracy(t *testing.T) {
	s := newTestSession(t)

	s.StartAutoPin()
	src := []geometry.Point2D{{X: 0, Y: 0}, {X: 90, Y: 0}, {X: 90, Y: 60}, {X: 0, Y: 60}}
	dst := []geometry.Point2D{{X: 20, Y: 20}, {X: 180, Y: 20}, {X: 180, Y: 130}, {X: 20, Y: 130}}
	for i := 0; i < 4; i++ {
		if err := s.AutoPinClick(src[i]); err != nil {
			t.Fatalf("source click %d: %v", i, err)
		}
		if err := s.AutoPinClick(dst[i]); err != nil {
			t.Fatalf("destination click %d: %v", i, err)
		}
	}
	before := s.Points()

	if err := s.AdjustAutoPin(1, geometry.NewPoint2D(20, 20)); err == nil {
		t.Fatal("coincident destination clicks should be rejected")
	}
	if s.Points() != before {
		t.Fatal("rejected adjustment must leave the points untouched")
	}

	if err := s.AdjustAutoPin(1, geometry.NewPoint2D(175, 25)); err != nil {
		t.Fatalf("AdjustAutoPin() = %v", err)
	}
	if s.Points() == before {
		t.Fatal("successful adjustment should move the points")
	}
}

func TestCancelAutoPinKeepsPoints(t *testing.T) {
	s := newTestSession(t)
	before := s.Points()

	s.StartAutoPin()
	if err := s.AutoPinClick(geometry.NewPoint2D(5, 5)); err != nil {
		t.Fatalf("AutoPinClick() = %v", err)
	}
	s.CancelAutoPin()

	if s.AutoPinActive() {
		t.Fatal("round still active after cancel")
	}
	if s.Points() != before {
		t.Fatal("cancel must not change the points")
	}
	if err := s.AutoPinClick(geometry.NewPoint2D(5, 5)); err == nil {
		t.Fatal("clicks after cancel should fail")
	}
}

func TestCloseIsIdempotentAndClosesSubscribers(t *testing.T) {
	s := New(testPhoto(50, 50), testOverlay(30, 30), nil)
	ch := s.Subscribe()

	s.Close()
	s.Close()

	for {
		if _, ok := <-ch; !ok {
			break
		}
	}
	late := s.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscription after Close should be closed")
	}
}
