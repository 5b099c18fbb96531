package compass

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/pkg/logger"
)

func ptr(v float64) *float64 { return &v }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestStrategies(t *testing.T) {
	direct := strategyFor(true)
	if h, ok := direct.heading(models.OrientationEvent{WebkitCompassHeading: ptr(90)}); !ok || h != 90 {
		t.Fatalf("direct heading: got %v %v", h, ok)
	}
	if _, ok := direct.heading(models.OrientationEvent{Alpha: ptr(90)}); ok {
		t.Fatalf("direct strategy must ignore alpha only events")
	}

	fromNorth := strategyFor(false)
	if h, ok := fromNorth.heading(models.OrientationEvent{Alpha: ptr(90)}); !ok || h != 270 {
		t.Fatalf("rotation from north: got %v %v", h, ok)
	}
	if h, _ := fromNorth.heading(models.OrientationEvent{Alpha: ptr(0)}); h != 0 {
		t.Fatalf("alpha 0 must map to 0, got %v", h)
	}
	if _, ok := fromNorth.heading(models.OrientationEvent{WebkitCompassHeading: ptr(10)}); ok {
		t.Fatalf("rotation strategy must ignore events without alpha")
	}
}

func TestCorrect(t *testing.T) {
	cases := []struct{ heading, decl, want float64 }{
		{10, 7, 17},
		{355, 7, 2},
		{3, -7, 356},
		{0, 0, 0},
	}
	for _, c := range cases {
		if got := Correct(c.heading, c.decl); !near(got, c.want) {
			t.Fatalf("Correct(%v, %v) = %v, want %v", c.heading, c.decl, got, c.want)
		}
	}
}

func TestDisplayRotation(t *testing.T) {
	if got := DisplayRotation(90, 30); got != 60 {
		t.Fatalf("unexpected rotation %v", got)
	}
	if got := DisplayRotation(10, 350); !near(got, 20) {
		t.Fatalf("unexpected rotation %v", got)
	}
	for _, b := range []float64{-720, -90, 0, 45, 359.9, 720} {
		for _, h := range []float64{-360, 0, 123, 359, 1080} {
			got := DisplayRotation(b, h)
			if got < 0 || got >= 360 {
				t.Fatalf("DisplayRotation(%v, %v) = %v out of range", b, h, got)
			}
			if !near(got, DisplayRotation(b+360, h)) || !near(got, DisplayRotation(b, h-360)) {
				t.Fatalf("DisplayRotation(%v, %v) not invariant under full turns", b, h)
			}
		}
	}
}

func TestSmoother(t *testing.T) {
	s := NewSmoother(0.1)
	if got := s.Add(100); got != 100 {
		t.Fatalf("first sample must seed, got %v", got)
	}
	if got := s.Add(110); !near(got, 101) {
		t.Fatalf("expected 0.9*100 + 0.1*110 = 101, got %v", got)
	}

	s.Reset()
	if _, ok := s.Value(); ok {
		t.Fatalf("reset must clear the seed")
	}

	s.Add(359)
	got := s.Add(1)
	if !near(got, 359.2) {
		t.Fatalf("expected shortest arc towards 1, got %v", got)
	}

	s.Reset()
	s.Add(1)
	if got := s.Add(359); !near(got, 0.8) {
		t.Fatalf("expected shortest arc towards 359, got %v", got)
	}
}

type fakeProvider struct {
	value float64
	err   error
	calls int
}

func (f *fakeProvider) Declination(context.Context, float64, float64) (float64, error) {
	f.calls++
	return f.value, f.err
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []any
}

func (s *recordingSink) Send(_ context.Context, msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) headings() []models.HeadingUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.HeadingUpdate
	for _, m := range s.msgs {
		if h, ok := m.(models.HeadingUpdate); ok {
			out = append(out, h)
		}
	}
	return out
}

func newTestReconciler(direct, permitted bool, provider DeclinationProvider, sink Sink) *Reconciler {
	cfg := DefaultConfig()
	cfg.MaxEventsPerSecond = 0
	return NewReconciler(cfg, direct, permitted, provider, sink, logger.New(io.Discard, "test", logger.LevelError))
}

func TestReconcilerEmitsCorrectedHeading(t *testing.T) {
	sink := &recordingSink{}
	provider := &fakeProvider{value: 7}
	r := newTestReconciler(true, true, provider, sink)
	ctx := context.Background()

	r.UpdatePosition(ctx, models.GeoPoint{Latitude: 35, Longitude: 139})
	if r.Declination() != 7 {
		t.Fatalf("declination not loaded")
	}
	if err := r.SetBearing(ctx, 90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.headings()) != 0 {
		t.Fatalf("no heading update before the first reading")
	}

	ok, err := r.HandleOrientation(ctx, models.OrientationEvent{WebkitCompassHeading: ptr(23)})
	if !ok || err != nil {
		t.Fatalf("event should be handled: %v %v", ok, err)
	}

	updates := sink.headings()
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if u.Rotation != 30 || !near(u.DisplayRotation, 60) || u.Direction != "NE" || !u.BearingKnown {
		t.Fatalf("unexpected update %+v", u)
	}

	if err := r.SetBearing(ctx, 120); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updates = sink.headings()
	if len(updates) != 2 || !near(updates[1].DisplayRotation, 90) {
		t.Fatalf("bearing change must re-emit, got %+v", updates)
	}
}

func TestReconcilerDeclinationFailureFallsBackToZero(t *testing.T) {
	provider := &fakeProvider{value: 7}
	r := newTestReconciler(true, true, provider, &recordingSink{})
	ctx := context.Background()

	r.UpdatePosition(ctx, models.GeoPoint{Latitude: 35, Longitude: 139})

	// within the refresh distance nothing is looked up
	r.UpdatePosition(ctx, models.GeoPoint{Latitude: 35.0001, Longitude: 139})
	if provider.calls != 1 {
		t.Fatalf("expected 1 lookup, got %d", provider.calls)
	}

	provider.err = errors.New("timeout")
	r.UpdatePosition(ctx, models.GeoPoint{Latitude: 36, Longitude: 139})
	if provider.calls != 2 || r.Declination() != 0 {
		t.Fatalf("failed lookup must reset the correction, got %v", r.Declination())
	}
}

func TestReconcilerRetriesFailedDeclinationLookup(t *testing.T) {
	provider := &fakeProvider{value: 7, err: errors.New("timeout")}
	r := newTestReconciler(true, true, provider, &recordingSink{})
	ctx := context.Background()
	at := models.GeoPoint{Latitude: 35, Longitude: 139}

	r.UpdatePosition(ctx, at)
	if provider.calls != 1 || r.Declination() != 0 {
		t.Fatalf("expected fallback after the failed lookup, got %v", r.Declination())
	}

	provider.err = nil
	r.UpdatePosition(ctx, at)
	if provider.calls != 2 || r.Declination() != 7 {
		t.Fatalf("lookup must be retried at the same position, calls %d decl %v", provider.calls, r.Declination())
	}

	r.UpdatePosition(ctx, at)
	if provider.calls != 2 {
		t.Fatalf("successful lookup must be reused, got %d calls", provider.calls)
	}
}

func TestReconcilerPermissionAndVisibility(t *testing.T) {
	sink := &recordingSink{}
	r := newTestReconciler(false, false, nil, sink)
	ctx := context.Background()
	ev := models.OrientationEvent{Alpha: ptr(10)}

	if ok, _ := r.HandleOrientation(ctx, ev); ok {
		t.Fatalf("events must be dropped without permission")
	}

	if err := r.SetPermission(ctx, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, ok := sink.msgs[len(sink.msgs)-1].(models.ErrorMessage)
	if !ok || msg.Type != types.MessagePermissionRequired {
		t.Fatalf("expected permission_required, got %#v", sink.msgs)
	}

	r.SetPermission(ctx, true)
	r.SetVisibility(types.VisibilityHidden)
	if ok, _ := r.HandleOrientation(ctx, ev); ok {
		t.Fatalf("events must be dropped while hidden")
	}

	r.SetVisibility(types.VisibilityVisible)
	if ok, _ := r.HandleOrientation(ctx, ev); !ok {
		t.Fatalf("events must resume once visible")
	}
	if got := r.State().CompassHeading; got != 350 {
		t.Fatalf("expected 360-alpha, got %v", got)
	}
}

func TestReconcilerRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEventsPerSecond = 1
	cfg.Burst = 2
	r := NewReconciler(cfg, true, true, nil, &recordingSink{}, logger.New(io.Discard, "test", logger.LevelError))

	handled := 0
	for range 10 {
		if ok, _ := r.HandleOrientation(context.Background(), models.OrientationEvent{WebkitCompassHeading: ptr(5)}); ok {
			handled++
		}
	}
	if handled != 2 {
		t.Fatalf("expected the burst size to pass, got %d", handled)
	}
}

func TestReconcilerReset(t *testing.T) {
	r := newTestReconciler(true, true, nil, &recordingSink{})
	ctx := context.Background()

	r.HandleOrientation(ctx, models.OrientationEvent{WebkitCompassHeading: ptr(100)})
	r.Reset()
	r.HandleOrientation(ctx, models.OrientationEvent{WebkitCompassHeading: ptr(200)})

	if got := r.State().CompassHeading; got != 200 {
		t.Fatalf("reset must reseed the smoother, got %v", got)
	}
}
