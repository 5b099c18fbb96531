package compass

import (
	"context"
	"math"
	"sync"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/internal/service/geodesy"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/Temutjin2k/room-compass/pkg/metrics"
	"golang.org/x/time/rate"
)

type DeclinationProvider interface {
	Declination(ctx context.Context, lat, lon float64) (float64, error)
}

type Sink interface {
	Send(ctx context.Context, msg any) error
}

type Config struct {
	SmoothingWeight    float64 // share of each new sample
	MaxEventsPerSecond float64
	Burst              int
	// DeclinationRefresh is how far (metres) the device moves before the
	// declination is looked up again. 0 looks it up on every position change.
	DeclinationRefresh float64
}

func DefaultConfig() Config {
	return Config{
		SmoothingWeight:    0.1,
		MaxEventsPerSecond: 20,
		Burst:              5,
		DeclinationRefresh: 500,
	}
}

// Reconciler turns raw orientation events into heading updates for one session.
type Reconciler struct {
	strategy    strategy
	declination DeclinationProvider
	sink        Sink
	log         logger.Logger
	limiter     *rate.Limiter
	refreshDist float64

	mu           sync.Mutex
	smoother     *Smoother
	decl         float64
	declAt       *models.GeoPoint
	bearing      float64
	bearingKnown bool
	permitted    bool
	visible      bool
}

// NewReconciler picks the heading strategy once from the device capability.
func NewReconciler(cfg Config, directOrientation, permitted bool, provider DeclinationProvider, sink Sink, log logger.Logger) *Reconciler {
	limit := rate.Inf
	if cfg.MaxEventsPerSecond > 0 {
		limit = rate.Limit(cfg.MaxEventsPerSecond)
	}

	return &Reconciler{
		strategy:    strategyFor(directOrientation),
		declination: provider,
		sink:        sink,
		log:         log,
		limiter:     rate.NewLimiter(limit, max(cfg.Burst, 1)),
		refreshDist: cfg.DeclinationRefresh,
		smoother:    NewSmoother(cfg.SmoothingWeight),
		permitted:   permitted,
		visible:     true,
	}
}

// HandleOrientation processes one sensor event. Events arriving while the
// session is hidden, not permitted, over the rate limit or unreadable for the
// strategy are dropped and reported as false.
func (r *Reconciler) HandleOrientation(ctx context.Context, ev models.OrientationEvent) (bool, error) {
	r.mu.Lock()
	if !r.permitted || !r.visible {
		r.mu.Unlock()
		return false, nil
	}
	if !r.limiter.Allow() {
		r.mu.Unlock()
		return false, nil
	}

	raw, ok := r.strategy.heading(ev)
	if !ok {
		r.mu.Unlock()
		return false, nil
	}

	r.smoother.Add(Correct(raw, r.decl))
	update := r.updateLocked()
	r.mu.Unlock()

	return true, r.emit(ctx, update)
}

// SetBearing stores the bearing to the peer and re-emits the heading when one is known.
func (r *Reconciler) SetBearing(ctx context.Context, bearing float64) error {
	r.mu.Lock()
	r.bearing = geodesy.Normalize(bearing)
	r.bearingKnown = true
	if _, ok := r.smoother.Value(); !ok {
		r.mu.Unlock()
		return nil
	}
	update := r.updateLocked()
	r.mu.Unlock()

	return r.emit(ctx, update)
}

// ClearBearing forgets the bearing, for example when the peer left.
func (r *Reconciler) ClearBearing() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bearing = 0
	r.bearingKnown = false
}

// UpdatePosition refreshes the declination for the device's position. A lookup
// failure resets the correction to 0.
func (r *Reconciler) UpdatePosition(ctx context.Context, p models.GeoPoint) {
	r.mu.Lock()
	if r.declAt != nil && geodesy.Distance(*r.declAt, p) <= r.refreshDist {
		r.mu.Unlock()
		return
	}
	r.declAt = p.Clone()
	r.mu.Unlock()

	ctx = wrap.WithAction(ctx, types.ActionDeclinationLoad)

	decl := 0.0
	failed := false
	if r.declination != nil {
		d, err := r.declination.Declination(ctx, p.Latitude, p.Longitude)
		if err != nil {
			r.log.Warn(wrap.ErrorCtx(ctx, err), "declination lookup failed, using 0", "error", err)
			failed = true
		} else {
			decl = d
		}
	}

	r.mu.Lock()
	r.decl = decl
	// a failed lookup is retried on the next position report
	if failed {
		r.declAt = nil
	}
	r.mu.Unlock()
}

// Declination returns the correction currently applied.
func (r *Reconciler) Declination() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decl
}

// SetPermission records whether the device may read its orientation sensor.
// A denial is answered with a permission_required message.
func (r *Reconciler) SetPermission(ctx context.Context, granted bool) error {
	r.mu.Lock()
	r.permitted = granted
	r.mu.Unlock()

	if granted {
		return nil
	}
	return r.sink.Send(ctx, models.ErrorMessage{
		Type:    types.MessagePermissionRequired,
		Source:  "orientation",
		Message: types.ErrPermissionRequired.Error(),
	})
}

// SetVisibility pauses event handling while the device is hidden.
func (r *Reconciler) SetVisibility(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = state != types.VisibilityHidden
}

// Reset drops the smoothed heading, the next event seeds it again.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.smoother.Reset()
}

func (r *Reconciler) State() models.HeadingState {
	r.mu.Lock()
	defer r.mu.Unlock()

	heading, _ := r.smoother.Value()
	return models.HeadingState{
		CompassHeading:  heading,
		BearingToPeer:   r.bearing,
		DisplayRotation: DisplayRotation(r.bearing, heading),
	}
}

func (r *Reconciler) updateLocked() models.HeadingUpdate {
	heading, _ := r.smoother.Value()
	return models.HeadingUpdate{
		Type:            types.MessageHeadingUpdate,
		Rotation:        int(math.Round(heading)) % 360,
		Direction:       geodesy.Direction(heading),
		Bearing:         r.bearing,
		BearingKnown:    r.bearingKnown,
		DisplayRotation: DisplayRotation(r.bearing, heading),
	}
}

func (r *Reconciler) emit(ctx context.Context, update models.HeadingUpdate) error {
	metrics.HeadingUpdatesTotal.Inc()
	if err := r.sink.Send(ctx, update); err != nil {
		r.log.Warn(ctx, "failed to send heading update", "error", err)
		return err
	}
	return nil
}
