package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/internal/service/geodesy"
	"github.com/Temutjin2k/room-compass/pkg/debounce"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/Temutjin2k/room-compass/pkg/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

type Config struct {
	Threshold       float64       // metres the device has to move before a write
	Interval        time.Duration // refresh ticker
	DebounceWait    time.Duration
	DebounceMaxWait time.Duration
	RetryInitial    time.Duration
	RetryMaxElapsed time.Duration
	RetryAttempts   uint64
}

func DefaultConfig() Config {
	return Config{
		Threshold:       5,
		Interval:        8 * time.Second,
		DebounceWait:    8 * time.Second,
		DebounceMaxWait: 16 * time.Second,
		RetryInitial:    200 * time.Millisecond,
		RetryMaxElapsed: 5 * time.Second,
		RetryAttempts:   3,
	}
}

// Mode decides who is allowed to write.
type Mode int

const (
	// ModeFollow tracks a peer: writes need a known peer.
	ModeFollow Mode = iota
	// ModeAnchor has no peer: movement alone gates the write and distance is 0.
	ModeAnchor
)

type Deps struct {
	Source  PositionSource
	Peers   PeerLocator
	Writer  LocationWriter
	Changes ChangeSubscriber // optional
	Sink    Sink
	Log     logger.Logger
}

// Session is the refresh loop of one participant.
type Session struct {
	cfg      Config
	userID   uuid.UUID
	roomPass *int
	mode     Mode

	source  PositionSource
	peers   PeerLocator
	writer  LocationWriter
	changes ChangeSubscriber
	sink    Sink
	log     logger.Logger

	cycleMu sync.Mutex // one cycle at a time

	mu         sync.RWMutex
	state      models.PairState
	lastPushed *models.GeoPoint
	lastErr    error

	debouncer   *debounce.Debouncer
	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
	stopped     bool
	startOnce   sync.Once
	stopOnce    sync.Once
}

func NewSession(cfg Config, userID uuid.UUID, roomPass *int, mode Mode, deps Deps) *Session {
	return &Session{
		cfg:      cfg,
		userID:   userID,
		roomPass: roomPass,
		mode:     mode,
		source:   deps.Source,
		peers:    deps.Peers,
		writer:   deps.Writer,
		changes:  deps.Changes,
		sink:     deps.Sink,
		log:      deps.Log,
	}
}

// Seed marks p as the position already written for this user, so the next
// cycle only writes once the device moved past the threshold from it.
// It must be called before the first cycle.
func (s *Session) Seed(p *models.GeoPoint) {
	if p == nil {
		return
	}
	s.mu.Lock()
	s.lastPushed = p.Clone()
	if s.state.Self == nil {
		s.state.Self = p.Clone()
	}
	s.mu.Unlock()
}

// Start runs the initial cycle and then the debounced loop until ctx is done or Stop is called.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		ctx, s.cancel = context.WithCancel(ctx)
		s.done = make(chan struct{})
		s.debouncer = debounce.New(s.cfg.DebounceWait, s.cfg.DebounceMaxWait, func() {
			s.Refresh(ctx)
		})

		var events <-chan models.ChangeEvent
		if s.changes != nil && s.roomPass != nil {
			events, s.unsubscribe = s.changes.Subscribe(models.ChangeFilter{
				Table:       types.TableUser,
				RoomPass:    s.roomPass,
				Columns:     types.LocationColumns,
				ExcludeUser: s.userID,
			})
		}
		debouncer, done := s.debouncer, s.done
		s.mu.Unlock()

		go s.loop(ctx, events, debouncer, done)
	})
}

func (s *Session) loop(ctx context.Context, events <-chan models.ChangeEvent, d *debounce.Debouncer, done chan struct{}) {
	defer close(done)

	s.Refresh(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Trigger()
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			d.Trigger()
		}
	}
}

// Trigger schedules a debounced cycle, for example after the device reported a new position.
func (s *Session) Trigger() {
	s.mu.RLock()
	d := s.debouncer
	s.mu.RUnlock()
	if d != nil {
		d.Trigger()
	}
}

// Refresh runs one cycle now and returns the update sent to the sink.
func (s *Session) Refresh(ctx context.Context) (models.PairUpdate, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.PairUpdate{}, err
	}

	ctx = wrap.WithAction(wrap.WithUserID(ctx, s.userID.String()), types.ActionRefreshCycle)

	self, err := s.source.Current(ctx)
	if err != nil {
		if !errors.Is(err, types.ErrNoCoordinates) {
			return models.PairUpdate{}, s.fail(ctx, "sensor", err)
		}
		self = nil
	}

	var peer *models.GeoPoint
	if s.mode == ModeFollow {
		err := s.retry(ctx, func() error {
			var err error
			peer, err = s.peers.PeerLocation(ctx, s.userID)
			return err
		})
		if err != nil {
			return models.PairUpdate{}, s.fail(ctx, "peer", fmt.Errorf("read peer location: %w", err))
		}
	}

	s.mu.RLock()
	lastPushed := s.lastPushed
	prevPeer := s.state.Peer
	s.mu.RUnlock()

	moved := self != nil && (lastPushed == nil || geodesy.Distance(*lastPushed, *self) > s.cfg.Threshold)
	canWrite := s.mode == ModeAnchor || peer != nil

	written := false
	if moved && canWrite {
		var distance float64
		if s.mode == ModeFollow {
			distance = geodesy.Distance(*self, *peer)
		}

		err := s.retry(ctx, func() error {
			return s.writer.PushLocation(ctx, s.userID, *self, distance)
		})
		metrics.RecordLocationWrite(err)
		if err != nil {
			return models.PairUpdate{}, s.fail(ctx, "write", fmt.Errorf("push location: %w", err))
		}
		written = true
	}

	s.mu.Lock()
	if moved {
		s.state.Self = self
	}
	if written {
		s.lastPushed = self.Clone()
	}
	s.state.Peer = peer
	s.lastErr = nil
	state := s.state
	s.mu.Unlock()

	m := geodesy.Pair(state.Self, state.Peer)
	update := models.PairUpdate{
		Type:          types.MessagePairUpdate,
		PairMetrics:   m,
		DistanceLabel: geodesy.FormatDistance(m.Distance),
		Direction:     geodesy.Direction(m.Bearing),
		PeerKnown:     state.Peer != nil,
		Moved:         moved,
		Written:       written,
	}

	outcome := metrics.OutcomeUnchanged
	if moved || !samePoint(prevPeer, peer) {
		outcome = metrics.OutcomeUpdated
	}
	metrics.RecordRefreshCycle(outcome)

	s.log.Debug(ctx, "refresh cycle finished",
		"outcome", outcome,
		"moved", moved,
		"written", written,
		"peer_known", update.PeerKnown,
		"distance", m.Distance,
	)

	if err := s.sink.Send(ctx, update); err != nil {
		s.log.Warn(ctx, "failed to send pair update", "error", err)
	}
	return update, nil
}

// fail records err as the session's last error and reports it to the device. Cached state stays.
func (s *Session) fail(ctx context.Context, source string, err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	metrics.RecordRefreshCycle(metrics.OutcomeFailed)
	s.log.Error(wrap.ErrorCtx(ctx, err), "refresh cycle failed", err, "source", source)

	msg := models.ErrorMessage{
		Type:    types.MessageError,
		Source:  source,
		Message: err.Error(),
	}
	if sendErr := s.sink.Send(ctx, msg); sendErr != nil {
		s.log.Warn(ctx, "failed to send error message", "error", sendErr)
	}
	return err
}

func (s *Session) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitial
	b.MaxElapsedTime = s.cfg.RetryMaxElapsed

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.RetryAttempts), ctx))
}

// State returns a copy of the cached pair.
func (s *Session) State() models.PairState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.PairState{
		Self: s.state.Self.Clone(),
		Peer: s.state.Peer.Clone(),
	}
}

// LastError returns the error of the most recent failed cycle, nil after a successful one.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Stop cancels the loop, the debouncer and the change subscription. Safe to call repeatedly.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		cancel, d, unsubscribe, done := s.cancel, s.debouncer, s.unsubscribe, s.done
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if d != nil {
			d.Stop()
		}
		if unsubscribe != nil {
			unsubscribe()
		}
		if done != nil {
			<-done
		}
	})
}

func samePoint(a, b *models.GeoPoint) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Latitude != b.Latitude || a.Longitude != b.Longitude {
		return false
	}
	if a.Altitude == nil || b.Altitude == nil {
		return a.Altitude == b.Altitude
	}
	return *a.Altitude == *b.Altitude
}
