package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/internal/service/compass"
	"github.com/Temutjin2k/room-compass/internal/service/geodesy"
	"github.com/Temutjin2k/room-compass/internal/service/tracker"
	"github.com/Temutjin2k/room-compass/pkg/debounce"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/Temutjin2k/room-compass/pkg/metrics"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrInvalidPayload = errors.New("invalid message payload")
	ErrSessionClosed  = errors.New("session closed")
)

type Config struct {
	Tracker tracker.Config
	Compass compass.Config

	// client list refresh of the host
	ClientsWait    time.Duration
	ClientsMaxWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		Tracker:        tracker.DefaultConfig(),
		Compass:        compass.DefaultConfig(),
		ClientsWait:    time.Second,
		ClientsMaxWait: 3 * time.Second,
	}
}

type Deps struct {
	Rooms       Rooms
	Changes     tracker.ChangeSubscriber
	Declination compass.DeclinationProvider
	Sink        Sink
	Log         logger.Logger
}

// Session is one open device socket: a sensor feed, the refresh loop and,
// for clients, the compass. Hosts additionally receive their client list.
type Session struct {
	cfg      Config
	identity models.Identity
	role     types.UserRole
	room     *models.Room

	rooms       Rooms
	changes     tracker.ChangeSubscriber
	declination compass.DeclinationProvider
	sink        Sink
	log         logger.Logger

	feed    *tracker.SensorFeed
	tracker *tracker.Session

	mu      sync.Mutex
	compass *compass.Reconciler
	closed  bool

	clients     *debounce.Debouncer
	unsubscribe func()
	clientsDone chan struct{}
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

// Open resolves the caller's role and room, greets the device and starts the
// refresh loop. The session lives until Close or until ctx is done.
func Open(ctx context.Context, cfg Config, id models.Identity, deps Deps) (*Session, error) {
	const op = "live.Open"
	ctx = wrap.WithAction(wrap.WithUserID(ctx, id.UserID.String()), types.ActionLiveSession)

	role, err := deps.Rooms.Role(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	room, err := deps.Rooms.Room(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	ctx = wrap.WithRoomPass(ctx, strconv.Itoa(room.Pass))

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:         cfg,
		identity:    id,
		role:        role,
		room:        room,
		rooms:       deps.Rooms,
		changes:     deps.Changes,
		declination: deps.Declination,
		sink:        deps.Sink,
		log:         deps.Log,
		feed:        tracker.NewSensorFeed(),
		cancel:      cancel,
	}

	mode := tracker.ModeFollow
	if role == types.RoleHost {
		mode = tracker.ModeAnchor
	}
	pass := room.Pass
	s.tracker = tracker.NewSession(cfg.Tracker, id.UserID, &pass, mode, tracker.Deps{
		Source:  s.feed,
		Peers:   deps.Rooms,
		Writer:  deps.Rooms,
		Changes: deps.Changes,
		Sink:    pairSink{s},
		Log:     deps.Log,
	})
	if stored, err := deps.Rooms.StoredLocation(ctx, id.UserID); err != nil {
		s.log.Warn(ctx, "failed to read stored location", "error", err)
	} else {
		s.tracker.Seed(stored)
	}

	if err := s.sink.Send(ctx, models.WelcomeMessage{
		Type: types.MessageWelcome,
		Role: role,
		Room: room,
	}); err != nil {
		cancel()
		return nil, wrap.Error(ctx, fmt.Errorf("%s: send welcome: %w", op, err))
	}

	metrics.WebSocketConnectionsGauge.WithLabelValues(string(types.RoomService), role.String()).Inc()

	if role == types.RoleHost {
		s.watchClients(ctx)
	}
	s.tracker.Start(ctx)

	s.log.Info(ctx, "live session opened", "role", role.String())
	return s, nil
}

func (s *Session) Role() types.UserRole {
	return s.role
}

func (s *Session) Room() models.Room {
	return *s.room
}

// Handle dispatches one inbound device message.
func (s *Session) Handle(ctx context.Context, msg models.DeviceMessage) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	ctx = wrap.WithRoomPass(wrap.WithUserID(ctx, s.identity.UserID.String()), strconv.Itoa(s.room.Pass))

	switch msg.Type {
	case types.MessageHello:
		var p models.HelloPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.hello(ctx, p)

	case types.MessagePosition:
		var p models.PositionPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.position(ctx, p)

	case types.MessageOrientation:
		var p models.OrientationEvent
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		if c := s.reconciler(); c != nil {
			_, err := c.HandleOrientation(ctx, p)
			return err
		}
		return nil

	case types.MessageVisibility:
		var p models.VisibilityPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		if p.State != types.VisibilityHidden && p.State != types.VisibilityVisible {
			return fmt.Errorf("%w: visibility %q", ErrInvalidPayload, p.State)
		}
		if c := s.reconciler(); c != nil {
			c.SetVisibility(p.State)
		}
		if p.State == types.VisibilityVisible {
			s.tracker.Trigger()
		}
		return nil

	case types.MessagePermission:
		var p models.PermissionPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		if c := s.reconciler(); c != nil {
			return c.SetPermission(ctx, p.Granted)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// hello selects the heading strategy for the session. A second hello
// restarts the compass with the new capabilities.
func (s *Session) hello(ctx context.Context, p models.HelloPayload) error {
	if s.role != types.RoleClient {
		return nil
	}

	c := compass.NewReconciler(s.cfg.Compass, p.DirectOrientation, p.PermissionGranted, s.declination, s.sink, s.log)
	if last, ok := s.feed.Last(); ok {
		c.UpdatePosition(ctx, last.Point)
	}
	if state := s.tracker.State(); state.Self != nil && state.Peer != nil {
		if err := c.SetBearing(ctx, geodesy.Bearing(*state.Self, *state.Peer)); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.compass = c
	s.mu.Unlock()

	if !p.PermissionGranted {
		return c.SetPermission(ctx, false)
	}
	return nil
}

func (s *Session) position(ctx context.Context, p models.PositionPayload) error {
	if err := s.feed.Push(p.GeoPoint, p.Accuracy); err != nil {
		return err
	}
	if c := s.reconciler(); c != nil {
		c.UpdatePosition(ctx, p.GeoPoint)
	}
	s.tracker.Trigger()
	return nil
}

func (s *Session) reconciler() *compass.Reconciler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compass
}

// watchClients pushes the host's client list now and after every debounced
// change in the room.
func (s *Session) watchClients(ctx context.Context) {
	s.clients = debounce.New(s.cfg.ClientsWait, s.cfg.ClientsMaxWait, func() {
		s.pushClients(ctx)
	})
	s.clientsDone = make(chan struct{})

	var events <-chan models.ChangeEvent
	if s.changes != nil {
		pass := s.room.Pass
		events, s.unsubscribe = s.changes.Subscribe(models.ChangeFilter{
			Table:    types.TableUser,
			RoomPass: &pass,
			Columns:  types.ClientListColumns,
		})
	}

	go func() {
		defer close(s.clientsDone)
		s.pushClients(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				s.clients.Trigger()
			}
		}
	}()
}

func (s *Session) pushClients(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	clients, err := s.rooms.ClientsOf(ctx, s.room.Pass)
	if err != nil {
		s.log.Error(wrap.ErrorCtx(ctx, err), "failed to load client list", err)
		return
	}
	if err := s.sink.Send(ctx, models.ClientsUpdate{
		Type:    types.MessageClientsUpdate,
		Clients: clients,
	}); err != nil {
		s.log.Warn(ctx, "failed to send client list", "error", err)
	}
}

// Close stops the refresh loop, the compass and the client list watcher. Safe to call repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.tracker.Stop()
		s.cancel()
		if s.clients != nil {
			s.clients.Stop()
		}
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.clientsDone != nil {
			<-s.clientsDone
		}

		metrics.WebSocketConnectionsGauge.WithLabelValues(string(types.RoomService), s.role.String()).Dec()
		s.log.Info(wrap.WithUserID(context.Background(), s.identity.UserID.String()), "live session closed")
	})
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// pairSink forwards tracker output to the device and keeps the compass bearing in step.
type pairSink struct {
	s *Session
}

func (p pairSink) Send(ctx context.Context, msg any) error {
	if err := p.s.sink.Send(ctx, msg); err != nil {
		return err
	}

	update, ok := msg.(models.PairUpdate)
	if !ok {
		return nil
	}
	c := p.s.reconciler()
	if c == nil {
		return nil
	}
	if state := p.s.tracker.State(); !update.PeerKnown || state.Self == nil {
		c.ClearBearing()
		return nil
	}
	return c.SetBearing(ctx, update.Bearing)
}
