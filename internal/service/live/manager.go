package live

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/internal/service/compass"
	"github.com/Temutjin2k/room-compass/internal/service/tracker"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
)

// Manager opens live sessions sharing one set of collaborators.
type Manager struct {
	cfg         Config
	rooms       Rooms
	changes     tracker.ChangeSubscriber
	declination compass.DeclinationProvider
	log         logger.Logger
}

func NewManager(cfg Config, rooms Rooms, changes tracker.ChangeSubscriber, declination compass.DeclinationProvider, log logger.Logger) *Manager {
	return &Manager{
		cfg:         cfg,
		rooms:       rooms,
		changes:     changes,
		declination: declination,
		log:         log,
	}
}

// Open starts a live session writing to sink.
func (m *Manager) Open(ctx context.Context, id models.Identity, sink Sink) (*Session, error) {
	return Open(ctx, m.cfg, id, Deps{
		Rooms:       m.rooms,
		Changes:     m.changes,
		Declination: m.declination,
		Sink:        sink,
		Log:         m.log,
	})
}

// PushOnce runs a single refresh cycle for a device without a socket. The
// movement check starts from the user's stored position, so a reading within
// the threshold of it is not written.
func (m *Manager) PushOnce(ctx context.Context, id models.Identity, p models.PositionPayload) (models.PairUpdate, error) {
	const op = "live.PushOnce"
	ctx = wrap.WithAction(wrap.WithUserID(ctx, id.UserID.String()), types.ActionPushLocation)

	role, err := m.rooms.Role(ctx, id)
	if err != nil {
		return models.PairUpdate{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	stored, err := m.rooms.StoredLocation(ctx, id.UserID)
	if err != nil {
		return models.PairUpdate{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	feed := tracker.NewSensorFeed()
	if err := feed.Push(p.GeoPoint, p.Accuracy); err != nil {
		return models.PairUpdate{}, err
	}

	mode := tracker.ModeFollow
	if role == types.RoleHost {
		mode = tracker.ModeAnchor
	}
	session := tracker.NewSession(m.cfg.Tracker, id.UserID, nil, mode, tracker.Deps{
		Source: feed,
		Peers:  m.rooms,
		Writer: m.rooms,
		Sink:   discard{},
		Log:    m.log,
	})

	session.Seed(stored)

	update, err := session.Refresh(ctx)
	if err != nil {
		return models.PairUpdate{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return update, nil
}

type discard struct{}

func (discard) Send(context.Context, any) error { return nil }
