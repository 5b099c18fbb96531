package room

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/internal/service/geodesy"
	"github.com/Temutjin2k/room-compass/pkg/hasher"
	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/Temutjin2k/room-compass/pkg/metrics"
	"github.com/Temutjin2k/room-compass/pkg/trm"
	"github.com/google/uuid"
)

const (
	minCode = 1000
	maxCode = 9999
)

type Config struct {
	CodeAttempts int
	MaxIconBytes int64
}

type Service struct {
	cfg       Config
	users     UserRepo
	rooms     RoomRepo
	tokens    TokenIssuer
	icons     IconStore // nil when icon storage is not configured
	publisher ChangePublisher
	trm       trm.TxManager
	log       logger.Logger

	code func() int
	now  func() time.Time
}

func NewService(cfg Config, users UserRepo, rooms RoomRepo, tokens TokenIssuer, icons IconStore, publisher ChangePublisher, trm trm.TxManager, log logger.Logger) *Service {
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 50
	}
	return &Service{
		cfg:       cfg,
		users:     users,
		rooms:     rooms,
		tokens:    tokens,
		icons:     icons,
		publisher: publisher,
		trm:       trm,
		log:       log,
		code:      func() int { return minCode + rand.IntN(maxCode-minCode+1) },
		now:       time.Now,
	}
}

// Register creates an anonymous participant and returns a session token for it.
func (s *Service) Register(ctx context.Context, name string) (uuid.UUID, string, error) {
	ctx = wrap.WithAction(ctx, "register_user")

	id, err := s.users.Create(ctx, name)
	if err != nil {
		return uuid.Nil, "", wrap.Error(ctx, fmt.Errorf("create user: %w", err))
	}
	ctx = wrap.WithUserID(ctx, id.String())

	token, err := s.tokens.Issue(ctx, models.Identity{UserID: id})
	if err != nil {
		return uuid.Nil, "", err
	}

	s.log.Info(ctx, "user registered")
	return id, token, nil
}

// CreateRoom opens a room under a free 4-digit code and makes the caller its host.
func (s *Service) CreateRoom(ctx context.Context, id models.Identity, name string) (*models.Room, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, id.UserID.String()), "create_room")

	for range s.cfg.CodeAttempts {
		pass := s.code()

		exists, err := s.rooms.Exists(ctx, pass)
		if err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("check room code: %w", err))
		}
		if exists {
			continue
		}

		room := models.Room{
			Pass:     pass,
			Name:     name,
			IsOpen:   true,
			UpdateAt: s.now().UTC(),
		}

		err = s.trm.Do(ctx, func(ctx context.Context) error {
			if err := s.rooms.Create(ctx, room); err != nil {
				return err
			}
			return s.users.SetRoom(ctx, id.UserID, pass, types.RoleHost)
		})
		if errors.Is(err, types.ErrRoomCodeTaken) {
			continue
		}
		if err != nil {
			return nil, wrap.Error(ctx, fmt.Errorf("create room: %w", err))
		}

		ctx = wrap.WithRoomPass(ctx, strconv.Itoa(pass))
		metrics.RoomsCreatedTotal.WithLabelValues(string(types.RoomService)).Inc()
		s.publish(ctx, id.UserID, &pass, types.ColumnRoomPass, types.ColumnRole)
		s.log.Info(ctx, "room created")
		return &room, nil
	}

	return nil, wrap.Error(ctx, types.ErrRoomCodeExhausted)
}

// Exists reports whether a room with this code exists.
func (s *Service) Exists(ctx context.Context, pass int) (bool, error) {
	ok, err := s.rooms.Exists(ctx, pass)
	if err != nil {
		return false, wrap.Error(ctx, fmt.Errorf("check room: %w", err))
	}
	return ok, nil
}

// IsOpen reports whether the room accepts new clients.
func (s *Service) IsOpen(ctx context.Context, pass int) (bool, error) {
	room, err := s.rooms.Get(ctx, pass)
	if err != nil {
		return false, wrap.Error(ctx, err)
	}
	return room.IsOpen, nil
}

// Join makes the caller a client of the room.
func (s *Service) Join(ctx context.Context, id models.Identity, pass int) (*models.Room, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:   "join_room",
		UserID:   id.UserID.String(),
		RoomPass: strconv.Itoa(pass),
	})

	var room *models.Room
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		room, err = s.rooms.Get(ctx, pass)
		if err != nil {
			return err
		}
		if !room.IsOpen {
			return types.ErrRoomLocked
		}
		if err := s.users.SetRoom(ctx, id.UserID, pass, types.RoleClient); err != nil {
			return err
		}
		return s.rooms.Touch(ctx, pass)
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.publish(ctx, id.UserID, &pass, types.ColumnRoomPass, types.ColumnRole)
	s.log.Info(ctx, "user joined room")
	return room, nil
}

// Role returns the caller's role in its current room.
func (s *Service) Role(ctx context.Context, id models.Identity) (types.UserRole, error) {
	user, err := s.member(ctx, id)
	if err != nil {
		return "", err
	}
	return *user.Role, nil
}

// Room returns the caller's current room.
func (s *Service) Room(ctx context.Context, id models.Identity) (*models.Room, error) {
	user, err := s.member(ctx, id)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.Get(ctx, *user.RoomPass)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return room, nil
}

// Clients lists the clients of the caller's room. Only the host may ask.
func (s *Service) Clients(ctx context.Context, id models.Identity) ([]models.ClientInfo, error) {
	user, err := s.member(ctx, id)
	if err != nil {
		return nil, err
	}
	if *user.Role != types.RoleHost {
		return nil, types.ErrNotHost
	}
	return s.ClientsOf(ctx, *user.RoomPass)
}

// ClientsOf lists the clients of a room with formatted distances.
func (s *Service) ClientsOf(ctx context.Context, pass int) ([]models.ClientInfo, error) {
	clients, err := s.users.Clients(ctx, pass)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("list clients: %w", err))
	}
	for i := range clients {
		if clients[i].Distance != nil {
			clients[i].DistanceLabel = geodesy.FormatDistance(*clients[i].Distance)
		}
	}
	return clients, nil
}

// Leave removes the caller from its room and clears its position.
func (s *Service) Leave(ctx context.Context, id models.Identity) error {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, id.UserID.String()), "leave_room")

	user, err := s.users.Get(ctx, id.UserID)
	if err != nil {
		return wrap.Error(ctx, err)
	}

	if err := s.users.Reset(ctx, id.UserID); err != nil {
		return wrap.Error(ctx, fmt.Errorf("reset user: %w", err))
	}

	if user.RoomPass != nil {
		s.publish(ctx, id.UserID, user.RoomPass, types.ColumnRoomPass, types.ColumnRole,
			types.ColumnLatitude, types.ColumnLongitude, types.ColumnAltitude, types.ColumnDistance)
	}
	s.log.Info(ctx, "user left room")
	return nil
}

// SetLock opens or closes the caller's room for new clients. Host only.
func (s *Service) SetLock(ctx context.Context, id models.Identity, open bool) error {
	user, err := s.member(ctx, id)
	if err != nil {
		return err
	}
	if *user.Role != types.RoleHost {
		return types.ErrNotHost
	}

	ctx = wrap.WithRoomPass(wrap.WithAction(ctx, "set_room_lock"), strconv.Itoa(*user.RoomPass))
	if err := s.rooms.SetOpen(ctx, *user.RoomPass, open); err != nil {
		return wrap.Error(ctx, err)
	}
	s.log.Info(ctx, "room lock changed", "open", open)
	return nil
}

func (s *Service) Settings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	settings, err := s.users.Settings(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, userID uuid.UUID, settings models.UserSettings) error {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID.String()), "update_settings")

	if err := s.users.UpdateSettings(ctx, userID, settings); err != nil {
		return wrap.Error(ctx, err)
	}

	if user, err := s.users.Get(ctx, userID); err == nil && user.RoomPass != nil {
		s.publish(ctx, userID, user.RoomPass, types.ColumnName, types.ColumnIcon)
	}
	return nil
}

// UploadIcon stores content as the user's icon and returns its URL. The
// public id is derived from the content so re-uploads overwrite in place.
func (s *Service) UploadIcon(ctx context.Context, userID uuid.UUID, filename string, content []byte) (string, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID.String()), "upload_icon")

	if s.icons == nil {
		return "", types.ErrIconStorageOff
	}
	if s.cfg.MaxIconBytes > 0 && int64(len(content)) > s.cfg.MaxIconBytes {
		return "", types.ErrIconTooLarge
	}

	publicID := userID.String() + "_" + hasher.Short(content)
	url, err := s.icons.Upload(ctx, publicID, bytes.NewReader(content))
	if err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("upload icon: %w", err))
	}

	if err := s.users.UpdateIcon(ctx, userID, url); err != nil {
		return "", wrap.Error(ctx, err)
	}

	s.log.Info(ctx, "icon uploaded", "filename", filename, "size", len(content))
	return url, nil
}

// PeerLocation returns the coordinates of the host of the user's room. Nil when
// the user is not in a room or the host has not reported a position yet.
func (s *Service) PeerLocation(ctx context.Context, userID uuid.UUID) (*models.GeoPoint, error) {
	p, err := s.users.HostLocation(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("host location: %w", err))
	}
	return p, nil
}

// StoredLocation returns the user's own last written coordinates, nil when none were written.
func (s *Service) StoredLocation(ctx context.Context, userID uuid.UUID) (*models.GeoPoint, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("stored location: %w", err))
	}
	return user.Location, nil
}

// PushLocation writes the user's position and distance in one transaction and
// announces the change to the room.
func (s *Service) PushLocation(ctx context.Context, userID uuid.UUID, point models.GeoPoint, distance float64) error {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID.String()), types.ActionPushLocation)

	var pass *int
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		user, err := s.users.Get(ctx, userID)
		if err != nil {
			return err
		}
		pass = user.RoomPass
		return s.users.UpdateLocation(ctx, userID, point, distance)
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("push location: %w", err))
	}

	s.publish(ctx, userID, pass, types.ColumnLatitude, types.ColumnLongitude, types.ColumnAltitude, types.ColumnDistance)
	return nil
}

// member loads the caller and checks it belongs to a room.
func (s *Service) member(ctx context.Context, id models.Identity) (*models.User, error) {
	user, err := s.users.Get(ctx, id.UserID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if user.RoomPass == nil || user.Role == nil {
		return nil, types.ErrNotInRoom
	}
	return user, nil
}

// publish announces a committed change. Failures are logged only since the row is already written.
func (s *Service) publish(ctx context.Context, userID uuid.UUID, pass *int, columns ...string) {
	if s.publisher == nil {
		return
	}

	ev := models.ChangeEvent{
		Table:    types.TableUser,
		UserID:   userID,
		RoomPass: pass,
		Columns:  columns,
		At:       s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn(ctx, "failed to publish change event", "error", err)
	}
}
