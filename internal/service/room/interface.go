package room

import (
	"context"
	"io"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/google/uuid"
)

type UserRepo interface {
	Create(ctx context.Context, name string) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetRoom(ctx context.Context, id uuid.UUID, pass int, role types.UserRole) error
	Reset(ctx context.Context, id uuid.UUID) error
	HostLocation(ctx context.Context, id uuid.UUID) (*models.GeoPoint, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, point models.GeoPoint, distance float64) error
	Clients(ctx context.Context, pass int) ([]models.ClientInfo, error)
	Settings(ctx context.Context, id uuid.UUID) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings models.UserSettings) error
	UpdateIcon(ctx context.Context, id uuid.UUID, url string) error
}

type RoomRepo interface {
	Create(ctx context.Context, room models.Room) error
	Get(ctx context.Context, pass int) (*models.Room, error)
	Exists(ctx context.Context, pass int) (bool, error)
	Touch(ctx context.Context, pass int) error
	SetOpen(ctx context.Context, pass int, open bool) error
}

type TokenIssuer interface {
	Issue(ctx context.Context, id models.Identity) (string, error)
}

// IconStore keeps user icons and returns their public URL.
type IconStore interface {
	Upload(ctx context.Context, publicID string, content io.Reader) (string, error)
}

type ChangePublisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}
