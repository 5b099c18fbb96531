package live

import (
	"context"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/Temutjin2k/room-compass/internal/service/tracker"
)

// Rooms is the part of the room service a live session depends on.
type Rooms interface {
	Role(ctx context.Context, id models.Identity) (types.UserRole, error)
	Room(ctx context.Context, id models.Identity) (*models.Room, error)
	ClientsOf(ctx context.Context, pass int) ([]models.ClientInfo, error)

	tracker.PeerLocator
	tracker.LocationWriter
	tracker.StoredLocator
}

// Sink is the device side of the socket.
type Sink interface {
	Send(ctx context.Context, msg any) error
}
