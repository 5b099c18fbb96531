package tracker

import (
	"context"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/google/uuid"
)

// PositionSource is the local device sensor.
type PositionSource interface {
	Current(ctx context.Context) (*models.GeoPoint, error)
}

// PeerLocator reads the peer's last written coordinates from the store.
type PeerLocator interface {
	PeerLocation(ctx context.Context, userID uuid.UUID) (*models.GeoPoint, error)
}

// LocationWriter writes the session's own coordinates and its distance to the peer.
type LocationWriter interface {
	PushLocation(ctx context.Context, userID uuid.UUID, point models.GeoPoint, distance float64) error
}

// StoredLocator reads the user's own last written coordinates.
type StoredLocator interface {
	StoredLocation(ctx context.Context, userID uuid.UUID) (*models.GeoPoint, error)
}

type ChangeSubscriber interface {
	Subscribe(filter models.ChangeFilter) (<-chan models.ChangeEvent, func())
}

// Sink receives pair updates and error messages for the device.
type Sink interface {
	Send(ctx context.Context, msg any) error
}
