package models

import (
	"context"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/types"
	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Icon     *string         `json:"icon,omitempty"`
	Role     *types.UserRole `json:"role,omitempty"`
	RoomPass *int            `json:"room_pass,omitempty"`
	Location *GeoPoint       `json:"location,omitempty"`
	Distance *float64        `json:"distance,omitempty"`
	UpdateAt time.Time       `json:"update_at"`
}

// UserSettings is the editable profile part of a user.
type UserSettings struct {
	Name string  `json:"name"`
	Icon *string `json:"icon,omitempty"`
}

// Identity is the explicit session context of a caller. It replaces any
// ambient "current user" lookup and is passed to every operation needing it.
type Identity struct {
	UserID uuid.UUID
}

type identityKey struct{}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity, ok is false for anonymous callers.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}
