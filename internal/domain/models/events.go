package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// ChangeEvent is a row-update notification from the store.
// RabbitMQ message: location_fanout exchange.
type ChangeEvent struct {
	Table    string    `json:"table"`
	UserID   uuid.UUID `json:"user_id"`
	RoomPass *int      `json:"room_pass,omitempty"`
	Columns  []string  `json:"columns"`
	At       time.Time `json:"at"`
}

// ChangeFilter selects change events. Zero values match everything.
type ChangeFilter struct {
	Table    string
	RoomPass *int
	Columns  []string
	// ExcludeUser drops events caused by this user.
	ExcludeUser uuid.UUID
}

// Match reports whether e passes the filter. With Columns set, at least one
// updated column has to be in the list.
func (f ChangeFilter) Match(e ChangeEvent) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.RoomPass != nil && (e.RoomPass == nil || *e.RoomPass != *f.RoomPass) {
		return false
	}
	if f.ExcludeUser != uuid.Nil && f.ExcludeUser == e.UserID {
		return false
	}
	if len(f.Columns) == 0 {
		return true
	}
	for _, c := range e.Columns {
		if slices.Contains(f.Columns, c) {
			return true
		}
	}
	return false
}
