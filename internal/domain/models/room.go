package models

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	Pass     int       `json:"pass"`
	Name     string    `json:"name"`
	IsOpen   bool      `json:"is_open"`
	UpdateAt time.Time `json:"update_at"`
}

// ClientInfo is one row of the host's client list.
type ClientInfo struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Icon          *string   `json:"icon,omitempty"`
	Distance      *float64  `json:"distance,omitempty"`
	DistanceLabel string    `json:"distance_label,omitempty"`
	UpdateAt      time.Time `json:"update_at"`
}
