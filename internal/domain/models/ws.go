package models

import (
	"encoding/json"

	"github.com/Temutjin2k/room-compass/internal/domain/types"
)

// DeviceMessage is an inbound websocket frame. Payload is decoded per type.
type DeviceMessage struct {
	Type    types.MessageType `json:"type"`
	Payload json.RawMessage   `json:"payload"`
}

// HelloPayload describes device capabilities, sent once after connecting.
type HelloPayload struct {
	DirectOrientation bool `json:"direct_orientation"`
	PermissionGranted bool `json:"permission_granted"`
}

// PositionPayload is one geolocation reading of the device.
type PositionPayload struct {
	GeoPoint
	Accuracy float64 `json:"accuracy,omitempty"`
}

type VisibilityPayload struct {
	State string `json:"state"`
}

type PermissionPayload struct {
	Granted bool `json:"granted"`
}

type PairUpdate struct {
	Type          types.MessageType `json:"type"`
	PairMetrics
	DistanceLabel string `json:"distance_label"`
	Direction     string `json:"direction"`
	PeerKnown     bool   `json:"peer_known"`
	Moved         bool   `json:"moved"`
	Written       bool   `json:"written"`
}

type HeadingUpdate struct {
	Type            types.MessageType `json:"type"`
	Rotation        int               `json:"rotation"`
	Direction       string            `json:"direction"`
	Bearing         float64           `json:"bearing"`
	BearingKnown    bool              `json:"bearing_known"`
	DisplayRotation float64           `json:"display_rotation"`
}

type ClientsUpdate struct {
	Type    types.MessageType `json:"type"`
	Clients []ClientInfo      `json:"clients"`
}

type ErrorMessage struct {
	Type    types.MessageType `json:"type"`
	Source  string            `json:"source"`
	Message string            `json:"message"`
}

type WelcomeMessage struct {
	Type types.MessageType `json:"type"`
	Role types.UserRole    `json:"role"`
	Room *Room             `json:"room,omitempty"`
}
