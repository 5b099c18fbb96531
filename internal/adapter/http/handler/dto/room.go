package dto

import "github.com/Temutjin2k/room-compass/internal/domain/models"

type RegisterRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type CreateRoomRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type LockRequest struct {
	Open *bool `json:"open" validate:"required"`
}

type SettingsRequest struct {
	Name string  `json:"name" validate:"required,max=64"`
	Icon *string `json:"icon,omitempty" validate:"omitempty,http_url,max=2048"`
}

func (r *SettingsRequest) ToModel() models.UserSettings {
	return models.UserSettings{
		Name: r.Name,
		Icon: r.Icon,
	}
}

type LocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Accuracy  float64  `json:"accuracy,omitempty" validate:"gte=0"`
}

func (r *LocationRequest) ToModel() models.PositionPayload {
	return models.PositionPayload{
		GeoPoint: models.GeoPoint{
			Latitude:  *r.Latitude,
			Longitude: *r.Longitude,
			Altitude:  r.Altitude,
		},
		Accuracy: r.Accuracy,
	}
}

type RegisterResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}
