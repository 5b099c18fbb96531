package models

import "time"

// GeoPoint is one participant's last known position. Latitude, longitude and
// altitude always travel together.
type GeoPoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// Alt is a helper for building optional altitudes.
func Alt(v float64) *float64 {
	return &v
}

// Clone returns a deep copy of p (nil stays nil).
func (p *GeoPoint) Clone() *GeoPoint {
	if p == nil {
		return nil
	}
	c := *p
	if p.Altitude != nil {
		c.Altitude = Alt(*p.Altitude)
	}
	return &c
}

// PairState is the session's view of itself and its peer.
type PairState struct {
	Self *GeoPoint `json:"self"`
	Peer *GeoPoint `json:"peer"`
}

// PairMetrics are derived from a PairState. All fields are zero unless both
// sides are known.
type PairMetrics struct {
	Distance    float64 `json:"distance"`
	Bearing     float64 `json:"bearing"`
	Height      float64 `json:"height"`
	HeightKnown bool    `json:"height_known"`
}

// PositionReading is one geolocation sensor sample reported by a device.
type PositionReading struct {
	Point      GeoPoint  `json:"point"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
