// Package geodesy computes distance, bearing and altitude difference between
// two participants. All functions are pure and never return NaN for finite input.
package geodesy

import (
	"fmt"
	"math"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/tidwall/geodesic"
)

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func radiansToDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Distance returns the WGS84 geodesic distance in meters between p1 and p2.
func Distance(p1, p2 models.GeoPoint) float64 {
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	var s12 float64
	geodesic.WGS84.Inverse(p1.Latitude, p1.Longitude, p2.Latitude, p2.Longitude, &s12, nil, nil)
	if math.IsNaN(s12) || math.IsInf(s12, 0) {
		return 0
	}
	return math.Abs(s12)
}

// Bearing returns the initial spherical bearing from p1 to p2 in [0,360).
// Coincident points yield 0.
func Bearing(p1, p2 models.GeoPoint) float64 {
	φ1 := degreesToRadians(p1.Latitude)
	φ2 := degreesToRadians(p2.Latitude)
	Δλ := degreesToRadians(p2.Longitude - p1.Longitude)

	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	if math.Abs(x) < 1e-15 && math.Abs(y) < 1e-15 {
		return 0
	}

	return Normalize(radiansToDegrees(math.Atan2(y, x)))
}

// HeightDiff returns alt1 - alt2, nil if either altitude is unknown.
func HeightDiff(alt1, alt2 *float64) *float64 {
	if alt1 == nil || alt2 == nil {
		return nil
	}
	d := *alt1 - *alt2
	return &d
}

// Pair derives the metrics of a pair. Everything stays zero until both sides are known.
func Pair(self, peer *models.GeoPoint) models.PairMetrics {
	if self == nil || peer == nil {
		return models.PairMetrics{}
	}

	m := models.PairMetrics{
		Distance: Distance(*self, *peer),
		Bearing:  Bearing(*self, *peer),
	}
	if h := HeightDiff(self.Altitude, peer.Altitude); h != nil {
		m.Height = *h
		m.HeightKnown = true
	}
	return m
}

// Normalize maps any finite angle into [0,360).
func Normalize(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// -1e-14 + 360 rounds to 360
	if d >= 360 {
		d = 0
	}
	return d
}

var directions = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Direction converts a bearing to an 8-point compass label.
func Direction(deg float64) string {
	idx := int(math.Round(Normalize(deg)/45)) % 8
	return directions[idx]
}

// FormatDistance renders meters for display: whole meters below 1 km,
// kilometers with three decimals above.
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.3f km", meters/1000)
	}
	return fmt.Sprintf("%d m", int(math.Round(meters)))
}
