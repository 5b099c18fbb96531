package tracker

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/domain/types"
)

// SensorFeed keeps the latest reading pushed by the device and serves it as a PositionSource.
type SensorFeed struct {
	mu   sync.RWMutex
	last *models.PositionReading
	now  func() time.Time
}

func NewSensorFeed() *SensorFeed {
	return &SensorFeed{now: time.Now}
}

// Push stores a new reading. Out of range coordinates are rejected.
func (f *SensorFeed) Push(point models.GeoPoint, accuracy float64) error {
	if !validPoint(point) {
		return types.ErrInvalidCoordinates
	}

	r := models.PositionReading{
		Point:      *point.Clone(),
		AccuracyM:  accuracy,
		ReceivedAt: f.now(),
	}

	f.mu.Lock()
	f.last = &r
	f.mu.Unlock()
	return nil
}

// Current returns the latest reading or types.ErrNoCoordinates.
func (f *SensorFeed) Current(_ context.Context) (*models.GeoPoint, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.last == nil {
		return nil, types.ErrNoCoordinates
	}
	return f.last.Point.Clone(), nil
}

// Last returns the latest reading with its metadata.
func (f *SensorFeed) Last() (models.PositionReading, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.last == nil {
		return models.PositionReading{}, false
	}
	return *f.last, true
}

func validPoint(p models.GeoPoint) bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return false
	}
	if p.Altitude != nil && (math.IsNaN(*p.Altitude) || math.IsInf(*p.Altitude, 0)) {
		return false
	}
	return true
}
