package compass

import (
	"github.com/Temutjin2k/room-compass/internal/domain/models"
	"github.com/Temutjin2k/room-compass/internal/service/geodesy"
)

// strategy reads a compass heading out of an orientation event.
type strategy interface {
	heading(ev models.OrientationEvent) (float64, bool)
}

// directHeading is used by devices reporting the compass heading themselves.
type directHeading struct{}

func (directHeading) heading(ev models.OrientationEvent) (float64, bool) {
	if ev.WebkitCompassHeading == nil {
		return 0, false
	}
	return geodesy.Normalize(*ev.WebkitCompassHeading), true
}

// rotationFromNorth derives the heading from alpha, which grows counter-clockwise.
type rotationFromNorth struct{}

func (rotationFromNorth) heading(ev models.OrientationEvent) (float64, bool) {
	if ev.Alpha == nil {
		return 0, false
	}
	return geodesy.Normalize(360 - *ev.Alpha), true
}

func strategyFor(directOrientation bool) strategy {
	if directOrientation {
		return directHeading{}
	}
	return rotationFromNorth{}
}

// Correct turns a magnetic heading into a true heading.
func Correct(heading, declination float64) float64 {
	return geodesy.Normalize(heading + declination + 360)
}

// DisplayRotation is how far the pointer has to turn so it points at the peer
// while the device faces heading. Always in [0,360).
func DisplayRotation(bearing, heading float64) float64 {
	return geodesy.Normalize(bearing - heading + 360)
}

// Smoother is an exponential moving average over angles. It follows the
// shortest arc so 359 and 1 average to 0 instead of 180.
type Smoother struct {
	weight float64
	value  float64
	seeded bool
}

// NewSmoother returns a smoother giving weight to each new sample and
// 1-weight to the rolling value.
func NewSmoother(weight float64) *Smoother {
	if weight <= 0 || weight > 1 {
		weight = 0.1
	}
	return &Smoother{weight: weight}
}

// Add feeds a sample and returns the new rolling value. The first sample seeds it.
func (s *Smoother) Add(deg float64) float64 {
	deg = geodesy.Normalize(deg)
	if !s.seeded {
		s.value = deg
		s.seeded = true
		return s.value
	}

	diff := geodesy.Normalize(deg - s.value)
	if diff > 180 {
		diff -= 360
	}
	s.value = geodesy.Normalize(s.value + s.weight*diff)
	return s.value
}

func (s *Smoother) Value() (float64, bool) {
	return s.value, s.seeded
}

func (s *Smoother) Reset() {
	s.value = 0
	s.seeded = false
}
