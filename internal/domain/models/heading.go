package models

// OrientationEvent is one device orientation sample. Depending on the platform
// either the compass heading is reported directly or only alpha, the rotation
// from north around the z axis.
type OrientationEvent struct {
	WebkitCompassHeading *float64 `json:"webkit_compass_heading,omitempty"`
	Alpha                *float64 `json:"alpha,omitempty"`
}

// HeadingState is recomputed whenever the compass heading or the bearing changes.
type HeadingState struct {
	CompassHeading  float64 `json:"compass_heading"`
	BearingToPeer   float64 `json:"bearing_to_peer"`
	DisplayRotation float64 `json:"display_rotation"`
}
