package safety

import (
	"math"
	"time"
)

// StandardGravity is the magnitude a resting accelerometer reports, in m/s².
const StandardGravity = 9.80665

// AccelerationSample is one 3-axis accelerometer reading in m/s².
type AccelerationSample struct {
	At      time.Time
	X, Y, Z float64
}

// Magnitude returns the euclidean norm of the acceleration vector.
func (s AccelerationSample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// BpmSample is one heart rate reading. BPM == 0 means "no reading".
type BpmSample struct {
	At  time.Time
	BPM int
}

// PresenceSample is one reading of a dedicated on-body sensor.
type PresenceSample struct {
	At     time.Time
	OnBody bool
}

// LocationFix is a position reported by the device.
type LocationFix struct {
	At       time.Time
	Location Location
}
