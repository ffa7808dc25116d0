package wearing

import (
	"time"
)

// Presence follows a dedicated on-body sensor.
type Presence struct {
	tracker
}

// NewPresence creates an on-body sensor detector started at startedAt.
func NewPresence(cfg Config, startedAt time.Time) *Presence {
	return &Presence{
		tracker: tracker{
			cfg:             cfg,
			sensorStartTime: startedAt,
		},
	}
}

// ObserveHeartRate is ignored; the on-body sensor is authoritative.
func (p *Presence) ObserveHeartRate(time.Time, int) (State, bool) {
	return p.state, false
}

// ObservePresence applies the sensor reading.
func (p *Presence) ObservePresence(at time.Time, onBody bool) (State, bool) {
	if onBody {
		return p.positive(at)
	}

	p.lastSignalTime = at

	return p.transition(StateRemoved)
}

// Check only handles the startup grace; the sensor reports removals itself.
func (p *Presence) Check(at time.Time) (State, bool) {
	if p.startupExpired(at) {
		return p.transition(StateRemoved)
	}

	return p.state, false
}
