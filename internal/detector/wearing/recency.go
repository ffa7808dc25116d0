package wearing

import (
	"time"
)

// Recency infers wearing from how recently a non-zero heart rate arrived.
type Recency struct {
	tracker
}

// NewRecency creates a heart rate recency detector started at startedAt.
func NewRecency(cfg Config, startedAt time.Time) *Recency {
	return &Recency{
		tracker: tracker{
			cfg:             cfg,
			sensorStartTime: startedAt,
		},
	}
}

// ObserveHeartRate treats any positive reading as proof of wearing.
func (r *Recency) ObserveHeartRate(at time.Time, bpm int) (State, bool) {
	if bpm <= 0 {
		return r.state, false
	}

	return r.positive(at)
}

// ObservePresence is ignored; this detector has no on-body sensor.
func (r *Recency) ObservePresence(time.Time, bool) (State, bool) {
	return r.state, false
}

// Check moves to removed after the removal timeout or the startup grace.
func (r *Recency) Check(at time.Time) (State, bool) {
	switch {
	case r.state == StateWorn && at.Sub(r.lastSignalTime) >= r.cfg.RemovalTimeout:
		return r.transition(StateRemoved)
	case r.startupExpired(at):
		return r.transition(StateRemoved)
	default:
		return r.state, false
	}
}
