// Package wearing tracks whether the watch is on the wearer's wrist.
//
// Two detectors share one interface: a recency detector that infers wearing
// from heart rate readings and a presence detector that trusts a dedicated
// on-body sensor. New picks one based on device capability.
package wearing

import (
	"time"
)

// State is the reported wearing state.
type State uint8

const (
	// StateUnknown is reported until the first signal or the startup grace expires.
	StateUnknown State = iota
	// StateWorn means the watch is on the wrist.
	StateWorn
	// StateRemoved means the watch was taken off.
	StateRemoved
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateWorn:
		return "worn"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Config holds wearing detection timings.
type Config struct {
	// RemovalTimeout is how long without a positive signal before a worn watch counts as removed.
	RemovalTimeout time.Duration `yaml:"removal_timeout"`
	// StartupDelay is the grace period after start before signal absence means removal.
	StartupDelay time.Duration `yaml:"startup_delay"`
	// CheckInterval is how often the pipeline calls Check.
	CheckInterval time.Duration `yaml:"check_interval"`
}

// DefaultConfig returns the default wearing timings.
func DefaultConfig() Config {
	return Config{
		RemovalTimeout: 18 * time.Second,
		StartupDelay:   5 * time.Second,
		CheckInterval:  500 * time.Millisecond,
	}
}

// Detector reports edge-triggered wearing transitions.
// Every method returns the new state and true only when the state changed.
type Detector interface {
	// ObserveHeartRate feeds a validated heart rate reading.
	ObserveHeartRate(at time.Time, bpm int) (State, bool)
	// ObservePresence feeds an on-body sensor reading.
	ObservePresence(at time.Time, onBody bool) (State, bool)
	// Check evaluates timeouts at the given instant.
	Check(at time.Time) (State, bool)
	// State returns the current state.
	State() State
}

// New returns the presence detector when the device has an on-body sensor
// and the heart rate recency detector otherwise.
func New(cfg Config, hasPresenceSensor bool, startedAt time.Time) Detector {
	if hasPresenceSensor {
		return NewPresence(cfg, startedAt)
	}

	return NewRecency(cfg, startedAt)
}

// tracker holds the bookkeeping both detectors share.
type tracker struct {
	cfg             Config
	state           State
	lastSignalTime  time.Time
	sensorStartTime time.Time
}

func (t *tracker) State() State {
	return t.state
}

// transition moves to next and reports whether anything changed.
func (t *tracker) transition(next State) (State, bool) {
	if t.state == next {
		return t.state, false
	}

	t.state = next

	return t.state, true
}

// positive refreshes the signal time and moves to worn.
func (t *tracker) positive(at time.Time) (State, bool) {
	t.lastSignalTime = at

	return t.transition(StateWorn)
}

// startupExpired reports whether no signal arrived within the startup grace.
func (t *tracker) startupExpired(at time.Time) bool {
	return t.state == StateUnknown &&
		t.lastSignalTime.IsZero() &&
		at.Sub(t.sensorStartTime) >= t.cfg.StartupDelay
}
