package engine

import (
	"slices"
	"time"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// Config holds the engine policy constants.
type Config struct {
	// HighThreshold is the BPM above which a high heart rate excursion starts.
	HighThreshold int `yaml:"high_threshold"`
	// HighWindow is how long a high excursion must last before it alerts.
	HighWindow time.Duration `yaml:"high_window"`
	// HighMargin is the hysteresis below HighThreshold that re-arms the alert.
	HighMargin int `yaml:"high_margin"`
	// LowThreshold is the BPM below which a low heart rate excursion starts.
	LowThreshold int `yaml:"low_threshold"`
	// LowWindow is how long a low excursion must last before it alerts.
	LowWindow time.Duration `yaml:"low_window"`
	// LowMargin is the hysteresis above LowThreshold that re-arms the alert.
	LowMargin int `yaml:"low_margin"`
	// AlertCooldown is the minimum spacing between two alerts.
	AlertCooldown time.Duration `yaml:"alert_cooldown"`
	// CooldownBypass lists event codes that ignore the cooldown.
	// WATCH_REMOVED always does.
	CooldownBypass []safety.EventCode `yaml:"cooldown_bypass"`
	// FallConfirmationWindow is how long the user gets to answer a fall prompt.
	FallConfirmationWindow time.Duration `yaml:"fall_confirmation_window"`
	// LocationTimeout bounds the best-effort location lookup.
	LocationTimeout time.Duration `yaml:"location_timeout"`
	// QueueSize is the capacity of the event queue.
	QueueSize int `yaml:"queue_size"`
}

// DefaultConfig returns the default engine policy.
func DefaultConfig() Config {
	return Config{
		HighThreshold:          120,
		HighWindow:             10 * time.Second,
		HighMargin:             10,
		LowThreshold:           45,
		LowWindow:              5 * time.Second,
		LowMargin:              5,
		AlertCooldown:          10 * time.Second,
		CooldownBypass:         []safety.EventCode{safety.EventEmergencyCall},
		FallConfirmationWindow: 15 * time.Second,
		LocationTimeout:        1200 * time.Millisecond,
		QueueSize:              128,
	}
}

// bypassesCooldown reports whether alerts with this code ignore the cooldown.
func (c Config) bypassesCooldown(code safety.EventCode) bool {
	return code == safety.EventWatchRemoved || slices.Contains(c.CooldownBypass, code)
}
