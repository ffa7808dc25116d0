package fall

import (
	"context"
	"math"
	"time"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
)

// Config holds the fall detection thresholds. Magnitudes are in m/s².
type Config struct {
	// FreeFallThreshold is the magnitude below which the device is considered falling.
	FreeFallThreshold float64 `yaml:"free_fall_threshold"`
	// FreeFallMinDuration is how long the magnitude must stay below the threshold.
	FreeFallMinDuration time.Duration `yaml:"free_fall_min_duration"`
	// ImpactThreshold is the magnitude above which a sample counts as an impact.
	ImpactThreshold float64 `yaml:"impact_threshold"`
	// FreeFallToImpactWindow is the longest accepted gap between free fall and impact.
	FreeFallToImpactWindow time.Duration `yaml:"free_fall_to_impact_window"`
	// StillnessDeltaThreshold is the inter-sample delta below which the wearer is still.
	StillnessDeltaThreshold float64 `yaml:"stillness_delta_threshold"`
	// MovementDeltaThreshold is the inter-sample delta above which stillness resets.
	MovementDeltaThreshold float64 `yaml:"movement_delta_threshold"`
	// RequiredStillness is how long the wearer must stay still after the impact.
	RequiredStillness time.Duration `yaml:"required_stillness"`
	// ImpactStillnessWindow discards impacts that were not followed by stillness in time.
	ImpactStillnessWindow time.Duration `yaml:"impact_stillness_window"`
	// Cooldown is the minimum spacing between two decisions.
	Cooldown time.Duration `yaml:"cooldown"`
}

// DefaultConfig returns the thresholds used on the reference watch.
func DefaultConfig() Config {
	return Config{
		FreeFallThreshold:       2.0,
		FreeFallMinDuration:     200 * time.Millisecond,
		ImpactThreshold:         30.0,
		FreeFallToImpactWindow:  800 * time.Millisecond,
		StillnessDeltaThreshold: 0.8,
		MovementDeltaThreshold:  1.5,
		RequiredStillness:       2 * time.Second,
		ImpactStillnessWindow:   4 * time.Second,
		Cooldown:                5 * time.Second,
	}
}

// State is the detector bookkeeping. Zero timestamps mean "not seen".
type State struct {
	LastFreeFallTime    time.Time
	LastImpactTime      time.Time
	LastStillnessTime   time.Time
	PreviousMagnitude   float64
	LastFallTriggeredAt time.Time

	// freeFallStart is the first sample of the current sub-threshold run.
	freeFallStart time.Time
}

// Detector turns accelerometer samples into fall decisions.
// It is not safe for concurrent use; a single pipeline goroutine owns it.
type Detector struct {
	cfg   Config
	state State
}

// NewDetector creates a detector with the provided thresholds.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg: cfg,
		state: State{
			PreviousMagnitude: safety.StandardGravity,
		},
	}
}

// State returns a copy of the detector bookkeeping.
func (d *Detector) State() State {
	return d.state
}

// Reset clears every timestamp, including the cooldown, so detection is
// re-enabled immediately. It is called when the confirmation prompt is dismissed.
func (d *Detector) Reset() {
	d.state = State{PreviousMagnitude: d.state.PreviousMagnitude}
}

// Process feeds one sample and reports whether a fall was detected.
func (d *Detector) Process(ctx context.Context, sample safety.AccelerationSample) bool {
	var (
		now       = sample.At
		magnitude = sample.Magnitude()
	)

	d.trackStillness(now, magnitude)
	d.trackFreeFall(ctx, now, magnitude)
	d.trackImpact(ctx, now, magnitude)

	return d.decide(ctx, now)
}

// trackStillness maintains the start of the current still period.
func (d *Detector) trackStillness(now time.Time, magnitude float64) {
	delta := math.Abs(magnitude - d.state.PreviousMagnitude)
	d.state.PreviousMagnitude = magnitude

	switch {
	case delta < d.cfg.StillnessDeltaThreshold:
		if d.state.LastStillnessTime.IsZero() {
			d.state.LastStillnessTime = now
		}
	case delta > d.cfg.MovementDeltaThreshold:
		d.state.LastStillnessTime = time.Time{}
	}
}

// trackFreeFall records a free fall once the magnitude stayed low long enough.
func (d *Detector) trackFreeFall(ctx context.Context, now time.Time, magnitude float64) {
	if magnitude >= d.cfg.FreeFallThreshold {
		d.state.freeFallStart = time.Time{}

		return
	}

	if d.state.freeFallStart.IsZero() {
		d.state.freeFallStart = now
	}

	if now.Sub(d.state.freeFallStart) < d.cfg.FreeFallMinDuration {
		return
	}

	if d.state.LastFreeFallTime.IsZero() {
		logger.DebugKV(ctx, "Free fall detected", "magnitude", magnitude)
	}

	d.state.LastFreeFallTime = now
}

// trackImpact records an impact only when it closely follows a free fall.
func (d *Detector) trackImpact(ctx context.Context, now time.Time, magnitude float64) {
	if magnitude <= d.cfg.ImpactThreshold {
		return
	}

	if d.state.LastFreeFallTime.IsZero() || now.Sub(d.state.LastFreeFallTime) > d.cfg.FreeFallToImpactWindow {
		logger.DebugKV(ctx, "Impact without preceding free fall ignored", "magnitude", magnitude)

		return
	}

	logger.DebugKV(ctx, "Impact detected", "magnitude", magnitude)

	d.state.LastImpactTime = now
}

// decide checks whether the current episode is a fall.
func (d *Detector) decide(ctx context.Context, now time.Time) bool {
	if d.state.LastImpactTime.IsZero() {
		return false
	}

	if d.stillnessSinceImpact(now) <= d.cfg.RequiredStillness {
		if now.Sub(d.state.LastImpactTime) > d.cfg.ImpactStillnessWindow {
			logger.DebugKV(ctx, "Stale impact discarded", "impact_age", now.Sub(d.state.LastImpactTime))
			d.clearEpisode()
		}

		return false
	}

	if last := d.state.LastFallTriggeredAt; !last.IsZero() && now.Sub(last) <= d.cfg.Cooldown {
		logger.DebugKV(ctx, "Fall suppressed by cooldown", "since_last", now.Sub(last))
		d.clearEpisode()

		return false
	}

	logger.InfoKV(ctx, "Fall detected", "impact_at", d.state.LastImpactTime, "still_since", d.state.LastStillnessTime)

	d.clearEpisode()
	d.state.LastFallTriggeredAt = now

	return true
}

// stillnessSinceImpact returns how long the wearer has been still after the impact.
func (d *Detector) stillnessSinceImpact(now time.Time) time.Duration {
	still := d.state.LastStillnessTime
	if still.IsZero() || still.Before(d.state.LastImpactTime) {
		return 0
	}

	return now.Sub(still)
}

// clearEpisode forgets the current free fall, impact and stillness.
func (d *Detector) clearEpisode() {
	d.state.LastFreeFallTime = time.Time{}
	d.state.LastImpactTime = time.Time{}
	d.state.LastStillnessTime = time.Time{}
	d.state.freeFallStart = time.Time{}
}
