// Package location answers "where is the wearer" within a bounded wait.
package location

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// Config describes the location capability of the device.
type Config struct {
	// PermissionGranted is false when the wearer did not allow location access.
	PermissionGranted bool `yaml:"permission_granted"`
	// Static is a fixed position, used for stationary installations.
	Static *safety.Location `yaml:"static"`
	// MaxAge is how old a reported fix may be and still count as current.
	MaxAge time.Duration `yaml:"max_age"`
}

// DefaultMaxAge is used when no max age is configured.
const DefaultMaxAge = 2 * time.Minute

// Provider returns a location or false within timeout.
type Provider interface {
	BestEffortLocation(ctx context.Context, timeout time.Duration) (*safety.Location, bool)
}

// New picks a provider for cfg. The returned LastKnown is nil unless the
// device feed should be wired to it.
func New(cfg Config) (Provider, *LastKnown) {
	switch {
	case !cfg.PermissionGranted:
		return Denied{}, nil
	case cfg.Static != nil:
		return Static{Location: *cfg.Static}, nil
	default:
		last := NewLastKnown(cfg.MaxAge)

		return last, last
	}
}

// Denied never knows the location.
type Denied struct{}

// BestEffortLocation implements Provider.
func (Denied) BestEffortLocation(context.Context, time.Duration) (*safety.Location, bool) {
	return nil, false
}

// Static always returns the same position.
type Static struct {
	Location safety.Location
}

// BestEffortLocation implements Provider.
func (s Static) BestEffortLocation(context.Context, time.Duration) (*safety.Location, bool) {
	location := s.Location

	return &location, true
}

// LastKnown remembers the latest fix reported by the device.
// If the latest fix is stale it waits for a fresh one until the timeout.
type LastKnown struct {
	maxAge time.Duration

	mu      sync.Mutex
	last    safety.LocationFix
	hasFix  bool
	updated chan struct{}
}

// NewLastKnown creates an empty provider.
func NewLastKnown(maxAge time.Duration) *LastKnown {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	return &LastKnown{
		maxAge:  maxAge,
		updated: make(chan struct{}),
	}
}

// Update stores a fix and wakes up waiting lookups.
func (l *LastKnown) Update(fix safety.LocationFix) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.last = fix
	l.hasFix = true

	close(l.updated)
	l.updated = make(chan struct{})
}

// BestEffortLocation implements Provider.
func (l *LastKnown) BestEffortLocation(ctx context.Context, timeout time.Duration) (*safety.Location, bool) {
	location, ok, updated := l.current()
	if ok {
		return location, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-updated:
		location, ok, _ = l.current()

		return location, ok
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// current returns the fresh fix, if any, and the channel closed on the next update.
func (l *LastKnown) current() (*safety.Location, bool, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.hasFix || time.Since(l.last.At) > l.maxAge {
		return nil, false, l.updated
	}

	location := l.last.Location

	return &location, true, l.updated
}
