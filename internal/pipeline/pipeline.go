// Package pipeline feeds raw samples through the detectors into the engine.
//
// Each detector is owned by exactly one goroutine: the fall goroutine owns
// the fall detector, the vitals goroutine owns the heart rate filter and the
// wearing detector. Nothing else touches their state.
package pipeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/safety-monitor/internal/detector/fall"
	"github.com/oshokin/safety-monitor/internal/detector/heartrate"
	"github.com/oshokin/safety-monitor/internal/detector/wearing"
	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/engine"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/source"
)

type (
	// Submitter accepts engine events.
	Submitter interface {
		Submit(ctx context.Context, event safety.Event) error
	}

	// LocationSink stores location fixes reported by the device.
	LocationSink interface {
		Update(fix safety.LocationFix)
	}
)

// Options configures the detectors.
type Options struct {
	HeartRate         heartrate.Config
	Fall              fall.Config
	Wearing           wearing.Config
	HasPresenceSensor bool
	// LogLevel overrides the process level for the detector goroutines when set.
	LogLevel string
	// Location is optional; fixes are dropped without it.
	Location LocationSink
}

// Pipeline connects sample channels to the engine.
type Pipeline struct {
	opts      *Options
	fallReset chan struct{}
}

// New creates a pipeline.
func New(opts *Options) *Pipeline {
	return &Pipeline{
		opts:      opts,
		fallReset: make(chan struct{}, 1),
	}
}

// ResetFall asks the fall goroutine to reset its detector. It never blocks.
func (p *Pipeline) ResetFall() {
	select {
	case p.fallReset <- struct{}{}:
	default:
	}
}

// Run consumes samples until ctx is done or the engine is closed.
// Wearing timeouts are measured on the local clock, not on sample timestamps.
func (p *Pipeline) Run(ctx context.Context, in *source.Channels, sink Submitter) error {
	ctx = logger.WithName(ctx, "pipeline")

	if p.opts.LogLevel != "" {
		if lvl, ok := logger.ParseLogLevel(p.opts.LogLevel); ok {
			ctx = logger.WithLevelOverride(ctx, lvl)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return p.runFall(logger.WithName(groupCtx, "fall"), in.Acceleration, sink)
	})

	group.Go(func() error {
		return p.runVitals(logger.WithName(groupCtx, "vitals"), in, sink)
	})

	err := group.Wait()
	if errors.Is(err, engine.ErrEngineClosed) || errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (p *Pipeline) runFall(ctx context.Context, samples <-chan safety.AccelerationSample, sink Submitter) error {
	detector := fall.NewDetector(p.opts.Fall)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.fallReset:
			detector.Reset()
			logger.Debugf(ctx, "Fall detector reset")
		case sample := <-samples:
			if !detector.Process(ctx, sample) {
				continue
			}

			if err := sink.Submit(ctx, safety.FallDetected{}); err != nil {
				return err
			}
		}
	}
}

func (p *Pipeline) runVitals(ctx context.Context, in *source.Channels, sink Submitter) error {
	var (
		filter   = heartrate.NewFilter(p.opts.HeartRate)
		detector = wearing.New(p.opts.Wearing, p.opts.HasPresenceSensor, time.Now())
	)

	interval := p.opts.Wearing.CheckInterval
	if interval <= 0 {
		interval = wearing.DefaultConfig().CheckInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var (
			state   wearing.State
			changed bool
		)

		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			state, changed = detector.Check(now)
		case sample := <-in.HeartRate:
			bpm, ok := filter.Process(sample)
			if !ok {
				continue
			}

			if err := sink.Submit(ctx, safety.HeartRate{BPM: bpm}); err != nil {
				return err
			}

			state, changed = detector.ObserveHeartRate(time.Now(), bpm)
		case sample := <-in.Presence:
			state, changed = detector.ObservePresence(time.Now(), sample.OnBody)
		case fix := <-in.Location:
			if p.opts.Location != nil {
				p.opts.Location.Update(fix)
			}
		}

		if !changed {
			continue
		}

		logger.InfoKV(ctx, "Wearing state changed", "state", state)

		if err := sink.Submit(ctx, wearingEvent(state)); err != nil {
			return err
		}
	}
}

func wearingEvent(state wearing.State) safety.Event {
	if state == wearing.StateRemoved {
		return safety.WatchRemoved{}
	}

	return safety.WatchWornAgain{}
}
