package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/scheduler"
)

type (
	// Dispatcher delivers alerts. Dispatch must not block the caller.
	Dispatcher interface {
		Dispatch(ctx context.Context, alert *safety.Alert)
	}

	// Actuator drives local feedback. Failures are swallowed by the implementation.
	Actuator interface {
		Vibrate(ctx context.Context)
		Notify(ctx context.Context, kind safety.EventCode, title, body string)
	}

	// LocationProvider returns the wearer's position if it is known within timeout.
	LocationProvider interface {
		BestEffortLocation(ctx context.Context, timeout time.Duration) (*safety.Location, bool)
	}

	// StatusSink receives a snapshot every time the observable state changes.
	// It is called from the event loop and must not block.
	StatusSink interface {
		PublishStatus(status Status)
	}
)

// Options configures an engine.
type Options struct {
	Config     Config
	DeviceID   string
	UserID     string
	Contacts   []safety.EmergencyContact
	Dispatcher Dispatcher
	Actuator   Actuator
	// Location is optional; without it alerts carry no location.
	Location LocationProvider
	// StatusSink is optional.
	StatusSink StatusSink
	// OnFallDismissed is called from the event loop when a pending fall
	// prompt is answered, so the fall detector can be reset.
	OnFallDismissed func()
}

// Status is the observable part of the engine state.
type Status struct {
	HeartRateBPM            int       `json:"heartRateBpm"`
	Wearing                 bool      `json:"wearing"`
	PendingFallConfirmation bool      `json:"pendingFallConfirmation"`
	LastAlertAt             time.Time `json:"lastAlertAt,omitzero"`
}

var (
	// ErrEngineClosed is returned when events are submitted after Close.
	ErrEngineClosed = errors.New("engine is closed")
	// ErrDispatcherRequired is returned when no dispatcher is configured.
	ErrDispatcherRequired = errors.New("dispatcher is required")
	// ErrActuatorRequired is returned when no actuator is configured.
	ErrActuatorRequired = errors.New("actuator is required")
)

// Engine is the safety engine.
type Engine struct {
	opts  *Options
	cfg   Config
	sched *scheduler.Scheduler

	events     chan safety.Event
	timerFired chan timerFire
	closing    chan struct{}
	done       chan struct{}
	closeOnce  sync.Once

	// state is touched only by the loop goroutine.
	state state

	statusMu sync.RWMutex
	status   Status

	jobsCtx    context.Context //nolint:containedctx // Parent of every alert job.
	cancelJobs context.CancelFunc
	jobsMu     sync.Mutex
	jobs       map[uint64]context.CancelFunc
	nextJobID  uint64
	jobsWG     sync.WaitGroup
}

// state is the engine state owned by the loop.
type state struct {
	isWearing               bool
	lastBpm                 int
	lastAlertTimestamp      time.Time
	highHrArmed             bool
	lowHrArmed              bool
	pendingFallConfirmation bool
	// timerGen counts the timers started per key; only the newest may fire.
	timerGen map[string]uint64
}

// timerFire is delivered to the loop when a confirmation timer expires.
type timerFire struct {
	key string
	gen uint64
}

// Start validates the options and starts the event loop.
// The loop stops when ctx is done or Close is called.
func Start(ctx context.Context, opts *Options) (*Engine, error) {
	if opts.Dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	if opts.Actuator == nil {
		return nil, ErrActuatorRequired
	}

	cfg := opts.Config

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultConfig().QueueSize
	}

	ctx = logger.WithName(ctx, "engine")
	jobsCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))

	e := &Engine{
		opts:       opts,
		cfg:        cfg,
		sched:      scheduler.New(),
		events:     make(chan safety.Event, queueSize),
		timerFired: make(chan timerFire),
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
		state: state{
			isWearing:   true,
			highHrArmed: true,
			lowHrArmed:  true,
			timerGen:    make(map[string]uint64),
		},
		jobsCtx:    jobsCtx,
		cancelJobs: cancelJobs,
		jobs:       make(map[uint64]context.CancelFunc),
	}

	e.status = e.snapshot()

	go e.loop(ctx)

	logger.InfoKV(ctx, "Safety engine started",
		"device_id", opts.DeviceID,
		"high_threshold", cfg.HighThreshold,
		"low_threshold", cfg.LowThreshold,
	)

	return e, nil
}

// Submit hands one event to the engine. It blocks only while the queue is
// full and returns ErrEngineClosed once the loop has stopped.
func (e *Engine) Submit(ctx context.Context, event safety.Event) error {
	select {
	case <-e.done:
		return ErrEngineClosed
	default:
	}

	select {
	case e.events <- event:
		return nil
	case <-e.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return fmt.Errorf("failed to submit %s: %w", event, ctx.Err())
	}
}

// Status returns the current observable state.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()

	return e.status
}

// Close stops the loop, cancels every timer and alert job and waits for the
// job goroutines until ctx is done.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		close(e.closing)
	})

	e.sched.Stop()

	select {
	case <-e.done:
	case <-ctx.Done():
		return fmt.Errorf("failed to stop event loop: %w", ctx.Err())
	}

	e.cancelJobs()

	jobsDone := make(chan struct{})

	go func() {
		e.jobsWG.Wait()
		close(jobsDone)
	}()

	select {
	case <-jobsDone:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for alert jobs: %w", ctx.Err())
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Safety engine stopped by context")

			return
		case <-e.closing:
			logger.Info(ctx, "Safety engine closed")

			return
		case event := <-e.events:
			e.handle(ctx, event)
		case fire := <-e.timerFired:
			if fire.gen != e.state.timerGen[fire.key] {
				logger.DebugKV(ctx, "Superseded timer ignored", "key", fire.key)

				break
			}

			e.onTimer(ctx, fire.key)
		}

		e.publishStatus()
	}
}

// schedule starts a confirmation timer whose expiry is handled by the loop.
// A fire that reaches the loop after a newer timer was started for the same
// key is dropped, so every excursion waits its full window.
func (e *Engine) schedule(key string, d time.Duration) bool {
	fire := timerFire{key: key, gen: e.state.timerGen[key] + 1}

	started := e.sched.Schedule(key, d, func() {
		select {
		case e.timerFired <- fire:
		case <-e.done:
		}
	})
	if started {
		e.state.timerGen[key] = fire.gen
	}

	return started
}

func (e *Engine) snapshot() Status {
	return Status{
		HeartRateBPM:            e.state.lastBpm,
		Wearing:                 e.state.isWearing,
		PendingFallConfirmation: e.state.pendingFallConfirmation,
		LastAlertAt:             e.state.lastAlertTimestamp,
	}
}

// publishStatus stores the snapshot and notifies the sink on change.
func (e *Engine) publishStatus() {
	current := e.snapshot()

	e.statusMu.Lock()
	changed := current != e.status
	e.status = current
	e.statusMu.Unlock()

	if changed && e.opts.StatusSink != nil {
		e.opts.StatusSink.PublishStatus(current)
	}
}

func newEventID() string {
	return uuid.NewString()
}
