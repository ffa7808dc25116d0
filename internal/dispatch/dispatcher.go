// Package dispatch delivers alerts to caregivers without blocking the engine.
//
// A Dispatcher fans every alert out to its senders, each delivery in its own
// goroutine. Failures are logged here and never reach the caller. Senders are
// retried only when MaxAttempts is above one.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
)

// Sender delivers one alert over one transport.
type Sender interface {
	Name() string
	Send(ctx context.Context, alert *safety.Alert) error
}

// Options configures the dispatcher.
type Options struct {
	Senders []Sender
	// MaxAttempts is how many times a failed sender is tried. Zero means one.
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// SendTimeout bounds every single attempt.
	SendTimeout time.Duration
}

// DefaultSendTimeout bounds a delivery attempt when no timeout is configured.
const DefaultSendTimeout = 10 * time.Second

// ErrNoSenders is returned when the dispatcher has nowhere to deliver.
var ErrNoSenders = errors.New("no alert senders configured")

// Dispatcher implements the engine's fire-and-forget dispatch.
type Dispatcher struct {
	opts     Options
	wg       sync.WaitGroup
	closing  chan struct{}
	closeMux sync.Once
}

// New creates a dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if len(opts.Senders) == 0 {
		return nil, ErrNoSenders
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}

	return &Dispatcher{
		opts:    opts,
		closing: make(chan struct{}),
	}, nil
}

// Dispatch starts one delivery per sender and returns immediately.
// Deliveries outlive ctx cancellation; only Close stops retries.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *safety.Alert) {
	ctx = logger.WithKV(context.WithoutCancel(ctx),
		"event_id", alert.EventID,
		"event_code", alert.EventCode,
	)

	for _, sender := range d.opts.Senders {
		d.wg.Add(1)

		go func() {
			defer d.wg.Done()

			d.deliver(logger.WithKV(ctx, "sender", sender.Name()), sender, alert.Clone())
		}()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sender Sender, alert *safety.Alert) {
	var err error

	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		if err = d.attempt(ctx, sender, alert); err == nil {
			logger.InfoKV(ctx, "Alert delivered", "attempt", attempt)

			return
		}

		if attempt == d.opts.MaxAttempts {
			break
		}

		logger.WarnKV(ctx, "Alert delivery failed, retrying", "attempt", attempt, "error", err)

		select {
		case <-time.After(time.Duration(attempt) * d.opts.Backoff):
		case <-d.closing:
			logger.WarnKV(ctx, "Alert delivery abandoned on shutdown", "attempt", attempt)

			return
		}
	}

	logger.ErrorKV(ctx, "Alert delivery failed", "attempts", d.opts.MaxAttempts, "error", err)
}

func (d *Dispatcher) attempt(ctx context.Context, sender Sender, alert *safety.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	return sender.Send(ctx, alert)
}

// Close stops pending retries and waits for in-flight deliveries until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeMux.Do(func() {
		close(d.closing)
	})

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for alert deliveries: %w", ctx.Err())
	}
}
