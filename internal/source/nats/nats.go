// Package nats receives device samples from NATS subjects
// {prefix}.{device}.{accel|hr|presence|location}.
package nats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/source"
)

// DefaultSubjectPrefix is the first subject token used when none is configured.
const DefaultSubjectPrefix = "safety"

// Config describes the NATS connection.
type Config struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Enabled reports whether a server is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// Subject joins the prefix, device and trailing tokens into a subject.
func Subject(prefix, deviceID string, tokens ...string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return strings.Join(append([]string{prefix, deviceID}, tokens...), ".")
}

// Connect dials the server with reconnects enabled.
func Connect(cfg Config, name string) (*nats.Conn, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	conn, err := nats.Connect(
		cfg.URL,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS %s: %w", cfg.URL, err)
	}

	return conn, nil
}

// Subscriber is the part of *nats.Conn the source needs.
type Subscriber interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Source receives device samples from NATS.
type Source struct {
	conn     Subscriber
	cfg      Config
	deviceID string
}

// NewSource creates a NATS sample source.
func NewSource(conn Subscriber, cfg Config, deviceID string) *Source {
	return &Source{
		conn:     conn,
		cfg:      cfg,
		deviceID: deviceID,
	}
}

// Name implements source.Source.
func (s *Source) Name() string {
	return "nats"
}

// Run subscribes to the device subjects and blocks until ctx is done.
func (s *Source) Run(ctx context.Context, out *source.Channels) error {
	ctx = logger.WithName(ctx, "nats-source")
	subject := Subject(s.cfg.SubjectPrefix, s.deviceID, "*")

	sub, err := s.conn.Subscribe(subject, s.handler(ctx, out))
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	logger.InfoKV(ctx, "Subscribed to device samples", "subject", subject)

	<-ctx.Done()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			logger.WarnKV(ctx, "Failed to unsubscribe", "subject", subject, "error", err)
		}
	}

	return nil
}

func (s *Source) handler(ctx context.Context, out *source.Channels) nats.MsgHandler {
	return func(msg *nats.Msg) {
		kind := source.Kind(source.LastSegment(msg.Subject, "."))

		if err := source.Route(ctx, out, kind, msg.Data); err != nil {
			logger.WarnKV(ctx, "Sample rejected", "subject", msg.Subject, "error", err)
		}
	}
}
