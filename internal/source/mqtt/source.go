package mqtt

import (
	"context"

	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/source"
)

// Subscriber is the part of Client the source needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// Source receives device samples from MQTT topics
// {prefix}/{device}/{accel|hr|presence|location}.
type Source struct {
	client   Subscriber
	cfg      Config
	deviceID string
}

// NewSource creates an MQTT sample source.
func NewSource(client Subscriber, cfg Config, deviceID string) *Source {
	return &Source{
		client:   client,
		cfg:      cfg,
		deviceID: deviceID,
	}
}

// Name implements source.Source.
func (s *Source) Name() string {
	return "mqtt"
}

// Run subscribes to the device topics and blocks until ctx is done.
func (s *Source) Run(ctx context.Context, out *source.Channels) error {
	ctx = logger.WithName(ctx, "mqtt-source")
	topic := Topic(s.cfg.TopicPrefix, s.deviceID, "+")

	if err := s.client.Subscribe(topic, s.cfg.QoS, s.handler(ctx, out)); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Subscribed to device samples", "topic", topic)

	<-ctx.Done()

	return nil
}

func (s *Source) handler(ctx context.Context, out *source.Channels) MessageHandler {
	return func(topic string, payload []byte) {
		kind := source.Kind(source.LastSegment(topic, "/"))

		if err := source.Route(ctx, out, kind, payload); err != nil {
			logger.WarnKV(ctx, "Sample rejected", "topic", topic, "error", err)
		}
	}
}
