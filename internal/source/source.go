// Package source carries raw device samples into the pipeline.
//
// A Source pushes decoded samples into Channels without ever blocking: when a
// channel is full the sample is dropped and logged, so a slow consumer can not
// stall the transport. Adapters for MQTT and NATS live in subpackages.
package source

import (
	"context"
	"strings"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
)

// DefaultBufferSize is the capacity of every sample channel.
const DefaultBufferSize = 256

// Channels are the sample streams consumed by the pipeline.
type Channels struct {
	Acceleration chan safety.AccelerationSample
	HeartRate    chan safety.BpmSample
	Presence     chan safety.PresenceSample
	Location     chan safety.LocationFix
}

// NewChannels creates buffered sample channels.
func NewChannels(size int) *Channels {
	if size <= 0 {
		size = DefaultBufferSize
	}

	return &Channels{
		Acceleration: make(chan safety.AccelerationSample, size),
		HeartRate:    make(chan safety.BpmSample, size),
		Presence:     make(chan safety.PresenceSample, size),
		Location:     make(chan safety.LocationFix, size),
	}
}

// Source produces samples until ctx is done.
type Source interface {
	Name() string
	Run(ctx context.Context, out *Channels) error
}

// Offer sends v without blocking. It reports false if the sample was dropped.
func Offer[T any](ctx context.Context, ch chan<- T, v T, kind Kind) bool {
	select {
	case ch <- v:
		return true
	default:
		logger.WarnKV(ctx, "Sample channel is full, sample dropped", "kind", kind)

		return false
	}
}

// LastSegment returns the part of a topic or subject after the final separator.
func LastSegment(topic string, separator string) string {
	if i := strings.LastIndex(topic, separator); i >= 0 {
		return topic[i+len(separator):]
	}

	return topic
}
