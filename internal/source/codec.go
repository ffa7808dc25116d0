package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// Kind names a sample stream. It is the last topic segment on the wire.
type Kind string

const (
	// KindAcceleration carries {"ts","x","y","z"}.
	KindAcceleration Kind = "accel"
	// KindHeartRate carries {"ts","bpm"}.
	KindHeartRate Kind = "hr"
	// KindPresence carries {"ts","onBody"}.
	KindPresence Kind = "presence"
	// KindLocation carries {"ts","latitude","longitude"}.
	KindLocation Kind = "location"
)

// Kinds lists every stream a device may publish.
var Kinds = []Kind{KindAcceleration, KindHeartRate, KindPresence, KindLocation}

// ErrUnknownKind is returned for payloads on an unexpected stream.
var ErrUnknownKind = errors.New("unknown sample kind")

type (
	accelerationMessage struct {
		TimestampMs int64   `json:"ts"`
		X           float64 `json:"x"`
		Y           float64 `json:"y"`
		Z           float64 `json:"z"`
	}

	heartRateMessage struct {
		TimestampMs int64 `json:"ts"`
		BPM         int   `json:"bpm"`
	}

	presenceMessage struct {
		TimestampMs int64 `json:"ts"`
		OnBody      bool  `json:"onBody"`
	}

	locationMessage struct {
		TimestampMs int64   `json:"ts"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	}
)

// Route decodes one payload and offers the sample to the matching channel.
func Route(ctx context.Context, out *Channels, kind Kind, payload []byte) error {
	switch kind {
	case KindAcceleration:
		var msg accelerationMessage
		if err := decode(payload, &msg); err != nil {
			return err
		}

		Offer(ctx, out.Acceleration, safety.AccelerationSample{
			At: sampleTime(msg.TimestampMs),
			X:  msg.X,
			Y:  msg.Y,
			Z:  msg.Z,
		}, kind)
	case KindHeartRate:
		var msg heartRateMessage
		if err := decode(payload, &msg); err != nil {
			return err
		}

		Offer(ctx, out.HeartRate, safety.BpmSample{At: sampleTime(msg.TimestampMs), BPM: msg.BPM}, kind)
	case KindPresence:
		var msg presenceMessage
		if err := decode(payload, &msg); err != nil {
			return err
		}

		Offer(ctx, out.Presence, safety.PresenceSample{At: sampleTime(msg.TimestampMs), OnBody: msg.OnBody}, kind)
	case KindLocation:
		var msg locationMessage
		if err := decode(payload, &msg); err != nil {
			return err
		}

		Offer(ctx, out.Location, safety.LocationFix{
			At: sampleTime(msg.TimestampMs),
			Location: safety.Location{
				Latitude:  msg.Latitude,
				Longitude: msg.Longitude,
			},
		}, kind)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return nil
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode sample: %w", err)
	}

	return nil
}

// sampleTime falls back to the receive time when the device sent no timestamp.
func sampleTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Now()
	}

	return time.UnixMilli(ms)
}
