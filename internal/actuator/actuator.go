// Package actuator drives local feedback on the watch: vibration and
// notification banners. Every call is fire-and-forget and failures are only
// logged.
package actuator

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/source/mqtt"
)

// Log only records the feedback it would have produced.
type Log struct{}

// Vibrate implements engine.Actuator.
func (Log) Vibrate(ctx context.Context) {
	logger.Infof(ctx, "Vibrate")
}

// Notify implements engine.Actuator.
func (Log) Notify(ctx context.Context, kind safety.EventCode, title, body string) {
	logger.InfoKV(ctx, "Notify", "kind", kind, "title", title, "body", body)
}

// Publisher is the part of mqtt.Client the actuator needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Command topics under {prefix}/{device}/cmd.
const (
	VibrateCommand = "vibrate"
	NotifyCommand  = "notify"
)

// NotifyPayload is the body of a notify command.
type NotifyPayload struct {
	Kind  safety.EventCode `json:"kind"`
	Title string           `json:"title"`
	Body  string           `json:"body"`
}

// MQTT publishes feedback commands for the watch firmware.
type MQTT struct {
	publisher Publisher
	cfg       mqtt.Config
	deviceID  string
	wg        sync.WaitGroup
}

// NewMQTT creates an MQTT actuator.
func NewMQTT(publisher Publisher, cfg mqtt.Config, deviceID string) *MQTT {
	return &MQTT{
		publisher: publisher,
		cfg:       cfg,
		deviceID:  deviceID,
	}
}

// Vibrate implements engine.Actuator.
func (a *MQTT) Vibrate(ctx context.Context) {
	a.publish(ctx, VibrateCommand, []byte(`{}`))
}

// Notify implements engine.Actuator.
func (a *MQTT) Notify(ctx context.Context, kind safety.EventCode, title, body string) {
	payload, err := json.Marshal(NotifyPayload{Kind: kind, Title: title, Body: body})
	if err != nil {
		logger.WarnKV(ctx, "Failed to encode notification", "error", err)

		return
	}

	a.publish(ctx, NotifyCommand, payload)
}

// Wait blocks until every command in flight was published or failed.
func (a *MQTT) Wait() {
	a.wg.Wait()
}

func (a *MQTT) publish(ctx context.Context, command string, payload []byte) {
	topic := mqtt.Topic(a.cfg.TopicPrefix, a.deviceID, "cmd", command)

	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		if err := a.publisher.Publish(topic, a.cfg.QoS, false, payload); err != nil {
			logger.WarnKV(ctx, "Actuator command not delivered", "topic", topic, "error", err)
		}
	}()
}
