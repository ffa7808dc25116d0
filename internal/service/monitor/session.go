package monitor

import (
	"context"
	"fmt"

	"github.com/oshokin/safety-monitor/internal/actuator"
	"github.com/oshokin/safety-monitor/internal/api/http/status"
	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/dispatch"
	"github.com/oshokin/safety-monitor/internal/engine"
	"github.com/oshokin/safety-monitor/internal/location"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/pipeline"
	"github.com/oshokin/safety-monitor/internal/service/common"
	"github.com/oshokin/safety-monitor/internal/source"
	"github.com/oshokin/safety-monitor/internal/source/mqtt"
	"github.com/oshokin/safety-monitor/internal/source/nats"
)

// session holds every component of a running monitor.
type session struct {
	channels    *source.Channels
	sources     []source.Source
	pipeline    *pipeline.Pipeline
	engine      *engine.Engine
	dispatcher  *dispatch.Dispatcher
	status      *status.Server
	senderNames []string

	// waiters finish asynchronous work before closers run.
	waiters []func()
	// closers release connections in reverse order.
	closers []func()
}

func newSession(ctx context.Context, settings *config.Config) (result *session, err error) {
	s := new(session)

	defer func() {
		if err != nil {
			s.release()
		}
	}()

	senders, err := s.buildSenders(ctx, settings)
	if err != nil {
		return nil, err
	}

	s.dispatcher, err = dispatch.New(dispatch.Options{
		Senders:     senders,
		MaxAttempts: settings.Dispatch.MaxAttempts,
		Backoff:     settings.Dispatch.Backoff,
		SendTimeout: settings.Dispatch.SendTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	s.channels = source.NewChannels(settings.Sources.BufferSize)

	var mqttClient *mqtt.Client

	if settings.Sources.MQTT.Enabled() {
		mqttCfg := settings.Sources.MQTT
		if mqttCfg.ClientID == "" {
			mqttCfg.ClientID = "safety-monitor-" + settings.DeviceID
		}

		mqttClient, err = mqtt.Connect(mqttCfg)
		if err != nil {
			return nil, fmt.Errorf("connect MQTT: %w", err)
		}

		s.closers = append(s.closers, mqttClient.Close)
		s.sources = append(s.sources, mqtt.NewSource(mqttClient, mqttCfg, settings.DeviceID))
	}

	if settings.Sources.NATS.Enabled() {
		conn, err := nats.Connect(settings.Sources.NATS, "safety-monitor-"+settings.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("connect NATS: %w", err)
		}

		s.closers = append(s.closers, conn.Close)
		s.sources = append(s.sources, nats.NewSource(conn, settings.Sources.NATS, settings.DeviceID))
	}

	if len(s.sources) == 0 {
		logger.Warn(ctx, "No sensor source configured; only user actions will reach the engine")
	}

	act := s.buildActuator(settings, mqttClient)

	provider, lastKnown := location.New(settings.Location)

	pipelineOpts := &pipeline.Options{
		HeartRate:         settings.HeartRate,
		Fall:              settings.Fall,
		Wearing:           settings.Wearing,
		HasPresenceSensor: settings.HasPresenceSensor,
		LogLevel:          settings.DetectorLogLevel,
	}

	// A nil *LastKnown must not become a non-nil interface.
	if lastKnown != nil {
		pipelineOpts.Location = lastKnown
	}

	s.pipeline = pipeline.New(pipelineOpts)

	var (
		hub  *status.Hub
		sink engine.StatusSink
	)

	if settings.Status.Enabled() {
		hub = status.NewHub()
		sink = hub
	}

	s.engine, err = engine.Start(ctx, &engine.Options{
		Config:          settings.Engine,
		DeviceID:        settings.DeviceID,
		UserID:          settings.UserID,
		Contacts:        settings.Contacts,
		Dispatcher:      s.dispatcher,
		Actuator:        act,
		Location:        provider,
		StatusSink:      sink,
		OnFallDismissed: s.pipeline.ResetFall,
	})
	if err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}

	if hub != nil {
		s.status = status.NewServer(settings.Status, s.engine, hub, settings.Contacts)
	}

	return s, nil
}

func (s *session) buildSenders(ctx context.Context, settings *config.Config) ([]dispatch.Sender, error) {
	senders := []dispatch.Sender{dispatch.LogSender{}}

	if cfg := settings.Dispatch.HTTP; cfg.Enabled() {
		senders = append(senders, dispatch.NewHTTPSender(cfg))
	}

	if cfg := settings.Dispatch.GRPC; cfg.Enabled() {
		client, err := common.Dial(ctx, cfg.Address, common.WithCallTimeout(cfg.Timeout))
		if err != nil {
			return nil, fmt.Errorf("dial alert server: %w", err)
		}

		s.closers = append(s.closers, func() { _ = client.Close() })
		senders = append(senders, dispatch.NewGRPCSender(client))
	}

	if cfg := settings.Dispatch.Redis; cfg.Enabled() {
		client := dispatch.NewRedisClient(cfg)

		s.closers = append(s.closers, func() { _ = client.Close() })
		senders = append(senders, dispatch.NewRedisSender(client, cfg))
	}

	for _, sender := range senders {
		s.senderNames = append(s.senderNames, sender.Name())
	}

	return senders, nil
}

func (s *session) buildActuator(settings *config.Config, client *mqtt.Client) engine.Actuator {
	if client == nil {
		return actuator.Log{}
	}

	act := actuator.NewMQTT(client, settings.Sources.MQTT, settings.DeviceID)
	s.waiters = append(s.waiters, act.Wait)

	return act
}

// close stops the engine, drains dispatch and releases connections.
func (s *session) close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if s.engine != nil {
		if err := s.engine.Close(shutdownCtx); err != nil {
			logger.Errorf(ctx, "Failed to stop engine: %v", err)
		}
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.Close(shutdownCtx); err != nil {
			logger.Errorf(ctx, "Failed to drain dispatcher: %v", err)
		}
	}

	s.release()
}

func (s *session) release() {
	for _, wait := range s.waiters {
		wait()
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}

	s.waiters = nil
	s.closers = nil
}
