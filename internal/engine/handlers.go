package engine

import (
	"context"
	"fmt"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
)

// Timer keys.
const (
	timerHighHeartRate = "high_hr"
	timerLowHeartRate  = "low_hr"
)

// handle processes one event start to finish.
func (e *Engine) handle(ctx context.Context, event safety.Event) {
	logger.DebugKV(ctx, "Handling event", "event", event)

	switch ev := event.(type) {
	case safety.HeartRate:
		e.onHeartRate(ctx, ev.BPM)
	case safety.FallDetected:
		e.onFallDetected(ctx)
	case safety.FallNoResponse:
		e.onFallNoResponse(ctx, ev.ElapsedMs)
	case safety.UserIsOk:
		e.onUserIsOk(ctx)
	case safety.UserNeedsHelp:
		e.onUserNeedsHelp(ctx)
	case safety.PanicPressed:
		e.fire(ctx, alertPlan{
			code:            safety.EventPanic,
			severity:        safety.SeverityHigh,
			message:         "Panic button pressed",
			resolveLocation: true,
			attachContact:   true,
		})
	case safety.WatchRemoved:
		e.onWatchRemoved(ctx)
	case safety.WatchWornAgain:
		e.state.isWearing = true
		logger.Info(ctx, "Watch is worn again")
	case safety.EmergencyCallStarted:
		e.onEmergencyCall(ctx, ev.Contact)
	default:
		logger.WarnKV(ctx, "Unknown event ignored", "event", event)
	}
}

// onHeartRate drives the high and low sustained-threshold machines.
func (e *Engine) onHeartRate(ctx context.Context, bpm int) {
	e.state.lastBpm = bpm

	// A zero reading means the sensor lost contact; it neither confirms nor clears an excursion.
	if bpm <= 0 {
		return
	}

	cfg := e.cfg

	if bpm <= cfg.HighThreshold-cfg.HighMargin && bpm >= cfg.LowThreshold+cfg.LowMargin {
		if !e.state.highHrArmed || !e.state.lowHrArmed {
			logger.InfoKV(ctx, "Heart rate back in safe band, alerts re-armed", "bpm", bpm)
		}

		e.state.highHrArmed = true
		e.state.lowHrArmed = true
	}

	switch {
	case bpm > cfg.HighThreshold && e.state.highHrArmed:
		if e.schedule(timerHighHeartRate, cfg.HighWindow) {
			logger.InfoKV(ctx, "High heart rate, waiting for confirmation", "bpm", bpm, "window", cfg.HighWindow)
		}
	case bpm <= cfg.HighThreshold:
		if e.sched.Cancel(timerHighHeartRate) {
			logger.InfoKV(ctx, "High heart rate recovered before confirmation", "bpm", bpm)
		}
	}

	switch {
	case bpm < cfg.LowThreshold && e.state.lowHrArmed:
		if e.schedule(timerLowHeartRate, cfg.LowWindow) {
			logger.InfoKV(ctx, "Low heart rate, waiting for confirmation", "bpm", bpm, "window", cfg.LowWindow)
		}
	case bpm >= cfg.LowThreshold:
		if e.sched.Cancel(timerLowHeartRate) {
			logger.InfoKV(ctx, "Low heart rate recovered before confirmation", "bpm", bpm)
		}
	}
}

// onTimer re-validates the condition a confirmation timer was started for.
func (e *Engine) onTimer(ctx context.Context, key string) {
	bpm := e.state.lastBpm

	switch key {
	case timerHighHeartRate:
		if bpm <= e.cfg.HighThreshold || !e.state.highHrArmed {
			logger.DebugKV(ctx, "Stale high heart rate timer ignored", "bpm", bpm)

			return
		}

		if e.fireHeartRate(ctx, bpm, "Heart rate too high") {
			e.state.highHrArmed = false
		}
	case timerLowHeartRate:
		if bpm <= 0 || bpm >= e.cfg.LowThreshold || !e.state.lowHrArmed {
			logger.DebugKV(ctx, "Stale low heart rate timer ignored", "bpm", bpm)

			return
		}

		if e.fireHeartRate(ctx, bpm, "Heart rate too low") {
			e.state.lowHrArmed = false
		}
	default:
		logger.WarnKV(ctx, "Unknown timer ignored", "key", key)
	}
}

func (e *Engine) fireHeartRate(ctx context.Context, bpm int, message string) bool {
	return e.fire(ctx, alertPlan{
		code:            safety.EventDangerousHR,
		severity:        safety.SeverityHigh,
		message:         fmt.Sprintf("%s: %d bpm", message, bpm),
		metadata:        safety.Metadata{Vitals: &safety.Vitals{HeartRateBPM: bpm}},
		resolveLocation: true,
	})
}

func (e *Engine) onFallDetected(ctx context.Context) {
	e.state.pendingFallConfirmation = true

	e.fire(ctx, alertPlan{
		code:     safety.EventFallDetected,
		severity: safety.SeverityMedium,
		message:  "Fall detected, awaiting confirmation",
		metadata: safety.Metadata{
			RequiresUserConfirmation: safety.Ptr(true),
			ConfirmationWindowSec:    safety.Ptr(int64(e.cfg.FallConfirmationWindow.Seconds())),
		},
	})
}

func (e *Engine) onFallNoResponse(ctx context.Context, elapsedMs int64) {
	e.dismissFall(ctx)

	e.fire(ctx, alertPlan{
		code:     safety.EventFallNoResponse,
		severity: safety.SeverityHigh,
		message:  "No response after fall",
		metadata: safety.Metadata{
			UserResponded:         safety.Ptr(false),
			ConfirmationWindowSec: safety.Ptr(elapsedMs / 1000),
		},
		resolveLocation: true,
		attachContact:   true,
	})
}

func (e *Engine) onUserIsOk(ctx context.Context) {
	e.dismissFall(ctx)

	if cancelled := e.cancelAlertJobs(); cancelled > 0 {
		logger.InfoKV(ctx, "User is ok, pending alert jobs cancelled", "jobs", cancelled)
	}
}

func (e *Engine) onUserNeedsHelp(ctx context.Context) {
	e.dismissFall(ctx)

	e.fire(ctx, alertPlan{
		code:     safety.EventFallConfirmedHelp,
		severity: safety.SeverityHigh,
		message:  "User confirmed that help is needed",
		metadata: safety.Metadata{
			UserResponded: safety.Ptr(true),
		},
		resolveLocation: true,
		attachContact:   true,
	})
}

func (e *Engine) onWatchRemoved(ctx context.Context) {
	e.state.isWearing = false

	e.fire(ctx, alertPlan{
		code:     safety.EventWatchRemoved,
		severity: safety.SeverityLow,
		message:  "Watch removed",
		metadata: safety.Metadata{
			SensorState: &safety.SensorState{WearingStatus: safety.WearingStatusRemoved},
		},
	})
}

func (e *Engine) onEmergencyCall(ctx context.Context, contact safety.EmergencyContact) {
	e.fire(ctx, alertPlan{
		code:     safety.EventEmergencyCall,
		severity: safety.SeverityHigh,
		message:  "Emergency call started",
		metadata: safety.Metadata{
			ContactName:  contact.Name,
			ContactPhone: contact.PhoneNumber,
		},
		resolveLocation: true,
	})
}

// dismissFall closes a pending fall prompt and resets the fall detector.
func (e *Engine) dismissFall(ctx context.Context) {
	if !e.state.pendingFallConfirmation {
		return
	}

	e.state.pendingFallConfirmation = false

	if e.opts.OnFallDismissed != nil {
		e.opts.OnFallDismissed()
	}

	logger.Debugf(ctx, "Fall confirmation dismissed")
}
