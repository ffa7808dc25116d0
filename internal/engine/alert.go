package engine

import (
	"context"
	"time"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/logger"
)

// alertPlan describes an alert before side effects run.
type alertPlan struct {
	code     safety.EventCode
	severity safety.Severity
	message  string
	metadata safety.Metadata
	// resolveLocation asks the job to attach the best-effort location.
	resolveLocation bool
	// attachContact asks the job to attach the primary emergency contact.
	attachContact bool
}

var notificationTitles = map[safety.EventCode]string{
	safety.EventWatchRemoved:      "Watch removed",
	safety.EventFallDetected:      "Fall detected",
	safety.EventFallNoResponse:    "No response after fall",
	safety.EventFallConfirmedHelp: "Help is on the way",
	safety.EventDangerousHR:       "Dangerous heart rate",
	safety.EventPanic:             "Panic alert sent",
	safety.EventEmergencyCall:     "Emergency call",
}

// fire applies the cooldown and runs the side effects of one alert:
// vibration, notification, then location lookup and dispatch off the loop.
// It reports whether the alert was triggered.
func (e *Engine) fire(ctx context.Context, plan alertPlan) bool {
	now := time.Now()

	last := e.state.lastAlertTimestamp
	if !e.cfg.bypassesCooldown(plan.code) && !last.IsZero() && now.Sub(last) < e.cfg.AlertCooldown {
		logger.InfoKV(ctx, "Alert suppressed by cooldown",
			"event_code", plan.code,
			"since_last", now.Sub(last),
		)

		return false
	}

	e.state.lastAlertTimestamp = now

	metadata := plan.metadata
	metadata.Message = plan.message

	alert := &safety.Alert{
		EventID:     newEventID(),
		DeviceID:    e.opts.DeviceID,
		UserID:      e.opts.UserID,
		EventCode:   plan.code,
		Severity:    plan.severity,
		TimestampMs: now.UnixMilli(),
		Metadata:    metadata,
	}

	logger.InfoKV(ctx, "Alert triggered",
		"event_id", alert.EventID,
		"event_code", alert.EventCode,
		"severity", alert.Severity,
	)

	e.opts.Actuator.Vibrate(ctx)
	e.opts.Actuator.Notify(ctx, plan.code, notificationTitles[plan.code], plan.message)

	e.startJob(ctx, alert, plan)

	return true
}

// startJob resolves location and contact and dispatches the alert in its own goroutine.
func (e *Engine) startJob(ctx context.Context, alert *safety.Alert, plan alertPlan) {
	jobCtx, cancel := context.WithCancel(e.jobsCtx)

	e.jobsMu.Lock()
	e.nextJobID++
	id := e.nextJobID
	e.jobs[id] = cancel
	e.jobsMu.Unlock()

	e.jobsWG.Add(1)

	go func() {
		defer e.jobsWG.Done()
		defer e.finishJob(id)

		jobCtx = logger.WithKV(jobCtx, "event_id", alert.EventID)

		if plan.resolveLocation && e.opts.Location != nil {
			if location, ok := e.lookupLocation(jobCtx); ok {
				alert.Metadata.Location = location
			}
		}

		if plan.attachContact {
			if contact, ok := e.primaryContact(); ok {
				alert.Metadata.ContactName = contact.Name
				alert.Metadata.ContactPhone = contact.PhoneNumber
			}
		}

		if jobCtx.Err() != nil {
			logger.InfoKV(jobCtx, "Alert job cancelled before dispatch", "event_code", alert.EventCode)

			return
		}

		e.opts.Dispatcher.Dispatch(jobCtx, alert)
	}()

	logger.DebugKV(ctx, "Alert job started", "job_id", id)
}

func (e *Engine) lookupLocation(ctx context.Context) (*safety.Location, bool) {
	timeout := e.cfg.LocationTimeout

	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	location, ok := e.opts.Location.BestEffortLocation(lookupCtx, timeout)
	if !ok {
		logger.DebugKV(ctx, "Location unavailable", "timeout", timeout)
	}

	return location, ok
}

func (e *Engine) primaryContact() (safety.EmergencyContact, bool) {
	if len(e.opts.Contacts) == 0 {
		return safety.EmergencyContact{}, false
	}

	return e.opts.Contacts[0], true
}

func (e *Engine) finishJob(id uint64) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()

	if cancel, ok := e.jobs[id]; ok {
		cancel()
		delete(e.jobs, id)
	}
}

// cancelAlertJobs cancels every in-flight alert job and returns how many there were.
func (e *Engine) cancelAlertJobs() int {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()

	count := len(e.jobs)

	for id, cancel := range e.jobs {
		cancel()
		delete(e.jobs, id)
	}

	return count
}
