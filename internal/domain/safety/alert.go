package safety

import (
	"errors"
	"fmt"
)

// EventCode identifies the kind of alert sent to caregivers.
type EventCode string

// Alert event codes understood by the caregiver backend.
const (
	EventWatchRemoved      EventCode = "WATCH_REMOVED"
	EventFallDetected      EventCode = "FALL_DETECTED"
	EventFallNoResponse    EventCode = "FALL_NO_RESPONSE"
	EventFallConfirmedHelp EventCode = "FALL_CONFIRMED_HELP"
	EventDangerousHR       EventCode = "DANGEROUS_HR"
	EventPanic             EventCode = "PANIC"
	EventEmergencyCall     EventCode = "EMERGENCY_CALL"
)

// Valid reports whether the code is one of the known values.
func (c EventCode) Valid() bool {
	switch c {
	case EventWatchRemoved, EventFallDetected, EventFallNoResponse, EventFallConfirmedHelp,
		EventDangerousHR, EventPanic, EventEmergencyCall:
		return true
	default:
		return false
	}
}

// Severity ranks alerts for the caregiver side.
type Severity string

// Alert severities.
const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether the severity is one of the known values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Wearing statuses reported in alert metadata.
const (
	WearingStatusWorn    = "WORN"
	WearingStatusRemoved = "REMOVED"
)

// SensorState describes device sensor state at alert time.
type SensorState struct {
	WearingStatus string `json:"wearingStatus,omitempty"`
}

// Vitals carries the last known vital signs.
type Vitals struct {
	HeartRateBPM int `json:"heartRateBpm"`
}

// Metadata holds the optional alert fields. Nil pointers are omitted on the wire.
type Metadata struct {
	Message                  string       `json:"message,omitempty"`
	RequiresUserConfirmation *bool        `json:"requiresUserConfirmation,omitempty"`
	UserResponded            *bool        `json:"userResponded,omitempty"`
	ConfirmationWindowSec    *int64       `json:"confirmationWindowSec,omitempty"`
	ContactName              string       `json:"contactName,omitempty"`
	ContactPhone             string       `json:"contactPhone,omitempty"`
	SensorState              *SensorState `json:"sensorState,omitempty"`
	Location                 *Location    `json:"location,omitempty"`
	Vitals                   *Vitals      `json:"vitals,omitempty"`
}

// Alert is the structured payload handed to the dispatcher. It is built once
// by the engine and treated as read-only afterwards.
type Alert struct {
	EventID     string    `json:"eventId"`
	DeviceID    string    `json:"deviceId"`
	UserID      string    `json:"userId"`
	EventCode   EventCode `json:"eventCode"`
	Severity    Severity  `json:"severity"`
	TimestampMs int64     `json:"timestampMs"`
	Metadata    Metadata  `json:"metadata"`
}

var (
	// ErrAlertIsNotSet is returned when a nil alert is validated.
	ErrAlertIsNotSet = errors.New("alert is not set")
	// ErrEventIDRequired is returned for alerts without an event id.
	ErrEventIDRequired = errors.New("event id is required")
	// ErrUnknownEventCode is returned for unknown event codes.
	ErrUnknownEventCode = errors.New("unknown event code")
	// ErrUnknownSeverity is returned for unknown severities.
	ErrUnknownSeverity = errors.New("unknown severity")
)

// Validate checks the fields every receiver relies on.
func (a *Alert) Validate() error {
	if a == nil {
		return ErrAlertIsNotSet
	}

	if a.EventID == "" {
		return ErrEventIDRequired
	}

	if !a.EventCode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventCode, a.EventCode)
	}

	if !a.Severity.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSeverity, a.Severity)
	}

	return nil
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}

	cloned := *a
	cloned.Metadata = a.Metadata.clone()

	return &cloned
}

func (m Metadata) clone() Metadata {
	cloned := m
	cloned.RequiresUserConfirmation = clonePtr(m.RequiresUserConfirmation)
	cloned.UserResponded = clonePtr(m.UserResponded)
	cloned.ConfirmationWindowSec = clonePtr(m.ConfirmationWindowSec)
	cloned.SensorState = clonePtr(m.SensorState)
	cloned.Location = clonePtr(m.Location)
	cloned.Vitals = clonePtr(m.Vitals)

	return cloned
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}

	cloned := *v

	return &cloned
}

// Ptr returns a pointer to v, handy for optional metadata fields.
func Ptr[T any](v T) *T {
	return &v
}
