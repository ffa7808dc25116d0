package safety

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAlertClone verifies that Clone deep-copies optional metadata and handles nil safely.
func TestAlertClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Alert)(nil).Clone())

	a := &Alert{
		EventID:   "e-1",
		EventCode: EventPanic,
		Severity:  SeverityHigh,
		Metadata: Metadata{
			Message:       "Panic button pressed",
			UserResponded: Ptr(true),
			Location:      &Location{Latitude: 1, Longitude: 2},
			Vitals:        &Vitals{HeartRateBPM: 80},
		},
	}

	b := a.Clone()
	require.Equal(t, a, b)
	require.NotSame(t, a.Metadata.Location, b.Metadata.Location)
	require.NotSame(t, a.Metadata.UserResponded, b.Metadata.UserResponded)

	b.Metadata.Location.Latitude = 42
	require.InDelta(t, 1.0, a.Metadata.Location.Latitude, 0)
}

// TestAlertValidate checks required fields and enum validation.
func TestAlertValidate(t *testing.T) {
	t.Parallel()

	var nilAlert *Alert
	require.ErrorIs(t, nilAlert.Validate(), ErrAlertIsNotSet)

	a := &Alert{EventCode: EventPanic, Severity: SeverityHigh}
	require.ErrorIs(t, a.Validate(), ErrEventIDRequired)

	a.EventID = "e-1"
	require.NoError(t, a.Validate())

	a.EventCode = "SOMETHING"
	require.ErrorIs(t, a.Validate(), ErrUnknownEventCode)

	a.EventCode = EventWatchRemoved
	a.Severity = "URGENT"
	require.ErrorIs(t, a.Validate(), ErrUnknownSeverity)
}

// TestAlertJSONShape checks the wire names caregivers' backend relies on.
func TestAlertJSONShape(t *testing.T) {
	t.Parallel()

	a := &Alert{
		EventID:     "e-1",
		DeviceID:    "watch-1",
		UserID:      "elder_001",
		EventCode:   EventWatchRemoved,
		Severity:    SeverityLow,
		TimestampMs: 1000,
		Metadata: Metadata{
			SensorState: &SensorState{WearingStatus: WearingStatusRemoved},
		},
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"eventId": "e-1",
		"deviceId": "watch-1",
		"userId": "elder_001",
		"eventCode": "WATCH_REMOVED",
		"severity": "LOW",
		"timestampMs": 1000,
		"metadata": {"sensorState": {"wearingStatus": "REMOVED"}}
	}`, string(data))
}
