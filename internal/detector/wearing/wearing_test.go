package wearing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var start = time.Unix(1_700_000_000, 0)

type transition struct {
	at    time.Duration
	state State
}

// tick runs Check every 500ms up to until and collects transitions.
func tick(d Detector, from, until time.Duration) []transition {
	var got []transition

	for offset := from; offset <= until; offset += 500 * time.Millisecond {
		if state, changed := d.Check(start.Add(offset)); changed {
			got = append(got, transition{at: offset, state: state})
		}
	}

	return got
}

func TestNew(t *testing.T) {
	t.Parallel()

	require.IsType(t, &Presence{}, New(DefaultConfig(), true, start))
	require.IsType(t, &Recency{}, New(DefaultConfig(), false, start))
}

func TestRecency_RemovalAfterTimeout(t *testing.T) {
	t.Parallel()

	d := NewRecency(DefaultConfig(), start)

	state, changed := d.ObserveHeartRate(start.Add(time.Second), 72)
	require.True(t, changed)
	require.Equal(t, StateWorn, state)

	// Repeated readings do not fire again.
	_, changed = d.ObserveHeartRate(start.Add(2*time.Second), 74)
	require.False(t, changed)

	// Last signal at 2s, removal expected once at 20s.
	got := tick(d, 2500*time.Millisecond, 40*time.Second)
	require.Equal(t, []transition{{at: 20 * time.Second, state: StateRemoved}}, got)

	state, changed = d.ObserveHeartRate(start.Add(41*time.Second), 70)
	require.True(t, changed)
	require.Equal(t, StateWorn, state)

	_, changed = d.ObserveHeartRate(start.Add(42*time.Second), 70)
	require.False(t, changed)
}

func TestRecency_ZeroReadingsAreNotSignals(t *testing.T) {
	t.Parallel()

	d := NewRecency(DefaultConfig(), start)

	_, changed := d.ObserveHeartRate(start.Add(time.Second), 72)
	require.True(t, changed)

	for offset := 2 * time.Second; offset < 30*time.Second; offset += time.Second {
		_, changed = d.ObserveHeartRate(start.Add(offset), 0)
		require.False(t, changed)
	}

	state, changed := d.Check(start.Add(19 * time.Second))
	require.True(t, changed)
	require.Equal(t, StateRemoved, state)
}

func TestRecency_StartupGrace(t *testing.T) {
	t.Parallel()

	d := NewRecency(DefaultConfig(), start)

	got := tick(d, 0, 10*time.Second)
	require.Equal(t, []transition{{at: 5 * time.Second, state: StateRemoved}}, got)
}

func TestRecency_SignalWithinStartupGrace(t *testing.T) {
	t.Parallel()

	d := NewRecency(DefaultConfig(), start)

	require.Empty(t, tick(d, 0, 4*time.Second))

	_, changed := d.ObserveHeartRate(start.Add(4500*time.Millisecond), 65)
	require.True(t, changed)
	require.Empty(t, tick(d, 5*time.Second, 22*time.Second))
	require.Equal(t, StateWorn, d.State())
}

func TestPresence(t *testing.T) {
	t.Parallel()

	d := NewPresence(DefaultConfig(), start)

	// Heart rate is not authoritative when a sensor exists.
	_, changed := d.ObserveHeartRate(start, 80)
	require.False(t, changed)
	require.Equal(t, StateUnknown, d.State())

	state, changed := d.ObservePresence(start.Add(time.Second), true)
	require.True(t, changed)
	require.Equal(t, StateWorn, state)

	// The sensor does not time out by itself.
	require.Empty(t, tick(d, 2*time.Second, time.Minute))

	state, changed = d.ObservePresence(start.Add(61*time.Second), false)
	require.True(t, changed)
	require.Equal(t, StateRemoved, state)

	_, changed = d.ObservePresence(start.Add(62*time.Second), false)
	require.False(t, changed)

	state, changed = d.ObservePresence(start.Add(63*time.Second), true)
	require.True(t, changed)
	require.Equal(t, StateWorn, state)
}

func TestPresence_StartupGrace(t *testing.T) {
	t.Parallel()

	d := NewPresence(DefaultConfig(), start)

	got := tick(d, 0, 10*time.Second)
	require.Equal(t, []transition{{at: 5 * time.Second, state: StateRemoved}}, got)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "unknown", StateUnknown.String())
	require.Equal(t, "worn", StateWorn.String())
	require.Equal(t, "removed", StateRemoved.String())
}
