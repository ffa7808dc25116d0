package fall

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

type recording struct {
	start   time.Time
	samples []safety.AccelerationSample
}

func newRecording() *recording {
	return &recording{start: time.Unix(1_700_000_000, 0)}
}

// span appends samples of the given magnitude every step in [from, to].
func (r *recording) span(from, to, step time.Duration, magnitude float64) *recording {
	for offset := from; offset <= to; offset += step {
		r.samples = append(r.samples, safety.AccelerationSample{
			At: r.start.Add(offset),
			Z:  magnitude,
		})
	}

	return r
}

// at appends a single sample.
func (r *recording) at(offset time.Duration, magnitude float64) *recording {
	return r.span(offset, offset, time.Millisecond, magnitude)
}

// fallEpisode appends free fall, impact and rest starting at base.
func (r *recording) fallEpisode(base time.Duration) *recording {
	return r.
		span(base, base+200*time.Millisecond, 20*time.Millisecond, 0.5).
		at(base+300*time.Millisecond, 35).
		span(base+320*time.Millisecond, base+2600*time.Millisecond, 100*time.Millisecond, safety.StandardGravity)
}

// run feeds every sample and returns offsets where falls were reported.
func (r *recording) run(t *testing.T, d *Detector) []time.Duration {
	t.Helper()

	var (
		ctx       = context.Background()
		decisions []time.Duration
	)

	for _, s := range r.samples {
		if d.Process(ctx, s) {
			decisions = append(decisions, s.At.Sub(r.start))
		}
	}

	return decisions
}

func TestDetector_FreeFallImpactStillness(t *testing.T) {
	t.Parallel()

	got := newRecording().fallEpisode(0).run(t, NewDetector(DefaultConfig()))

	// Stillness starts at 420ms and must last more than 2s.
	require.Equal(t, []time.Duration{2520 * time.Millisecond}, got)
}

func TestDetector_RepeatWithinCooldownIsSuppressed(t *testing.T) {
	t.Parallel()

	got := newRecording().
		fallEpisode(0).
		fallEpisode(3 * time.Second).
		run(t, NewDetector(DefaultConfig()))

	require.Len(t, got, 1)
}

func TestDetector_RepeatAfterCooldown(t *testing.T) {
	t.Parallel()

	got := newRecording().
		fallEpisode(0).
		fallEpisode(8 * time.Second).
		run(t, NewDetector(DefaultConfig()))

	require.Equal(t, []time.Duration{2520 * time.Millisecond, 10520 * time.Millisecond}, got)
}

func TestDetector_ResetClearsCooldown(t *testing.T) {
	t.Parallel()

	d := NewDetector(DefaultConfig())

	require.Len(t, newRecording().fallEpisode(0).run(t, d), 1)
	require.False(t, d.State().LastFallTriggeredAt.IsZero())

	d.Reset()

	state := d.State()
	require.True(t, state.LastFallTriggeredAt.IsZero())
	require.True(t, state.LastImpactTime.IsZero())
	require.True(t, state.LastFreeFallTime.IsZero())

	// Same wall clock as the cooldown window, but reset re-enabled detection.
	require.Len(t, newRecording().fallEpisode(3*time.Second).run(t, d), 1)
}

func TestDetector_NoFall(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rec  *recording
	}{
		{
			name: "impact without free fall",
			rec: newRecording().
				span(0, time.Second, 20*time.Millisecond, safety.StandardGravity).
				at(1100*time.Millisecond, 40).
				span(1200*time.Millisecond, 5*time.Second, 100*time.Millisecond, safety.StandardGravity),
		},
		{
			name: "free fall too short",
			rec: newRecording().
				span(0, 100*time.Millisecond, 20*time.Millisecond, 0.5).
				at(200*time.Millisecond, 35).
				span(300*time.Millisecond, 4*time.Second, 100*time.Millisecond, safety.StandardGravity),
		},
		{
			name: "impact too late after free fall",
			rec: newRecording().
				span(0, 200*time.Millisecond, 20*time.Millisecond, 0.5).
				span(300*time.Millisecond, time.Second, 100*time.Millisecond, safety.StandardGravity).
				at(1100*time.Millisecond, 35).
				span(1200*time.Millisecond, 5*time.Second, 100*time.Millisecond, safety.StandardGravity),
		},
		{
			name: "movement after impact",
			rec: func() *recording {
				r := newRecording().
					span(0, 200*time.Millisecond, 20*time.Millisecond, 0.5).
					at(300*time.Millisecond, 35)
				for i := range 30 {
					magnitude := safety.StandardGravity
					if i%2 == 0 {
						magnitude += 3
					}

					r.at(400*time.Millisecond+time.Duration(i)*100*time.Millisecond, magnitude)
				}

				return r
			}(),
		},
		{
			name: "stillness arrives after the impact went stale",
			rec: func() *recording {
				r := newRecording().
					span(0, 200*time.Millisecond, 20*time.Millisecond, 0.5).
					at(300*time.Millisecond, 35)
				for i := range 40 {
					magnitude := safety.StandardGravity
					if i%2 == 0 {
						magnitude += 3
					}

					r.at(400*time.Millisecond+time.Duration(i)*100*time.Millisecond, magnitude)
				}

				return r.span(4500*time.Millisecond, 8*time.Second, 100*time.Millisecond, safety.StandardGravity)
			}(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Empty(t, tc.rec.run(t, NewDetector(DefaultConfig())))
		})
	}
}
