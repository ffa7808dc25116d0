package heartrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// feed pushes readings through the filter and collects forwarded values.
func feed(f *Filter, readings ...int) []int {
	start := time.Unix(0, 0)
	forwarded := make([]int, 0, len(readings))

	for i, bpm := range readings {
		sample := safety.BpmSample{At: start.Add(time.Duration(i) * time.Second), BPM: bpm}
		if v, ok := f.Process(sample); ok {
			forwarded = append(forwarded, v)
		}
	}

	return forwarded
}

func TestFilter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		readings []int
		want     []int
	}{
		{
			name:     "positive readings pass",
			readings: []int{72, 75, 80},
			want:     []int{72, 75, 80},
		},
		{
			name:     "two zeros then positive forwards only the positive",
			readings: []int{0, 0, 70},
			want:     []int{70},
		},
		{
			name:     "third zero is forwarded",
			readings: []int{0, 0, 0},
			want:     []int{0},
		},
		{
			name:     "zeros after the limit keep passing",
			readings: []int{0, 0, 0, 0, 0},
			want:     []int{0, 0, 0},
		},
		{
			name:     "positive reading resets the run",
			readings: []int{0, 0, 65, 0, 0, 66},
			want:     []int{65, 66},
		},
		{
			name:     "negative readings count as zeros",
			readings: []int{-1, 0, -5},
			want:     []int{0},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, feed(NewFilter(DefaultConfig()), tc.readings...))
		})
	}
}

func TestFilter_CustomLimit(t *testing.T) {
	t.Parallel()

	f := NewFilter(Config{ZeroLimit: 1})
	require.Equal(t, []int{0, 90, 0}, feed(f, 0, 90, 0))

	f = NewFilter(Config{ZeroLimit: -4})
	require.Empty(t, feed(f, 0, 0))
	require.Equal(t, 2, f.ConsecutiveZeros())
}
