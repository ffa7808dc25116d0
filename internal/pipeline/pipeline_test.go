package pipeline

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/safety-monitor/internal/detector/fall"
	"github.com/oshokin/safety-monitor/internal/detector/heartrate"
	"github.com/oshokin/safety-monitor/internal/detector/wearing"
	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/engine"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/source"
)

type recordingSubmitter struct {
	mu     sync.Mutex
	events []safety.Event
	err    error
}

func (r *recordingSubmitter) Submit(_ context.Context, event safety.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.events = append(r.events, event)

	return nil
}

func (r *recordingSubmitter) Events() []safety.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]safety.Event(nil), r.events...)
}

type recordingLocation struct {
	mu    sync.Mutex
	fixes []safety.LocationFix
}

func (r *recordingLocation) Update(fix safety.LocationFix) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fixes = append(r.fixes, fix)
}

func testOptions() *Options {
	return &Options{
		HeartRate: heartrate.DefaultConfig(),
		Fall:      fall.DefaultConfig(),
		Wearing:   wearing.DefaultConfig(),
	}
}

// run starts the pipeline and returns a stop function that waits for it.
func run(t *testing.T, p *Pipeline, in *source.Channels, sink Submitter) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- p.Run(ctx, in, sink)
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestPipeline_HeartRate(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var (
			in   = source.NewChannels(16)
			sink = new(recordingSubmitter)
			stop = run(t, New(testOptions()), in, sink)
		)
		defer stop()

		for _, bpm := range []int{0, 0, 72} {
			in.HeartRate <- safety.BpmSample{At: time.Now(), BPM: bpm}
		}

		synctest.Wait()

		require.Equal(t, []safety.Event{
			safety.HeartRate{BPM: 72},
			safety.WatchWornAgain{},
		}, sink.Events())

		// No further signal: removal after the timeout, reported once.
		time.Sleep(30 * time.Second)
		synctest.Wait()

		require.Equal(t, []safety.Event{
			safety.HeartRate{BPM: 72},
			safety.WatchWornAgain{},
			safety.WatchRemoved{},
		}, sink.Events())
	})
}

func TestPipeline_StartupGrace(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var (
			in   = source.NewChannels(16)
			sink = new(recordingSubmitter)
			stop = run(t, New(testOptions()), in, sink)
		)
		defer stop()

		time.Sleep(4 * time.Second)
		synctest.Wait()
		require.Empty(t, sink.Events())

		time.Sleep(2 * time.Second)
		synctest.Wait()
		require.Equal(t, []safety.Event{safety.WatchRemoved{}}, sink.Events())
	})
}

func TestPipeline_PresenceSensor(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		opts := testOptions()
		opts.HasPresenceSensor = true

		var (
			in   = source.NewChannels(16)
			sink = new(recordingSubmitter)
			stop = run(t, New(opts), in, sink)
		)
		defer stop()

		in.Presence <- safety.PresenceSample{At: time.Now(), OnBody: true}
		synctest.Wait()

		in.HeartRate <- safety.BpmSample{At: time.Now(), BPM: 80}
		synctest.Wait()

		in.Presence <- safety.PresenceSample{At: time.Now(), OnBody: false}
		synctest.Wait()

		require.Equal(t, []safety.Event{
			safety.WatchWornAgain{},
			safety.HeartRate{BPM: 80},
			safety.WatchRemoved{},
		}, sink.Events())
	})
}

func TestPipeline_FallAndReset(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		opts := testOptions()
		opts.Wearing.StartupDelay = time.Hour

		var (
			in   = source.NewChannels(512)
			sink = new(recordingSubmitter)
			p    = New(opts)
			stop = run(t, p, in, sink)
		)
		defer stop()

		episode := func(base time.Time) {
			for offset := time.Duration(0); offset <= 200*time.Millisecond; offset += 20 * time.Millisecond {
				in.Acceleration <- safety.AccelerationSample{At: base.Add(offset), Z: 0.5}
			}

			in.Acceleration <- safety.AccelerationSample{At: base.Add(300 * time.Millisecond), Z: 35}

			for offset := 320 * time.Millisecond; offset <= 2600*time.Millisecond; offset += 100 * time.Millisecond {
				in.Acceleration <- safety.AccelerationSample{At: base.Add(offset), Z: safety.StandardGravity}
			}

			synctest.Wait()
		}

		base := time.Now()

		episode(base)
		require.Equal(t, []safety.Event{safety.FallDetected{}}, sink.Events())

		// The reset clears the cooldown, so a fall 3s later is reported.
		p.ResetFall()
		synctest.Wait()

		episode(base.Add(3 * time.Second))
		require.Equal(t, []safety.Event{safety.FallDetected{}, safety.FallDetected{}}, sink.Events())
	})
}

func TestPipeline_LocationForwarded(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		opts := testOptions()
		opts.Wearing.StartupDelay = time.Hour

		location := new(recordingLocation)
		opts.Location = location

		var (
			in   = source.NewChannels(4)
			stop = run(t, New(opts), in, new(recordingSubmitter))
		)
		defer stop()

		in.Location <- safety.LocationFix{At: time.Now(), Location: safety.Location{Latitude: 1, Longitude: 2}}
		synctest.Wait()

		location.mu.Lock()
		defer location.mu.Unlock()

		require.Len(t, location.fixes, 1)
		require.Equal(t, safety.Location{Latitude: 1, Longitude: 2}, location.fixes[0].Location)
	})
}

func TestPipeline_StopsWhenEngineClosed(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var (
			in   = source.NewChannels(4)
			sink = &recordingSubmitter{err: engine.ErrEngineClosed}
			done = make(chan error, 1)
		)

		go func() {
			done <- New(testOptions()).Run(context.Background(), in, sink)
		}()

		in.HeartRate <- safety.BpmSample{At: time.Now(), BPM: 70}

		require.NoError(t, <-done)
	})
}

func TestPipeline_DetectorLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		level  string
		traced bool
	}{
		{name: "inherits process level", level: "", traced: false},
		{name: "debug override", level: "debug", traced: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			synctest.Test(t, func(t *testing.T) {
				core, logs := observer.New(zapcore.InfoLevel)

				opts := testOptions()
				opts.Wearing.StartupDelay = time.Hour
				opts.LogLevel = tc.level

				var (
					in   = source.NewChannels(8)
					ctx  = logger.ToContext(context.Background(), zap.New(core).Sugar())
					done = make(chan error, 1)
				)

				ctx, cancel := context.WithCancel(ctx)

				go func() {
					done <- New(opts).Run(ctx, in, new(recordingSubmitter))
				}()

				in.Acceleration <- safety.AccelerationSample{At: time.Now(), Z: 35}
				synctest.Wait()

				cancel()
				require.NoError(t, <-done)

				traced := logs.FilterMessage("Impact without preceding free fall ignored").Len() > 0
				require.Equal(t, tc.traced, traced)
			})
		})
	}
}
