// Package heartrate suppresses transient zero readings from the BPM stream.
package heartrate

import "github.com/oshokin/safety-monitor/internal/domain/safety"

// DefaultZeroLimit is the number of consecutive zero readings after which a
// zero is forwarded as a genuine loss-of-contact reading.
const DefaultZeroLimit = 3

// Config holds the filter policy.
type Config struct {
	// ZeroLimit is how many consecutive zeros must arrive before one is forwarded.
	ZeroLimit int `yaml:"zero_limit"`
}

// DefaultConfig returns the filter defaults.
func DefaultConfig() Config {
	return Config{ZeroLimit: DefaultZeroLimit}
}

// Filter forwards validated BPM readings. It is not safe for concurrent use;
// a single pipeline goroutine owns it.
type Filter struct {
	zeroLimit            int
	consecutiveZeroCount int
}

// NewFilter creates a filter; a non-positive limit falls back to the default.
func NewFilter(cfg Config) *Filter {
	limit := cfg.ZeroLimit
	if limit <= 0 {
		limit = DefaultZeroLimit
	}

	return &Filter{zeroLimit: limit}
}

// Process returns the BPM to forward and whether it should be forwarded.
// Positive readings always pass and reset the zero counter. Zeros are held
// back until zeroLimit of them arrived in a row; every zero from then on
// passes. Negative readings are treated like zeros.
func (f *Filter) Process(sample safety.BpmSample) (int, bool) {
	if sample.BPM > 0 {
		f.consecutiveZeroCount = 0

		return sample.BPM, true
	}

	f.consecutiveZeroCount++

	if f.consecutiveZeroCount < f.zeroLimit {
		return 0, false
	}

	return 0, true
}

// ConsecutiveZeros reports the current zero run length.
func (f *Filter) ConsecutiveZeros() int {
	return f.consecutiveZeroCount
}
