package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// overrideCore replaces the level check of the wrapped core. The pipeline
// uses it to give the sensor detectors their own level.
type overrideCore struct {
	zapcore.Core

	level zapcore.LevelEnabler
}

// Enabled reports whether lvl passes the override level.
func (c *overrideCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl)
}

// Check adds the core to the entry when the override level allows it.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *overrideCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the override when fields are attached.
//
//nolint:ireturn // Returning zapcore.Core is required by the interface.
func (c *overrideCore) With(fields []zapcore.Field) zapcore.Core {
	return &overrideCore{
		Core:  c.Core.With(fields),
		level: c.level,
	}
}

// WithLevel returns an option that evaluates entries against lvl instead of
// the level of the underlying core.
//
//nolint:ireturn // Returning zap.Option is intended for zap integration.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &overrideCore{Core: core, level: lvl}
	})
}
