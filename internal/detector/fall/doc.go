// Package fall detects falls in a stream of accelerometer samples.
//
// The Detector runs a three-phase state machine over the acceleration
// magnitude: a sustained free fall, an impact that follows it closely, and a
// period of stillness after the impact. One FallDetected decision is produced
// per episode and decisions are rate limited by a cooldown.
package fall
