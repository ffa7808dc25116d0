// Package engine is the safety engine: a single event loop that turns
// detector and user events into alerts.
//
// Events are handled strictly one at a time by the loop goroutine, which is
// the only owner of the engine state. Side effects that may block (location
// lookup, dispatch) run in separate goroutines and never hold up the loop.
// Confirmation timers post back into the loop, where the condition is
// checked again before an alert fires.
package engine
