// Package safety contains the core domain types of the safety monitor.
//
// It defines the closed set of events accepted by the safety engine, the
// alert payload handed to dispatchers, raw sensor samples and emergency
// contacts. Clone helpers avoid leaking internal references across goroutines.
package safety
