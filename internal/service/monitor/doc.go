// Package monitor assembles and runs one monitoring session: sensor sources,
// detectors, the safety engine, alert dispatch and the status server.
package monitor
