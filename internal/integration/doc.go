// Package integration holds end-to-end tests that run the alert server and
// the monitor over real sockets.
package integration
