// Package status exposes the engine to the presentation layer over HTTP.
//
// GET /status returns the current observables and GET /ws streams every
// change as a JSON text frame. User answers arrive as POST /actions/{action}
// and are rate limited per client address.
package status
