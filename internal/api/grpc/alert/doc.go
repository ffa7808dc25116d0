// Package alert implements the gRPC transport for the alert service.
//
// It converts Struct messages to domain alerts, validates them and calls into
// a provided business-service interface.
package alert
