// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the alert service with timeouts,
// listen address resolution and a guard against running two monitors at once.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
