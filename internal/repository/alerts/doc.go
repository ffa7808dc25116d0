// Package alerts implements the alert journal used by alert-server.
//
// FileRepository appends one protobuf JSON line per alert on disk.
// PostgresRepository stores alerts in a table keyed by event id.
// Both reject a second alert with an already journaled event id.
package alerts
