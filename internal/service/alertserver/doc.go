// Package alertserver runs the alert backend: it accepts alerts over gRPC,
// journals them and exports the journal as an xlsx report.
package alertserver
