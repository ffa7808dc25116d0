// Package pb holds the wire contract of safety.v1.AlertService.
//
// Alerts travel as google.protobuf.Struct values shaped like the alert JSON,
// so the service is declared by hand instead of being generated from a .proto
// file. The descriptor, server interface and client stub below follow the
// layout protoc-gen-go-grpc would produce.
package pb
