// Package errors provides structured error types for the layout codec.
//
// Errors carry a processing phase (size, serialize, deserialize,
// discriminate), a kind from the closed set of codec failures, and the
// path of named items leading to the offending field:
//
//	[serialize] out_of_range at header.port: value 70000 does not fit uint of 2 bytes
//	[deserialize] unknown_switch_id at address: wire id 7 has no matching branch
//
// Use the Builder for rich errors or the convenience constructors for
// common patterns. Matching is structural: errors.Is compares phase
// and kind, ignoring path and detail.
package errors
