// Package observability provides structured logging and request performance
// metrics for the student-success API.
//
// This package implements:
//   - Structured logging (zap-based)
//   - A bounded, in-memory window of recent request samples
//   - Aggregate statistics over that window (p95, average, error rate)
//   - A Prometheus collector exposing the same statistics
//
// The window is ephemeral: samples are never persisted and are lost on
// restart.
package observability
