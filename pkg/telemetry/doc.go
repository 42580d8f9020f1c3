// Package telemetry provides structured logging, Prometheus metrics and
// OpenTelemetry tracing for the lkgm tool. Logging wraps rs/zerolog with
// domain field helpers; metrics cover the candidate lifecycle (creation,
// in-flight retries, status polls, promotions); tracing wraps lifecycle
// operations in spans with stdout or OTLP export.
package telemetry
