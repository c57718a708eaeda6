// Package telemetry обеспечивает наблюдаемость агента.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//   - tracing.go — OpenTelemetry tracer
//
// Метрики экспортируются на /metrics endpoint воркера.
package telemetry
