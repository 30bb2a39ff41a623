// Package observability provides structured logging, Prometheus metrics,
// health probes, and graceful shutdown for the organization billing
// service.
//
// Logging uses stdlib slog with a JSON handler. Metrics cover the HTTP
// surface, payment-gateway calls, and organization provisioning.
package observability
