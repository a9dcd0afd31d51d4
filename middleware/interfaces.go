package middleware

import (
	"context"
)

// TokenVerifier resolves a bearer token to a principal. Implementations
// may check a static secret, a database, or an external identity service.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*ContextUser, error)
}

// TelemetryConfig represents telemetry configuration
// This is a simplified version that references the actual types from the main package
type TelemetryConfig struct {
	ServiceName string
	Tracer      interface{} // Will be trace.Tracer
	Meter       interface{} // Will be metric.Meter
	Metrics     TelemetryMetrics
}

// TelemetryMetrics holds telemetry metrics
type TelemetryMetrics struct {
	RequestCounter  interface{} // Will be metric.Int64Counter
	RequestDuration interface{} // Will be metric.Float64Histogram
	ErrorCounter    interface{} // Will be metric.Int64Counter
}
