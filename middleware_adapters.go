package bboard

import (
	"errors"
	"net/http"

	"bboard/middleware"
)

// ConvertTelemetryConfig converts the main TelemetryConfig to middleware.TelemetryConfig
func ConvertTelemetryConfig(tc *TelemetryConfig) *middleware.TelemetryConfig {
	if tc == nil {
		return nil
	}

	// Pass the actual OpenTelemetry types directly
	return &middleware.TelemetryConfig{
		Tracer: tc.Tracer,
		Meter:  tc.Meter,
		Metrics: middleware.TelemetryMetrics{
			RequestCounter:  tc.Metrics.RequestCounter,
			RequestDuration: tc.Metrics.RequestDuration,
			ErrorCounter:    tc.Metrics.ErrorCounter,
		},
	}
}

// RequestUser retrieves the authenticated principal from the request context
func RequestUser(r *http.Request) (*middleware.ContextUser, error) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		return nil, errors.New("user not found in context")
	}
	return user, nil
}
