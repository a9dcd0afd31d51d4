package middleware

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MiddlewareSetup configures all middleware for the application
type MiddlewareSetup struct {
	// Core services
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Meter     metric.Meter
	Telemetry *TelemetryConfig

	// Auth
	AuthProvider AuthProvider

	// Configuration
	SecurityConfig      *SecurityConfig
	RateLimitConfig     *RateLimitConfig
	ObservabilityConfig *ObservabilityConfig

	// Feature flags
	EnableAuth      bool
	EnableRateLimit bool
	EnableMetrics   bool
	EnableTracing   bool
}

// NewMiddlewareSetup creates a new middleware setup with defaults
func NewMiddlewareSetup(logger *slog.Logger, telemetry *TelemetryConfig, verifier TokenVerifier) *MiddlewareSetup {
	// Type assert the interfaces to the actual OpenTelemetry types
	var tracer trace.Tracer
	var meter metric.Meter
	if telemetry != nil {
		tracer, _ = telemetry.Tracer.(trace.Tracer)
		meter, _ = telemetry.Meter.(metric.Meter)
	}

	var provider AuthProvider
	if verifier != nil {
		provider = newBearerAuthProvider(verifier, logger)
	}

	return &MiddlewareSetup{
		Logger:       logger,
		Tracer:       tracer,
		Meter:        meter,
		Telemetry:    telemetry,
		AuthProvider: provider,

		// Default configs
		SecurityConfig:  defaultSecurityConfig(),
		RateLimitConfig: defaultRateLimitConfig(),

		// Enable features by default
		EnableAuth:      provider != nil,
		EnableRateLimit: true,
		EnableMetrics:   true,
		EnableTracing:   true,
	}
}

// CreatePublicChain creates middleware chain for public endpoints
func (ms *MiddlewareSetup) CreatePublicChain() *Chain {
	middlewares := []Middleware{
		// Always start with request context
		requestContextMiddleware(),
	}

	// Add observability
	if (ms.EnableMetrics || ms.EnableTracing) && ms.Telemetry != nil {
		middlewares = append(middlewares, ms.createObservabilityMiddleware())
	}

	// Add logging
	middlewares = append(middlewares, loggingMiddleware(ms.Logger))

	// Add security headers
	middlewares = append(middlewares, securityHeadersMiddleware(ms.SecurityConfig))

	// Add request size limiting
	middlewares = append(middlewares, requestSizeLimitMiddleware(1024*1024)) // 1MB

	// Add rate limiting
	if ms.EnableRateLimit {
		rl := newRateLimiter(ms.RateLimitConfig, ms.Logger)
		middlewares = append(middlewares, rl.Middleware())
	}

	return newChain(middlewares...)
}

// CreateAuthenticatedChain creates middleware chain for authenticated endpoints
func (ms *MiddlewareSetup) CreateAuthenticatedChain() *Chain {
	// Start with public chain
	chain := ms.CreatePublicChain()

	// Add authentication
	if ms.EnableAuth {
		chain = chain.Append(
			authMiddleware(ms.AuthProvider, ms.Tracer),
			userEnrichmentMiddleware(),
			requireAuthMiddleware(),
		)
	}

	return chain
}

// CreateAdminChain creates middleware chain for admin endpoints
func (ms *MiddlewareSetup) CreateAdminChain() *Chain {
	// Start with authenticated chain
	chain := ms.CreateAuthenticatedChain()

	// Add admin requirement
	if ms.EnableAuth {
		chain = chain.Append(requireAdminMiddleware())
	}

	// Add extra logging for admin actions
	chain = chain.Append(adminAuditMiddleware(ms.Logger))

	return chain
}

// createObservabilityMiddleware creates the observability middleware
func (ms *MiddlewareSetup) createObservabilityMiddleware() Middleware {
	// An explicitly configured ObservabilityConfig wins over the derived one
	if ms.ObservabilityConfig != nil {
		return newObservabilityMiddleware(ms.ObservabilityConfig)
	}

	// Type assert the metrics to the actual OpenTelemetry types
	requestCounter, _ := ms.Telemetry.Metrics.RequestCounter.(metric.Int64Counter)
	requestDuration, _ := ms.Telemetry.Metrics.RequestDuration.(metric.Float64Histogram)
	errorCounter, _ := ms.Telemetry.Metrics.ErrorCounter.(metric.Int64Counter)

	config := &ObservabilityConfig{
		ServiceName:     "bboard",
		Logger:          ms.Logger,
		Tracer:          ms.Tracer,
		Meter:           ms.Meter,
		RequestCounter:  requestCounter,
		RequestDuration: requestDuration,
		ErrorCounter:    errorCounter,
		SampleRate:      1.0,
	}

	// Add additional metrics if available
	if ms.Meter != nil {
		config.RequestSize, _ = ms.Meter.Int64Histogram(
			"http.server.request.size",
			metric.WithDescription("Size of HTTP request bodies"),
			metric.WithUnit("By"),
		)

		config.ResponseSize, _ = ms.Meter.Int64Histogram(
			"http.server.response.size",
			metric.WithDescription("Size of HTTP response bodies"),
			metric.WithUnit("By"),
		)

		config.ActiveRequests, _ = ms.Meter.Int64UpDownCounter(
			"http.server.active_requests",
			metric.WithDescription("Number of active HTTP requests"),
			metric.WithUnit("{request}"),
		)
	}

	return newObservabilityMiddleware(config)
}

// adminAuditMiddleware logs all admin actions
func adminAuditMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := ""
			if user, _ := getUser(r.Context()); user != nil {
				subject = user.Subject
			}

			logger.InfoContext(r.Context(), "admin_action",
				slog.String("action", r.Method+" "+r.URL.Path),
				slog.String("subject", subject),
				slog.String("query", r.URL.RawQuery),
				slog.String("remote_addr", r.RemoteAddr),
			)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			logger.InfoContext(r.Context(), "admin_action_completed",
				slog.String("action", r.Method+" "+r.URL.Path),
				slog.String("subject", subject),
				slog.Int("status", wrapped.Status()),
			)
		})
	}
}
