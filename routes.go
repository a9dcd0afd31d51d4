package bboard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"bboard/middleware"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all HTTP routes with their appropriate middleware chains
func SetupRoutes(svc *BoardService, cfg *Config) http.Handler {
	// Create the token verifier when a shared secret is configured
	var verifier middleware.TokenVerifier
	if cfg.AuthToken != "" {
		verifier = middleware.NewStaticTokenVerifier(cfg.AuthToken, "api")
	}

	// Create middleware setup with converted telemetry config
	telemetryConfig := ConvertTelemetryConfig(svc.telemetry)
	ms := middleware.NewMiddlewareSetup(svc.logger, telemetryConfig, verifier)

	// Configure rate limiting
	// We need to use the actual metric.Meter from the original config
	if svc.telemetry != nil {
		ms.RateLimitConfig.Meter = svc.telemetry.Meter
	}

	// Check if we're in dev mode based on debug flag
	isDevMode := svc.logger.Enabled(context.Background(), slog.LevelDebug)

	// Graph creates are the expensive writes, keep them slow by default
	createRate := 1.0
	if isDevMode {
		createRate = 10.0
	}

	ms.RateLimitConfig.EndpointLimits = map[string]middleware.EndpointLimit{
		"/":        {Pattern: "/", Rate: createRate, Burst: 3},
		"/users":   {Pattern: "/users", Rate: 5, Burst: 10},
		"/users/*": {Pattern: "/users/*", Rate: 5, Burst: 10},
	}

	// Configure observability
	// Use the actual OpenTelemetry types from the original config
	if svc.telemetry != nil {
		ms.ObservabilityConfig = &middleware.ObservabilityConfig{
			ServiceName:     "bboard",
			Logger:          svc.logger,
			Tracer:          svc.telemetry.Tracer,
			Meter:           svc.telemetry.Meter,
			RequestCounter:  svc.telemetry.Metrics.RequestCounter,
			RequestDuration: svc.telemetry.Metrics.RequestDuration,
			ErrorCounter:    svc.telemetry.Metrics.ErrorCounter,
			SampleRate:      1.0,
		}
	}

	// Create router
	mux := http.NewServeMux()

	// API routes require bearer authentication when a token is configured
	apiChain := ms.CreateAuthenticatedChain()

	mux.Handle("POST /{$}", apiChain.ThenFunc(svc.CreateUserHandler))
	mux.Handle("GET /users", apiChain.ThenFunc(svc.ListUsersHandler))
	mux.Handle("GET /users/{id}", apiChain.ThenFunc(svc.GetUserHandler))
	mux.Handle("PUT /users/{id}", apiChain.ThenFunc(svc.UpdateUserHandler))
	mux.Handle("DELETE /users/{id}", apiChain.ThenFunc(svc.DeleteUserHandler))

	// Health check endpoint
	healthChain := middleware.NewChain(
		middleware.RequestContextMiddleware(),
		middleware.LoggingMiddleware(svc.logger),
	)
	mux.Handle("GET /healthz", healthChain.ThenFunc(svc.HealthCheck))

	// Metrics endpoint
	metricsChain := middleware.NewChain(
		middleware.RequestContextMiddleware(),
		// No auth required for metrics, but restrict to local scrapers
		middleware.When(middleware.HasPathPrefix("/_/metrics"), middleware.IPWhitelistMiddleware([]string{"127.0.0.1", "::1"})),
	)
	mux.Handle("GET /_/metrics", metricsChain.Then(promhttp.Handler()))

	// Add global panic recovery as the outermost middleware
	globalChain := middleware.NewChain(
		RecoveryMiddleware(svc.logger),
	)

	return globalChain.Then(mux)
}

// RecoveryMiddleware recovers from panics and logs them with enhanced error reporting
func RecoveryMiddleware(logger *slog.Logger) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Create response wrapper to track write status
			wrapped := &recoveryResponseWriter{ResponseWriter: w}

			defer func() {
				if err := recover(); err != nil {
					// Generate unique error ID for tracking
					errorID := generateErrorID()

					// Collect request information
					requestInfo := []slog.Attr{
						slog.String("error_id", errorID),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("remote_addr", r.RemoteAddr),
						slog.String("user_agent", r.UserAgent()),
						slog.String("referer", r.Referer()),
					}

					// Add query parameters if present
					if r.URL.RawQuery != "" {
						requestInfo = append(requestInfo, slog.String("query", r.URL.RawQuery))
					}

					// Add form data for POST requests (be careful with sensitive data)
					if r.Method == "POST" && r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
						if err := r.ParseForm(); err == nil {
							// Only log non-sensitive form fields
							formData := make(map[string]string)
							for key, values := range r.Form {
								// Skip sensitive fields
								if !isSensitiveField(key) && len(values) > 0 {
									formData[key] = values[0]
								}
							}
							if len(formData) > 0 {
								requestInfo = append(requestInfo, slog.Any("form_data", formData))
							}
						}
					}

					// Log the panic with full context
					allArgs := make([]any, 0, len(requestInfo)+1)
					allArgs = append(allArgs, slog.Any("panic_error", err))
					for _, attr := range requestInfo {
						allArgs = append(allArgs, attr)
					}

					logger.ErrorContext(r.Context(), "panic recovered - internal server error",
						slog.Group("panic_details", allArgs...),
					)

					// Return appropriate response if not already sent
					if !wrapped.headersSent {
						// Set security headers even in error responses
						w.Header().Set("X-Content-Type-Options", "nosniff")
						w.Header().Set("X-Frame-Options", "DENY")

						// Internal errors carry no body, the error ID lives in the logs
						w.WriteHeader(http.StatusInternalServerError)
					} else {
						// Response already started, log this fact
						logger.WarnContext(r.Context(), "cannot send error response - headers already sent",
							slog.String("error_id", errorID))
					}
				}
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}

// recoveryResponseWriter wraps http.ResponseWriter to track if headers have been sent
type recoveryResponseWriter struct {
	http.ResponseWriter
	headersSent bool
}

func (w *recoveryResponseWriter) WriteHeader(statusCode int) {
	if !w.headersSent {
		w.headersSent = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *recoveryResponseWriter) Write(data []byte) (int, error) {
	if !w.headersSent {
		w.headersSent = true
	}
	return w.ResponseWriter.Write(data)
}

// Helper functions

func generateErrorID() string {
	return "ERR-" + uuid.NewString()
}

func isSensitiveField(fieldName string) bool {
	sensitiveFields := map[string]bool{
		"password":    true,
		"passwd":      true,
		"pwd":         true,
		"secret":      true,
		"token":       true,
		"api_key":     true,
		"private_key": true,
		"credit_card": true,
		"ssn":         true,
	}

	fieldLower := strings.ToLower(fieldName)
	return sensitiveFields[fieldLower] ||
		strings.Contains(fieldLower, "password") ||
		strings.Contains(fieldLower, "secret") ||
		strings.Contains(fieldLower, "token")
}
