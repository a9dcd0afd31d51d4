package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AuthProvider handles authentication logic
type AuthProvider interface {
	GetToken(r *http.Request) (string, error)
	ResolveUser(ctx context.Context, token string) (*ContextUser, error)
}

// BearerAuthProvider implements AuthProvider for Authorization: Bearer tokens
type BearerAuthProvider struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// newBearerAuthProvider creates a new bearer token auth provider
func newBearerAuthProvider(verifier TokenVerifier, logger *slog.Logger) *BearerAuthProvider {
	return &BearerAuthProvider{
		verifier: verifier,
		logger:   logger,
	}
}

// GetToken extracts the bearer token from the Authorization header
func (p *BearerAuthProvider) GetToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", fmt.Errorf("malformed Authorization header")
	}

	return token, nil
}

// ResolveUser verifies the token and returns the principal
func (p *BearerAuthProvider) ResolveUser(ctx context.Context, token string) (*ContextUser, error) {
	user, err := p.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return user, nil
}

// StaticTokenVerifier accepts one shared secret and maps it to a fixed
// admin principal. Suitable for single-operator deployments.
type StaticTokenVerifier struct {
	token   string
	subject string
}

// NewStaticTokenVerifier creates a verifier for a single shared token
func NewStaticTokenVerifier(token, subject string) *StaticTokenVerifier {
	return &StaticTokenVerifier{token: token, subject: subject}
}

func (v *StaticTokenVerifier) Verify(ctx context.Context, token string) (*ContextUser, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return nil, fmt.Errorf("invalid token")
	}
	return &ContextUser{Subject: v.subject, Role: "ADMIN"}, nil
}

// hashToken produces a short stable identifier for logs without exposing
// the credential itself.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)[:8]
}

// authMiddleware provides authentication using the given provider
func authMiddleware(provider AuthProvider, tracer trace.Tracer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Start span for auth
			if tracer != nil {
				var span trace.Span
				ctx, span = tracer.Start(ctx, "auth.middleware",
					trace.WithAttributes(
						attribute.String("auth.provider", "bearer"),
					),
				)
				defer span.End()
			}

			token, err := provider.GetToken(r)
			if err != nil {
				logger := getLogger(ctx)
				logger.WarnContext(ctx, "authentication failed",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)

				if span := trace.SpanFromContext(ctx); span.IsRecording() {
					span.RecordError(err)
					span.SetStatus(codes.Error, "authentication failed")
				}

				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			user, err := provider.ResolveUser(ctx, token)
			if err != nil {
				logger := getLogger(ctx)
				logger.WarnContext(ctx, "token rejected",
					slog.String("error", err.Error()),
					slog.String("token_hash", hashToken(token)),
				)

				if span := trace.SpanFromContext(ctx); span.IsRecording() {
					span.RecordError(err)
					span.SetStatus(codes.Error, "token rejected")
				}

				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			// Add user to context
			rc := getOrCreateRequestContext(ctx)
			rc.User = user

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("user.subject", user.Subject),
					attribute.Bool("user.is_admin", user.IsAdmin()),
				)
			}

			logger := getLogger(ctx)
			logger.DebugContext(ctx, "user authenticated",
				slog.String("subject", user.Subject),
				slog.Bool("is_admin", user.IsAdmin()),
			)

			next.ServeHTTP(w, r)
		})
	}
}

// requireAuthMiddleware ensures the user is authenticated
func requireAuthMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAuthenticated(r) {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAdminMiddleware ensures the user is an admin
func requireAdminMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAdmin(r) {
				logger := getLogger(r.Context())
				user, _ := getUser(r.Context())
				if user != nil {
					logger.WarnContext(r.Context(), "non-admin user attempted admin action",
						slog.String("subject", user.Subject),
						slog.String("path", r.URL.Path),
					)
				}
				http.Error(w, "Admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// userEnrichmentMiddleware adds user information to all handlers
// This should run after authMiddleware
func userEnrichmentMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := getUser(r.Context())
			if ok && user != nil {
				logger := getLogger(r.Context())
				enrichedLogger := logger.With(
					slog.String("subject", user.Subject),
					slog.Bool("is_admin", user.IsAdmin()),
				)

				ctx := context.WithValue(r.Context(), contextKey("logger"), enrichedLogger)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}
