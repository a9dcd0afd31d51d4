package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type mockVerifier struct {
	user *ContextUser
	err  error
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (*ContextUser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func TestBearerAuthProvider_GetToken(t *testing.T) {
	provider := newBearerAuthProvider(&mockVerifier{}, NewTestLogger())

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid bearer token", header: "Bearer abc123", want: "abc123"},
		{name: "case insensitive scheme", header: "bearer abc123", want: "abc123"},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc123", wantErr: true},
		{name: "empty token", header: "Bearer ", wantErr: true},
		{name: "no space", header: "Bearerabc123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, err := provider.GetToken(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestStaticTokenVerifier(t *testing.T) {
	verifier := NewStaticTokenVerifier("secret-token", "api")

	t.Run("accepts matching token", func(t *testing.T) {
		user, err := verifier.Verify(context.Background(), "secret-token")
		require.NoError(t, err)
		assert.Equal(t, "api", user.Subject)
		assert.True(t, user.IsAdmin())
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		user, err := verifier.Verify(context.Background(), "wrong")
		assert.Error(t, err)
		assert.Nil(t, user)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		_, err := verifier.Verify(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		require.True(t, ok)
		w.Write([]byte(user.Subject))
	})

	t.Run("authenticated request reaches handler", func(t *testing.T) {
		provider := newBearerAuthProvider(&mockVerifier{
			user: &ContextUser{Subject: "alice", Role: "USER"},
		}, NewTestLogger())

		chain := NewChain(
			RequestContextMiddleware(),
			AuthMiddleware(provider, tracer),
		).Then(handler)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		chain.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", rec.Body.String())
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		provider := newBearerAuthProvider(&mockVerifier{}, NewTestLogger())

		chain := NewChain(
			RequestContextMiddleware(),
			AuthMiddleware(provider, tracer),
		).Then(handler)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		rec := httptest.NewRecorder()

		chain.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token returns 401", func(t *testing.T) {
		provider := newBearerAuthProvider(&mockVerifier{
			err: fmt.Errorf("invalid token"),
		}, NewTestLogger())

		chain := NewChain(
			RequestContextMiddleware(),
			AuthMiddleware(provider, tracer),
		).Then(handler)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		chain.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAuthMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("blocks unauthenticated request", func(t *testing.T) {
		chain := NewChain(
			RequestContextMiddleware(),
			RequireAuthMiddleware(),
		).Then(handler)

		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("allows authenticated request", func(t *testing.T) {
		setUser := func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rc := getOrCreateRequestContext(r.Context())
				rc.User = &ContextUser{Subject: "alice"}
				next.ServeHTTP(w, r)
			})
		}

		chain := NewChain(
			RequestContextMiddleware(),
			setUser,
			RequireAuthMiddleware(),
		).Then(handler)

		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireAdminMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	setUser := func(user *ContextUser) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rc := getOrCreateRequestContext(r.Context())
				rc.User = user
				next.ServeHTTP(w, r)
			})
		}
	}

	tests := []struct {
		name       string
		user       *ContextUser
		wantStatus int
	}{
		{name: "admin allowed", user: &ContextUser{Subject: "root", Role: "ADMIN"}, wantStatus: http.StatusOK},
		{name: "regular user forbidden", user: &ContextUser{Subject: "alice", Role: "USER"}, wantStatus: http.StatusForbidden},
		{name: "anonymous forbidden", user: nil, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middlewares := []Middleware{RequestContextMiddleware()}
			if tt.user != nil {
				middlewares = append(middlewares, setUser(tt.user))
			}
			middlewares = append(middlewares, RequireAdminMiddleware())

			chain := NewChain(middlewares...).Then(handler)

			rec := httptest.NewRecorder()
			chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestContextUserIsAdmin(t *testing.T) {
	assert.True(t, (&ContextUser{Role: "ADMIN"}).IsAdmin())
	assert.False(t, (&ContextUser{Role: "USER"}).IsAdmin())
	assert.False(t, (&ContextUser{}).IsAdmin())

	var nilUser *ContextUser
	assert.False(t, nilUser.IsAdmin())
}
