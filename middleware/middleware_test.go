package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test helpers
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		handler      http.Handler
		checkHeaders func(t *testing.T, headers http.Header)
	}{
		{
			name: "all security headers are set",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}),
			checkHeaders: func(t *testing.T, headers http.Header) {
				// Check all security headers
				assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
				assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
				assert.Equal(t, "0", headers.Get("X-XSS-Protection"))
				assert.Equal(t, "strict-origin-when-cross-origin", headers.Get("Referrer-Policy"))

				// Check HSTS header - only set for HTTPS
				// Since test request doesn't have TLS, it shouldn't be set
				assert.Empty(t, headers.Get("Strict-Transport-Security"))
			},
		},
		{
			name: "headers are set before handler execution",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// Try to override a security header
				w.Header().Set("X-Frame-Options", "SAMEORIGIN")
				w.WriteHeader(http.StatusOK)
			}),
			checkHeaders: func(t *testing.T, headers http.Header) {
				// The middleware sets headers before the handler, so handler can override
				// This test documents this behavior
				assert.Equal(t, "SAMEORIGIN", headers.Get("X-Frame-Options"))
			},
		},
		{
			name: "HSTS header set for HTTPS requests",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}),
			checkHeaders: func(t *testing.T, headers http.Header) {
				// Should have HSTS header
				assert.Equal(t, "max-age=63072000; includeSubDomains; preload", headers.Get("Strict-Transport-Security"))
			},
		},
		{
			name: "middleware passes through response body",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("test response"))
			}),
			checkHeaders: func(t *testing.T, headers http.Header) {
				// Just verify headers are still set
				assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create the middleware chain
			config := DefaultSecurityConfig()
			middleware := SecurityHeadersMiddleware(config)
			handler := middleware(tt.handler)

			// Create a test request
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			// For HSTS test, simulate HTTPS
			if tt.name == "HSTS header set for HTTPS requests" {
				req.Header.Set("X-Forwarded-Proto", "https")
			}

			rec := httptest.NewRecorder()

			// Execute the handler
			handler.ServeHTTP(rec, req)

			// Check headers
			tt.checkHeaders(t, rec.Header())
		})
	}
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		bodySize       int
		maxSize        int64
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "GET request not limited",
			method:         http.MethodGet,
			bodySize:       1024 * 1024 * 2, // 2MB
			maxSize:        1024 * 1024,     // 1MB limit
			expectedStatus: http.StatusOK,
			expectedBody:   "success",
		},
		{
			name:           "POST request within limit",
			method:         http.MethodPost,
			bodySize:       1024 * 512,  // 512KB
			maxSize:        1024 * 1024, // 1MB limit
			expectedStatus: http.StatusOK,
			expectedBody:   "success",
		},
		{
			name:           "POST request exceeds limit",
			method:         http.MethodPost,
			bodySize:       1024 * 1024 * 2, // 2MB
			maxSize:        1024 * 1024,     // 1MB limit
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   "",
		},
		{
			name:           "PUT request within limit",
			method:         http.MethodPut,
			bodySize:       1024 * 100,  // 100KB
			maxSize:        1024 * 1024, // 1MB limit
			expectedStatus: http.StatusOK,
			expectedBody:   "success",
		},
		{
			name:           "PUT request exceeds limit",
			method:         http.MethodPut,
			bodySize:       1024 * 1024 * 5, // 5MB
			maxSize:        1024 * 1024,     // 1MB limit
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   "",
		},
		{
			name:           "DELETE request not limited",
			method:         http.MethodDelete,
			bodySize:       1024 * 1024 * 2, // 2MB
			maxSize:        1024 * 1024,     // 1MB limit
			expectedStatus: http.StatusOK,
			expectedBody:   "success",
		},
		{
			name:           "Very small limit",
			method:         http.MethodPost,
			bodySize:       100,
			maxSize:        10, // 10 bytes limit
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   "",
		},
		{
			name:           "Exact size limit",
			method:         http.MethodPost,
			bodySize:       1024,
			maxSize:        1024,
			expectedStatus: http.StatusOK,
			expectedBody:   "success",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create a handler that reads the body
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					// This happens when body exceeds limit
					http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
					return
				}

				// Verify we received the expected amount of data
				if len(body) != tt.bodySize && tt.expectedStatus == http.StatusOK {
					t.Errorf("Expected body size %d, got %d", tt.bodySize, len(body))
				}

				w.WriteHeader(http.StatusOK)
				w.Write([]byte("success"))
			})

			// Create the middleware
			middleware := RequestSizeLimitMiddleware(tt.maxSize)(handler)

			// Create request with body
			body := bytes.Repeat([]byte("a"), tt.bodySize)
			req := httptest.NewRequest(tt.method, "/test", bytes.NewReader(body))
			req.ContentLength = int64(tt.bodySize)

			rec := httptest.NewRecorder()

			// Execute the middleware
			middleware.ServeHTTP(rec, req)

			// Check response
			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestRequestSizeLimitMiddleware_ReadPartially(t *testing.T) {
	// Test that partial reads work correctly
	maxSize := int64(1024) // 1KB limit

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Read only 100 bytes
		buf := make([]byte, 100)
		n, err := r.Body.Read(buf)

		if err != nil && err != io.EOF {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("read " + strconv.Itoa(n) + " bytes"))
	})

	middleware := RequestSizeLimitMiddleware(maxSize)(handler)

	// Create request with 500 bytes (within limit)
	body := bytes.Repeat([]byte("a"), 500)
	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	middleware.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "read")
}

func TestMiddlewareChaining(t *testing.T) {
	// Test that multiple middlewares work correctly together
	var executionOrder []string

	// Create a handler that records execution
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		executionOrder = append(executionOrder, "handler")

		// Try to read body to trigger size limit
		io.ReadAll(r.Body)

		w.WriteHeader(http.StatusOK)
	})

	// Create a custom middleware to track execution order
	trackingMiddleware := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				executionOrder = append(executionOrder, name+"-before")
				next.ServeHTTP(w, r)
				executionOrder = append(executionOrder, name+"-after")
			})
		}
	}

	// Chain middlewares
	config := DefaultSecurityConfig()
	securityHeadersMiddleware := SecurityHeadersMiddleware(config)
	sizeLimitMiddleware := RequestSizeLimitMiddleware(1024)

	// Build the chain
	chain := trackingMiddleware("outer")(
		sizeLimitMiddleware(
			securityHeadersMiddleware(handler),
		),
	)

	// Create request
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("test body"))
	rec := httptest.NewRecorder()

	// Execute
	executionOrder = []string{} // Reset
	chain.ServeHTTP(rec, req)

	// Verify execution order
	expected := []string{"outer-before", "handler", "outer-after"}
	assert.Equal(t, expected, executionOrder)

	// Verify headers are still set
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChainAppendAndExtend(t *testing.T) {
	var order []string

	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	base := NewChain(tag("a"), tag("b"))
	extended := base.Append(tag("c"))
	combined := extended.Extend(NewChain(tag("d")))

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	order = nil
	combined.Then(handler).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, []string{"a", "b", "c", "d", "handler"}, order)

	// Original chain is unmodified
	order = nil
	base.Then(handler).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestWhenUnless(t *testing.T) {
	marker := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Applied", "true")
			next.ServeHTTP(w, r)
		})
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("when applies on matching method", func(t *testing.T) {
		mw := When(HasMethod("POST"), marker)
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, "true", rec.Header().Get("X-Applied"))
	})

	t.Run("when skips on non-matching method", func(t *testing.T) {
		mw := When(HasMethod("POST"), marker)
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Empty(t, rec.Header().Get("X-Applied"))
	})

	t.Run("unless skips on matching prefix", func(t *testing.T) {
		mw := Unless(HasPathPrefix("/healthz"), marker)
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Empty(t, rec.Header().Get("X-Applied"))
	})
}

func TestRequestContextMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestID(r.Context())
		assert.NotEmpty(t, requestID)
		w.Write([]byte(requestID))
	})

	mw := RequestContextMiddleware()(handler)

	rec1 := httptest.NewRecorder()
	mw.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/", nil))

	rec2 := httptest.NewRecorder()
	mw.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/", nil))

	// Each request gets a distinct ID
	assert.NotEqual(t, rec1.Body.String(), rec2.Body.String())
}

func BenchmarkSecurityHeadersMiddleware(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	config := DefaultSecurityConfig()
	middleware := SecurityHeadersMiddleware(config)
	chain := middleware(handler)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
	}
}

func BenchmarkRequestSizeLimitMiddleware(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte("OK"))
	})

	middleware := RequestSizeLimitMiddleware(1024 * 1024)(handler)
	body := bytes.Repeat([]byte("a"), 1024) // 1KB body

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		middleware.ServeHTTP(rec, req)
	}
}
