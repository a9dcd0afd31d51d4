package bboard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogramHttpHandlerPassthrough(t *testing.T) {
	handler := HistogramHttpHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest("GET", "/users/123", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestHistogramHttpHandlerSanitizesPathIDs(t *testing.T) {
	before := testutil.CollectAndCount(httpRequestDuration)

	handler := HistogramHttpHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/users/4711", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// One more label combination observed; numeric path segments collapse
	// into :id so cardinality stays bounded.
	after := testutil.CollectAndCount(httpRequestDuration)
	assert.Equal(t, before+1, after)

	assert.Equal(t, "/users/:id", pathIDPattern.ReplaceAllString("/users/4711", "/:id"))
	assert.Equal(t, "/users", pathIDPattern.ReplaceAllString("/users", "/:id"))
	assert.Equal(t, "/users/:id/posts/:id", pathIDPattern.ReplaceAllString("/users/1/posts/2", "/:id"))
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

	rec.Write([]byte("implicit 200"))
	assert.Equal(t, http.StatusOK, rec.statusCode)

	rec.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rec.statusCode)
}

func TestRecordBuildInfo(t *testing.T) {
	RecordBuildInfo("v1.2.3", "abc1234")

	value := testutil.ToFloat64(versionGauge.WithLabelValues("v1.2.3", "abc1234"))
	require.Equal(t, 1.0, value)
}
