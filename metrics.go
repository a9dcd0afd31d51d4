package bboard

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	versionGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bboard_build_info",
		Help: "A gauge with version and git commit information",
	}, []string{"version", "git_commit"})

	listUsersQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bboard_queries",
			Name:      "list_users_duration_seconds",
			Help:      "Histogram of the time it takes to execute ListUsersByName.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"function"},
	)

	getUserQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bboard_queries",
			Name:      "get_user_duration_seconds",
			Help:      "Histogram of the time it takes to execute GetUser.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"function"},
	)

	createUserTxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bboard_queries",
			Name:      "create_user_tx_duration_seconds",
			Help:      "Histogram of the time it takes to persist a full user graph.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"function"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bboard",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of response latency (seconds) for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "code"},
	)
)

func init() {
	prometheus.MustRegister(listUsersQueryDuration)
	prometheus.MustRegister(getUserQueryDuration)
	prometheus.MustRegister(createUserTxDuration)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(versionGauge)
}

// RecordBuildInfo publishes version labels on the build info gauge.
func RecordBuildInfo(version, gitSha string) {
	versionGauge.With(prometheus.Labels{"version": version, "git_commit": gitSha}).Set(1)
}

var pathIDPattern = regexp.MustCompile(`/(\d+)`)

func HistogramHttpHandler(next http.Handler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Capture the status code for the label set
		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		sanitizedPath := pathIDPattern.ReplaceAllString(r.URL.Path, "/:id")

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		httpRequestDuration.WithLabelValues(sanitizedPath, r.Method, strconv.Itoa(rw.statusCode)).Observe(duration)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}
