package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	pkgmiddleware "github.com/notesync/transition-core/pkg/middleware"
)

// httpMetrics holds the Prometheus instrumentation for the item-sync
// HTTP server.
type httpMetrics struct {
	RequestDuration *prometheus.HistogramVec
}

var defaultHTTPMetrics = newHTTPMetrics()

func newHTTPMetrics() *httpMetrics {
	return &httpMetrics{
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "itemsync_http_request_duration_seconds",
				Help:    "Duration of item-sync HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

// withMetrics records request duration labeled by method, a
// cardinality-bounded normalized path, and status code.
func withMetrics(next http.Handler) http.Handler {
	normalizer := pkgmiddleware.NewPathNormalizer()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusCapturingWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		defaultHTTPMetrics.RequestDuration.WithLabelValues(
			r.Method,
			normalizer.NormalizePath(r.URL.Path),
			strconv.Itoa(wrapped.statusCode),
		).Observe(time.Since(start).Seconds())
	})
}

type statusCapturingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusCapturingWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
