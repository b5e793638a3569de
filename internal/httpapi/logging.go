package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zaypaihtet/queue-system/internal/metrics"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request and records it in the request
// counters, keyed by a normalized route so IDs do not explode label
// cardinality.
func LoggingMiddleware(log *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(writer, r)
			duration := time.Since(start)

			route := routeLabel(r.URL.Path)
			m.HTTPRequests.WithLabelValues(route, strconv.Itoa(writer.status)).Inc()
			m.HTTPLatency.WithLabelValues(route).Observe(duration.Seconds())
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", writer.status,
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/customer/status/"):
		return "/api/customer/status/{queueNumber}"
	case path == "/api/customers" || path == "/api/customers/search":
		return path
	case strings.HasPrefix(path, "/api/customers/"):
		if strings.HasSuffix(path, "/status") {
			return "/api/customers/{id}/status"
		}
		return "/api/customers/{id}"
	default:
		return path
	}
}
