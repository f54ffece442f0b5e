package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	nodeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gaia",
			Subsystem: "node",
			Name:      "operations_total",
			Help:      "Total node lifecycle operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	nodesRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gaia",
			Subsystem: "node",
			Name:      "running",
			Help:      "Number of nodes currently reported running",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gaia",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gaia",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(nodeOperationsTotal, nodesRunning, httpRequestsTotal, httpRequestDuration)
}

// RecordNodeOp counts one lifecycle operation. outcome is "ok" or "error".
func RecordNodeOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	nodeOperationsTotal.WithLabelValues(op, outcome).Inc()
}

// SetNodesRunning publishes the current running-node count.
func SetNodesRunning(n int) { nodesRunning.Set(float64(n)) }

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePatternOrPath(r)
		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		statusLabel := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, statusLabel).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
