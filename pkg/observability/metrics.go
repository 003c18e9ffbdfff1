package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Security pipeline metrics
	PolicyDecisionsTotal *prometheus.CounterVec
	AuthEventsTotal      *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen         prometheus.Gauge
	DBConnectionsInUse        prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge

	// Redis metrics
	RedisConnectionsTotal prometheus.Gauge
	RedisConnectionsIdle  prometheus.Gauge
	RedisPoolHits         prometheus.Gauge
	RedisPoolMisses       prometheus.Gauge
	RedisPoolTimeouts     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acquisitions_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acquisitions_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acquisitions_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		PolicyDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acquisitions_policy_decisions_total",
				Help: "Security policy decisions by rule, conclusion and denial reason",
			},
			[]string{"rule", "conclusion", "reason"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acquisitions_auth_events_total",
				Help: "Sign-up, sign-in and sign-out attempts by outcome",
			},
			[]string{"event", "outcome"},
		),

		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_db_connections_open",
				Help: "Number of established database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_db_connections_in_use",
				Help: "Number of database connections currently in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
		DBConnectionsWaitDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_db_connections_wait_duration_seconds",
				Help: "Total time spent waiting for connections",
			},
		),

		RedisConnectionsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_redis_connections_total",
				Help: "Number of connections in the Redis pool",
			},
		),
		RedisConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_redis_connections_idle",
				Help: "Number of idle connections in the Redis pool",
			},
		),
		RedisPoolHits: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_redis_pool_hits",
				Help: "Times a free connection was found in the Redis pool",
			},
		),
		RedisPoolMisses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_redis_pool_misses",
				Help: "Times a free connection was not found in the Redis pool",
			},
		),
		RedisPoolTimeouts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acquisitions_redis_pool_timeouts",
				Help: "Times a wait for a Redis connection timed out",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.PolicyDecisionsTotal,
		m.AuthEventsTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.RedisConnectionsTotal,
		m.RedisConnectionsIdle,
		m.RedisPoolHits,
		m.RedisPoolMisses,
		m.RedisPoolTimeouts,
	)

	return m
}

// RecordPolicyDecision counts one rule outcome from the policy engine
func (m *Metrics) RecordPolicyDecision(rule, conclusion, reason string) {
	m.PolicyDecisionsTotal.WithLabelValues(rule, conclusion, reason).Inc()
}

// RecordAuthEvent counts one sign-up, sign-in or sign-out attempt
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// UnmatchedRoute labels requests that no registered route serves
const UnmatchedRoute = "unmatched"

// RouteTemplate returns a labeler that names a request by the path template of
// the router route it matches, e.g. /api/users/{id}. Unknown paths and method
// mismatches share UnmatchedRoute so they cannot grow the label set.
func RouteTemplate(router *mux.Router) func(*http.Request) string {
	return func(r *http.Request) string {
		var match mux.RouteMatch
		if !router.Match(r, &match) || match.MatchErr != nil || match.Route == nil {
			return UnmatchedRoute
		}
		tpl, err := match.Route.GetPathTemplate()
		if err != nil {
			return UnmatchedRoute
		}
		return tpl
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// route maps a request to its path label.
func HTTPMetricsMiddleware(metrics *Metrics, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			path := route(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
