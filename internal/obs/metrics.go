package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization gate decisions by module, action and outcome.",
		},
		[]string{"module", "action", "outcome"},
	)

	sessionsPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_pruned_total",
		Help: "Expired session records removed by the worker.",
	})

	ticketsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_created_total",
			Help: "Tickets opened, by authentication channel.",
		},
		[]string{"channel"},
	)

	apiKeyLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_key_lookups_total",
			Help: "API key resolutions by cache result.",
		},
		[]string{"result"},
	)

	initOnce sync.Once
)

// Init registers metrics in the default registry. Safe to call repeatedly.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			authzDecisions, sessionsPruned, ticketsCreated, apiKeyLookups,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAuthzDecision counts one gate decision.
func RecordAuthzDecision(module, action, outcome string) {
	authzDecisions.WithLabelValues(module, action, outcome).Inc()
}

// RecordSessionsPruned adds n pruned session records.
func RecordSessionsPruned(n int64) {
	if n > 0 {
		sessionsPruned.Add(float64(n))
	}
}

// RecordTicketCreated counts a ticket opened through channel.
func RecordTicketCreated(channel string) {
	ticketsCreated.WithLabelValues(channel).Inc()
}

// RecordAPIKeyLookup counts an API key resolution ("hit", "miss" or "invalid").
func RecordAPIKeyLookup(result string) {
	apiKeyLookups.WithLabelValues(result).Inc()
}

// Instrument measures request count, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath strips the query and replaces uuid segments with ":id" to
// keep label cardinality bounded.
func CanonicalPath(raw string) string {
	path, _, _ := strings.Cut(raw, "?")
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := uuid.Parse(seg); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE handlers working behind the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
