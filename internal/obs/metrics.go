package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

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

	readiness = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nurseconnect_ready",
		Help: "1 when the API can reach its database.",
	})

	initOnce sync.Once
)

// Init registers the HTTP metrics in the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, readiness)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		readiness.Set(1)
		return
	}
	readiness.Set(0)
}

// Instrument records in-flight, count and latency per canonical route.
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

// OtherPath labels every request that does not hit a known route.
const OtherPath = "other"

var staticPaths = map[string]struct{}{
	"/":                           {},
	"/health":                     {},
	"/metrics":                    {},
	"/openapi.yaml":               {},
	"/api/auth/login":             {},
	"/api/facility-auth/login":    {},
	"/api/facility-auth/register": {},
	"/api/facilities":             {},
	"/api/shifts":                 {},
	"/api/shifts/events":          {},
	"/api/applications":           {},
}

// CanonicalPath maps a request path onto its route template so label
// cardinality stays bounded. Anything unrouted collapses to OtherPath.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if _, ok := staticPaths[p]; ok {
		return p
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "shifts" && isID(parts[2]):
		return "/api/shifts/:id"
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "shifts" && parts[2] == "edit" && isID(parts[3]):
		return "/api/shifts/edit/:id"
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "facilities" && isID(parts[2]):
		return "/api/facilities/:id"
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "applications" && isID(parts[2]) && parts[3] == "status":
		return "/api/applications/:id/status"
	}
	return OtherPath
}

func isID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working behind the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
