package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "releaseguard",
		Name:      "auth_events_total",
		Help:      "Credential lifecycle flow outcomes.",
	}, []string{"flow", "outcome"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "releaseguard",
		Name:      "http_in_flight_requests",
		Help:      "In-flight HTTP requests.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "releaseguard",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "releaseguard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latencies in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	HousekeepingPurged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "releaseguard",
		Name:      "housekeeping_purged_total",
		Help:      "Rows cleared by the housekeeping worker.",
	}, []string{"kind"})
)

// RecordAuthEvent counts one flow outcome. outcome is "success" or an error
// code such as "invalid_credential".
func RecordAuthEvent(flow, outcome string) {
	AuthEvents.WithLabelValues(flow, outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps a route handler. route is the registered pattern, not the
// request path, to keep label cardinality bounded.
func Instrument(route string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next(sw, r, ps)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
