// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roommate_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roommate_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})

	ledgerApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roommate_ledger_entries_applied_total",
		Help: "Ledger entries folded into the balance map",
	}, []string{"kind"})

	ledgerRetracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roommate_ledger_entries_retracted_total",
		Help: "Ledger entries removed from the balance map",
	}, []string{"kind"})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roommate_validation_failures_total",
		Help: "Rejected expense and settlement issues by kind",
	}, []string{"kind"})

	knownPersons = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roommate_known_persons",
		Help: "Persons registered with the balance aggregator",
	})

	activityDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roommate_activity_events_dropped_total",
		Help: "Activity events dropped because the queue was full or closed",
	})
)

func EntryApplied(kind string)     { ledgerApplied.WithLabelValues(kind).Inc() }
func EntryRetracted(kind string)   { ledgerRetracted.WithLabelValues(kind).Inc() }
func ValidationFailed(kind string) { validationFailures.WithLabelValues(kind).Inc() }
func SetKnownPersons(n int)        { knownPersons.Set(float64(n)) }
func ActivityDropped()             { activityDropped.Inc() }

// Middleware records request count and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
