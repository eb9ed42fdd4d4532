// Package metrics exposes Prometheus collectors for HTTP traffic and the
// donation lifecycle.
//
// Collectors live on a private registry rather than the global default, so
// tests can build as many Metrics as they like without duplicate
// registration panics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clothconnect"

// Donation lifecycle events counted by DonationEvent.
const (
	EventCreated  = "created"
	EventAccepted = "accepted"
	EventRejected = "rejected"
	EventPicked   = "picked"
)

type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	donations   *prometheus.CounterVec
	collected   prometheus.Counter
	distributed prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		donations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donation_events_total",
			Help:      "Donation lifecycle transitions.",
		}, []string{"event"}),
		collected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_collected_total",
			Help:      "Clothing items added to NGO collections.",
		}),
		distributed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_distributed_total",
			Help:      "Clothing items distributed from NGO collections.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.donations, m.collected, m.distributed,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records one request count and latency observation per request.
// Routes are labelled by their chi pattern ("/api/pickups/{id}"), never the
// raw path, so ids do not explode the label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

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

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// The recorders below are safe to call on a nil *Metrics, which is what
// services get when metrics are disabled.

func (m *Metrics) DonationEvent(event string) {
	if m == nil {
		return
	}
	m.donations.WithLabelValues(event).Inc()
}

func (m *Metrics) ItemsCollected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.collected.Add(float64(n))
}

func (m *Metrics) ItemsDistributed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.distributed.Add(float64(n))
}
