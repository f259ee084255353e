package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

const namespace = "ovecore"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Broadcast metrics
	Broadcasts      *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	SendsDropped    prometheus.Counter
	RelayLoops      prometheus.Counter
	RemoteCallFails *prometheus.CounterVec
}

// NewRegistry creates a registry with the Go runtime and process
// collectors and every application metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Envelopes fanned out to local sockets by kind",
		}, []string{"kind"}),

		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "deliveries_total",
			Help:      "Frames queued to local sockets by envelope kind",
		}, []string{"kind"}),

		SendsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "sends_dropped_total",
			Help:      "Frames dropped because a socket send buffer was full",
		}),

		RelayLoops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "relay_loops_total",
			Help:      "Peer envelopes dropped because they were already forwarded by this instance",
		}),

		RemoteCallFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "call_failures_total",
			Help:      "Failed application and peer instance calls by operation",
		}, []string{"op"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.RequestsTotal,
		r.RequestDuration,
		r.Broadcasts,
		r.Deliveries,
		r.SendsDropped,
		r.RelayLoops,
		r.RemoteCallFails,
	)
	return r
}

// MustRegister registers additional collectors, such as a Collector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveRequest records one completed HTTP request.
func (r *Registry) ObserveRequest(method, route string, code int, d time.Duration) {
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Broadcast implements the hub observer.
func (r *Registry) Broadcast(kind domain.Kind, delivered int) {
	r.Broadcasts.WithLabelValues(kind.String()).Inc()
	r.Deliveries.WithLabelValues(kind.String()).Add(float64(delivered))
}

// SendDropped implements the hub observer.
func (r *Registry) SendDropped() {
	r.SendsDropped.Inc()
}

// RelayLooped implements the hub observer.
func (r *Registry) RelayLooped() {
	r.RelayLoops.Inc()
}

// RemoteCallFailed implements the section service observer.
func (r *Registry) RemoteCallFailed(op string) {
	r.RemoteCallFails.WithLabelValues(op).Inc()
}
