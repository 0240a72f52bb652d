package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Registry holds the request and action collectors of one API server.
type Registry struct {
	reg            *prometheus.Registry
	requestsTotal  *prometheus.CounterVec
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
}

// NewRegistry returns a registry with every collector at zero.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Registry{
		reg: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lightlink_http_requests_total",
				Help: "HTTP requests served.",
			},
			[]string{"route", "method", "code"},
		),
		actionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lightlink_actions_total",
				Help: "Action runs by outcome.",
			},
			[]string{"action", "outcome"},
		),
		actionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lightlink_action_duration_seconds",
				Help:    "Action run duration.",
				Buckets: durationBuckets,
			},
			[]string{"action"},
		),
	}
}

// ObserveRequest counts one HTTP request.
func (r *Registry) ObserveRequest(route, method string, status int) {
	r.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// ObserveAction records the outcome and duration of one action run.
// Outcome is "success", "failure" or "rejected".
func (r *Registry) ObserveAction(action, outcome string, elapsed time.Duration) {
	r.actionsTotal.WithLabelValues(action, outcome).Inc()
	r.actionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
