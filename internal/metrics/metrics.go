// Package metrics collects Prometheus metrics of the address book.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of a contact operation.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Recorder is used by the contact service and the HTTP layer.
type Recorder interface {
	RecordOperation(operation, outcome string)
	RecordRequest(method, route string, status int, duration time.Duration)
}

// Collector records metrics with Prometheus.
type Collector struct {
	reg             prometheus.Registerer
	operations      *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with the registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reg: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "address_book_contact_operations_total",
			Help: "Number of contact operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "address_book_http_requests_total",
			Help: "Number of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "address_book_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.operations,
		c.requests,
		c.requestDuration,
	)

	return c
}

func (c *Collector) RecordOperation(operation, outcome string) {
	c.operations.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitClients exports the number of clients a rate limiter tracks. clients is
// called on every scrape.
func (c *Collector) ObserveRateLimitClients(limiter string, clients func() int) {
	c.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "address_book_rate_limit_clients",
		Help:        "Number of clients tracked by a rate limiter.",
		ConstLabels: prometheus.Labels{"limiter": limiter},
	}, func() float64 {
		return float64(clients())
	}))
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards all metrics.
type Nop struct{}

func (Nop) RecordOperation(string, string)                   {}
func (Nop) RecordRequest(string, string, int, time.Duration) {}
