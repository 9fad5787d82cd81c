// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the slice the HTTP and service layers use to record events.
type Recorder interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordClaimRequested()
	RecordClaimResolved(outcome string)
	RecordMessagePosted(kind string)
	RecordRateLimited()
}

// Collector implements Recorder on top of Prometheus.
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    prometheus.Histogram
	claimRequests  prometheus.Counter
	claimResolved  *prometheus.CounterVec
	messagesPosted *prometheus.CounterVec
	rateLimited    prometheus.Counter
}

// NewCollector registers the campusfind metrics on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusfind_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "campusfind_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		claimRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusfind_claims_requested_total",
			Help: "Claim requests filed against items.",
		}),
		claimResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusfind_claims_resolved_total",
			Help: "Claim resolutions by outcome.",
		}, []string{"outcome"}),
		messagesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusfind_messages_posted_total",
			Help: "Messages posted by kind (item or direct).",
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusfind_rate_limited_total",
			Help: "Requests rejected by the message rate limiter.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.claimRequests,
		c.claimResolved,
		c.messagesPosted,
		c.rateLimited,
	)

	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordClaimRequested() {
	c.claimRequests.Inc()
}

func (c *Collector) RecordClaimResolved(outcome string) {
	c.claimResolved.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordMessagePosted(kind string) {
	c.messagesPosted.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop is a Recorder that discards everything, used in tests.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordClaimRequested()                                {}
func (Nop) RecordClaimResolved(string)                           {}
func (Nop) RecordMessagePosted(string)                           {}
func (Nop) RecordRateLimited()                                   {}
