package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config names the metric namespace.
type Config struct {
	// Namespace prefixes every metric name.
	Namespace string

	// Subsystem is the second name segment.
	Subsystem string
}

// Outcome labels for requests_total.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

// Collector owns every gateway metric. One collector is created at startup
// and shared; all updates are atomic inside the client library, so no
// locks are held here or during scrape.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	retriesTotal     *prometheus.CounterVec
	rateLimitedTotal prometheus.Counter
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter

	requestDuration  *prometheus.HistogramVec
	upstreamDuration *prometheus.HistogramVec
	streamFirstByte  *prometheus.HistogramVec
	responseBytes    *prometheus.HistogramVec
}

// latencyBuckets covers the 100ms–60s range LLM completions live in.
var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewCollector creates and registers the gateway metrics on a fresh
// private registry.
func NewCollector(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "nexusgate"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "requests_total",
		Help:      "Chat completion requests by adapter and outcome",
	}, []string{"adapter", "outcome"})

	c.retriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "retries_total",
		Help:      "Upstream retries by adapter and reason",
	}, []string{"adapter", "reason"})

	c.rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "rate_limited_total",
		Help:      "Requests denied by the local rate limiter",
	})

	c.cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "cache_hits_total",
		Help:      "Responses served from the cache",
	})

	c.cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "cache_misses_total",
		Help:      "Cache lookups that went upstream",
	})

	c.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "request_duration_seconds",
		Help:      "End-to-end request latency",
		Buckets:   latencyBuckets,
	}, []string{"adapter"})

	c.upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "upstream_duration_seconds",
		Help:      "Upstream call latency",
		Buckets:   latencyBuckets,
	}, []string{"adapter"})

	c.streamFirstByte = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "stream_first_byte_seconds",
		Help:      "Time to first streamed chunk",
		Buckets:   latencyBuckets,
	}, []string{"adapter"})

	c.responseBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "response_bytes",
		Help:      "Response payload size in bytes",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B to 4MB
	}, []string{"adapter"})

	c.registry.MustRegister(
		c.requestsTotal,
		c.retriesTotal,
		c.rateLimitedTotal,
		c.cacheHitsTotal,
		c.cacheMissesTotal,
		c.requestDuration,
		c.upstreamDuration,
		c.streamFirstByte,
		c.responseBytes,
	)
	return c
}

// Registry exposes the private registry for the exposition handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest records a finished request.
func (c *Collector) RecordRequest(adapter, outcome string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(adapter, outcome).Inc()
	c.requestDuration.WithLabelValues(adapter).Observe(duration.Seconds())
}

// RecordRetry records one upstream retry.
func (c *Collector) RecordRetry(adapter, reason string) {
	c.retriesTotal.WithLabelValues(adapter, reason).Inc()
}

// RecordRateLimited records a local admission denial.
func (c *Collector) RecordRateLimited() {
	c.rateLimitedTotal.Inc()
}

// RecordCacheHit records a response served from the cache.
func (c *Collector) RecordCacheHit() {
	c.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a lookup that went upstream.
func (c *Collector) RecordCacheMiss() {
	c.cacheMissesTotal.Inc()
}

// RecordUpstream records one upstream call's latency.
func (c *Collector) RecordUpstream(adapter string, duration time.Duration) {
	c.upstreamDuration.WithLabelValues(adapter).Observe(duration.Seconds())
}

// RecordStreamFirstByte records time-to-first-chunk for a stream.
func (c *Collector) RecordStreamFirstByte(adapter string, elapsed time.Duration) {
	c.streamFirstByte.WithLabelValues(adapter).Observe(elapsed.Seconds())
}

// RecordResponseBytes records a response payload size.
func (c *Collector) RecordResponseBytes(adapter string, bytes int) {
	c.responseBytes.WithLabelValues(adapter).Observe(float64(bytes))
}
