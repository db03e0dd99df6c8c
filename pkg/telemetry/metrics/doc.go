// Package metrics records gateway traffic counters and latency histograms
// on a private Prometheus registry.
//
// Counters cover requests by adapter and outcome, retries by reason, local
// rate-limit denials, and cache effectiveness. Histograms cover end-to-end
// and upstream latency, stream time-to-first-byte, and response sizes,
// with buckets tuned for LLM workloads. The /metrics handler exports the
// registry in the standard text exposition.
package metrics
