// Package transport executes upstream HTTP calls with deadline propagation,
// retry with exponential backoff, idempotency-key forwarding, and prompt
// cancellation.
//
// The Sender owns no sockets of its own; it drives the process-wide pooled
// client. Every attempt is bounded by the remaining request deadline: no
// attempt starts once the deadline has passed, and no backoff sleep is
// entered that would end after it. Upstream status codes are classified
// into the gateway error taxonomy; only transport faults, 5xx responses,
// and deadline-fitting 429s are retried.
package transport
