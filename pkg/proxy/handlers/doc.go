// Package handlers orchestrates the chat completion request path.
//
// A request moves through a fixed sequence: parse and validate, rate-limit
// admission, planning (deadline, adapter, cache fingerprint), dispatch
// (cache single-flight or the resilient sender), and emission as unary
// JSON or an SSE stream. Terminal outcomes — completed, failed, canceled —
// are recorded in metrics with the end-to-end latency.
package handlers
