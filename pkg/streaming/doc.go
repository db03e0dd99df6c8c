// Package streaming turns backend responses into the OpenAI-shaped SSE
// stream the caller consumes.
//
// Two modes exist. In native mode the upstream body is parsed
// incrementally — server-sent events or newline-delimited JSON, depending
// on the adapter — and each upstream record is translated into zero or
// more downstream chunks. In synthetic mode, used for backends without
// native streaming, a single unary call produces one chunk carrying the
// full content followed by the terminal sentinel.
//
// The pipeline is a single-producer/single-consumer chain over a bounded
// channel: when the caller stops reading, the upstream read stops with it.
// Every stream that reaches the caller ends with exactly one
// "data: [DONE]" sentinel, including streams that fail mid-flight, which
// carry a final error event first.
package streaming
