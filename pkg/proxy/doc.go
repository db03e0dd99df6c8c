// Package proxy implements the caller-facing edge of the gateway: request
// parsing and validation, the stable error envelope, and response
// serialization for both unary JSON and SSE replies.
//
// Subpackage handlers orchestrates the request path; subpackage middleware
// carries the cross-cutting HTTP concerns; subpackage types holds the wire
// schemas.
package proxy
