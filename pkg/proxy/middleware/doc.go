// Package middleware carries the cross-cutting HTTP concerns of the
// gateway edge: request-ID propagation, access logging, panic recovery,
// and CORS.
//
// Middleware composes as func(http.Handler) http.Handler and is chained
// by the server with recovery outermost.
package middleware
