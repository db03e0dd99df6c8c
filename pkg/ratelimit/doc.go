// Package ratelimit admits or denies requests per client identity using
// the token bucket algorithm.
//
// Buckets refill continuously at the configured rate up to a burst
// capacity and are created on demand per identity, with the identity map
// bounded by least-recently-used discard. A denial reports how long the
// caller must wait for the shortfall to refill, which the proxy surfaces
// as a Retry-After header.
//
// The Store interface is the substitution point for a coordinated
// (multi-process) limiter; callers only ever see Check.
package ratelimit
