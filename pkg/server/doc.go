// Package server assembles the gateway from its components and runs the
// HTTP listener.
//
// Assembly happens once at startup: the pooled client, adapter, sender,
// limiter, cache, and metrics collector are created from the validated
// configuration and shared for the process lifetime. Shutdown is graceful:
// the listener stops accepting, in-flight requests drain within the
// configured timeout, and the cache janitor stops.
package server
