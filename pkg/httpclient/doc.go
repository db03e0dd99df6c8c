// Package httpclient builds the single pooled HTTP client shared by every
// upstream call for the life of the process.
//
// The builder applies the configured pool bounds (total sockets, sockets
// per host, idle timeout) and per-phase timeouts (dial, TLS handshake,
// response header), enables HTTP/2 where the backend advertises it, and
// accepts compression opportunistically. The client itself carries no
// overall timeout: deadlines are request-scoped and enforced through
// context by the sender.
//
// The package also hosts the environment security gate: classification of
// backend hosts as loopback, private, or public, used to reject plain-HTTP
// public backends in production at startup.
package httpclient
