package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Options controls the shared client's pool and per-phase timeouts.
type Options struct {
	// MaxTotal bounds the total idle sockets kept across all hosts.
	MaxTotal int

	// MaxPerHost bounds idle sockets kept per upstream host.
	MaxPerHost int

	// IdleTimeout is how long an idle socket stays pooled.
	IdleTimeout time.Duration

	// ConnectTimeout bounds TCP connection establishment.
	ConnectTimeout time.Duration

	// TLSTimeout bounds the TLS handshake.
	TLSTimeout time.Duration

	// ReadTimeout bounds the wait for upstream response headers.
	ReadTimeout time.Duration
}

// DefaultOptions returns pool settings suitable for a single-backend
// gateway under moderate concurrency.
func DefaultOptions() Options {
	return Options{
		MaxTotal:       100,
		MaxPerHost:     32,
		IdleTimeout:    90 * time.Second,
		ConnectTimeout: 10 * time.Second,
		TLSTimeout:     10 * time.Second,
		ReadTimeout:    60 * time.Second,
	}
}

// New builds the shared pooled client. The returned client has no overall
// timeout; callers bound each request with a context deadline.
func New(opts Options) *http.Client {
	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          opts.MaxTotal,
		MaxIdleConnsPerHost:   opts.MaxPerHost,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       opts.IdleTimeout,
		TLSHandshakeTimeout:   opts.TLSTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		ForceAttemptHTTP2:     true,
		DisableCompression:    false,
	}

	return &http.Client{Transport: transport}
}
