package config

import "time"

// ApplyDefaults fills unset fields with working values. It is called
// before validation so a minimal file (backend URL and model) yields a
// runnable gateway.
func ApplyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Backend.RequestTimeout == 0 {
		cfg.Backend.RequestTimeout = 120 * time.Second
	}
	if cfg.Backend.ConnectTimeout == 0 {
		cfg.Backend.ConnectTimeout = 10 * time.Second
	}
	if cfg.Backend.ReadTimeout == 0 {
		cfg.Backend.ReadTimeout = 60 * time.Second
	}
	if cfg.Backend.TLSTimeout == 0 {
		cfg.Backend.TLSTimeout = 10 * time.Second
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = 200 * time.Millisecond
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 10 * time.Second
	}
	if cfg.Retry.Jitter == "" {
		cfg.Retry.Jitter = "full"
	}

	if cfg.Pool.MaxTotal == 0 {
		cfg.Pool.MaxTotal = 100
	}
	if cfg.Pool.MaxPerHost == 0 {
		cfg.Pool.MaxPerHost = 32
	}
	if cfg.Pool.IdleTimeout == 0 {
		cfg.Pool.IdleTimeout = 90 * time.Second
	}

	if cfg.RateLimit.RatePerSec == 0 {
		cfg.RateLimit.RatePerSec = 10
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.RateLimit.Key == "" {
		cfg.RateLimit.Key = "ip"
	}

	if cfg.Cache.MaxBytes == 0 {
		cfg.Cache.MaxBytes = 64 << 20
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Streams stay open well past unary latencies.
		cfg.Server.WriteTimeout = 10 * time.Minute
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 10 << 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "nexusgate"
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{"POST", "OPTIONS"}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID", "api-key"}
	}
	if cfg.CORS.MaxAge == 0 {
		cfg.CORS.MaxAge = 3600
	}
}
