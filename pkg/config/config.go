package config

import "time"

// Config is the root gateway configuration.
type Config struct {
	// Environment is "development" or "production".
	Environment string `yaml:"environment"`

	Backend   BackendConfig   `yaml:"backend"`
	Retry     RetryConfig     `yaml:"retry"`
	Pool      PoolConfig      `yaml:"pool"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Streaming StreamingConfig `yaml:"streaming"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	CORS      CORSConfig      `yaml:"cors"`
}

// BackendConfig addresses the single upstream backend.
type BackendConfig struct {
	// Kind selects the adapter: lightllm, vllm, openai, azure, aws,
	// custom, or direct. Empty enables URL detection.
	Kind string `yaml:"kind"`

	// URL is the backend base URL, or the sentinel "direct".
	URL string `yaml:"url"`

	// ModelID is the default model when a request omits one.
	ModelID string `yaml:"model_id"`

	// Credential is a literal value, "env:NAME", or "file:/path".
	Credential string `yaml:"credential"`

	// RequestTimeout bounds a request when the caller supplies no
	// deadline, and caps caller deadlines.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Per-phase I/O bounds.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	TLSTimeout     time.Duration `yaml:"tls_timeout"`

	// Azure specifics.
	AzureDeployment string `yaml:"azure_deployment"`
	AzureAPIVersion string `yaml:"azure_api_version"`

	// AWS specifics for Bedrock.
	AWSRegion          string `yaml:"aws_region"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`
	AWSSessionToken    string `yaml:"aws_session_token"`
}

// RetryConfig bounds the resilient sender.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`

	// Jitter is "none" or "full".
	Jitter string `yaml:"jitter"`
}

// PoolConfig sizes the shared HTTP connection pool.
type PoolConfig struct {
	MaxTotal    int           `yaml:"max_total"`
	MaxPerHost  int           `yaml:"max_per_host"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RateLimitConfig sizes per-identity admission.
type RateLimitConfig struct {
	// Enabled defaults to true; set false to disable admission control.
	Enabled    *bool   `yaml:"enabled"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int64   `yaml:"burst"`

	// Key is "ip", "credential", or "header:<name>".
	Key string `yaml:"key"`
}

// CacheConfig sizes the response cache.
type CacheConfig struct {
	// Enabled defaults to true.
	Enabled  *bool         `yaml:"enabled"`
	MaxBytes int64         `yaml:"max_bytes"`
	TTL      time.Duration `yaml:"ttl"`

	// CacheNondeterministic coalesces but does not store responses for
	// requests with temperature > 0.
	CacheNondeterministic bool `yaml:"cache_nondeterministic"`
}

// StreamingConfig gates SSE support globally.
type StreamingConfig struct {
	// Enabled defaults to true; when false, stream=true requests are
	// answered unary.
	Enabled *bool `yaml:"enabled"`
}

// ServerConfig bounds the listening side.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps the accepted request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// LoggingConfig selects log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig gates the /metrics endpoint.
type MetricsConfig struct {
	// Enabled defaults to true.
	Enabled   *bool  `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// CORSConfig controls cross-origin access.
type CORSConfig struct {
	// Enabled defaults to true.
	Enabled        *bool    `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// enabledDefault interprets a tri-state enabled flag whose absence means
// true.
func enabledDefault(v *bool) bool {
	return v == nil || *v
}

// IsEnabled reports whether admission control is on.
func (c RateLimitConfig) IsEnabled() bool { return enabledDefault(c.Enabled) }

// IsEnabled reports whether the response cache is on.
func (c CacheConfig) IsEnabled() bool { return enabledDefault(c.Enabled) }

// IsEnabled reports whether streaming responses are served.
func (c StreamingConfig) IsEnabled() bool { return enabledDefault(c.Enabled) }

// IsEnabled reports whether /metrics is exposed.
func (c MetricsConfig) IsEnabled() bool { return enabledDefault(c.Enabled) }

// IsEnabled reports whether CORS headers are emitted.
func (c CORSConfig) IsEnabled() bool { return enabledDefault(c.Enabled) }
