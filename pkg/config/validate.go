package config

import (
	"fmt"
	"log/slog"
	"strings"

	"nexusgate/pkg/httpclient"
)

// validKinds are the accepted backend kinds, with "" meaning URL
// detection.
var validKinds = map[string]bool{
	"": true, "lightllm": true, "vllm": true, "openai": true,
	"azure": true, "aws": true, "custom": true, "direct": true,
}

// Validate checks the configuration for contradictions and enforces the
// transport-security gate. It is called after defaults and env overrides.
func Validate(cfg *Config) error {
	if cfg.Environment != "development" && cfg.Environment != "production" {
		return fmt.Errorf("environment must be development or production, got %q", cfg.Environment)
	}

	if !validKinds[cfg.Backend.Kind] {
		return fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}

	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend URL is required")
	}

	if cfg.Backend.URL != "direct" {
		if !strings.HasPrefix(cfg.Backend.URL, "http://") && !strings.HasPrefix(cfg.Backend.URL, "https://") {
			return fmt.Errorf("backend URL must be absolute (http:// or https://) or the sentinel \"direct\"")
		}

		// Plain HTTP to a public host is fatal in production, a
		// warning in development. Loopback and private ranges are
		// exempt.
		warn, err := httpclient.CheckBackendURL(cfg.Backend.URL, cfg.Environment)
		if err != nil {
			return err
		}
		if warn {
			slog.Warn("backend uses plain HTTP to a public host",
				"environment", cfg.Environment,
			)
		}
	}

	if cfg.Backend.Kind == "azure" && cfg.Backend.AzureDeployment == "" {
		return fmt.Errorf("azure backend requires azure_deployment")
	}
	if cfg.Backend.Kind == "aws" {
		if cfg.Backend.AWSRegion == "" {
			return fmt.Errorf("aws backend requires aws_region")
		}
		if cfg.Backend.AWSAccessKeyID == "" || cfg.Backend.AWSSecretAccessKey == "" {
			return fmt.Errorf("aws backend requires an access key pair")
		}
	}

	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.BaseDelay < 0 || cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 <= base_delay <= max_delay")
	}
	if cfg.Retry.Jitter != "none" && cfg.Retry.Jitter != "full" {
		return fmt.Errorf("retry.jitter must be none or full, got %q", cfg.Retry.Jitter)
	}

	if cfg.RateLimit.IsEnabled() {
		if cfg.RateLimit.RatePerSec <= 0 {
			return fmt.Errorf("rate_limit.rate_per_sec must be positive")
		}
		if cfg.RateLimit.Burst < 1 {
			return fmt.Errorf("rate_limit.burst must be at least 1")
		}
		key := cfg.RateLimit.Key
		if key != "ip" && key != "credential" && !strings.HasPrefix(key, "header:") {
			return fmt.Errorf("rate_limit.key must be ip, credential, or header:<name>, got %q", key)
		}
	}

	if cfg.Cache.IsEnabled() && cfg.Cache.MaxBytes < 1 {
		return fmt.Errorf("cache.max_bytes must be positive")
	}

	if cfg.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend.request_timeout must be positive")
	}

	return nil
}
