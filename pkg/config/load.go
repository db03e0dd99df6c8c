package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults, env-overrides, and validates a configuration
// file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// FromEnv builds a configuration without a file, for container
// deployments that configure everything through the environment.
func FromEnv() (*Config, error) {
	var cfg Config
	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies NEXUSGATE_SECTION_FIELD environment overrides.
// Environment always wins over the file.
func applyEnvOverrides(cfg *Config) {
	setString := func(name string, target *string) {
		if val := os.Getenv(name); val != "" {
			*target = val
		}
	}
	setDuration := func(name string, target *time.Duration) {
		if val := os.Getenv(name); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*target = d
			}
		}
	}
	setInt := func(name string, target *int) {
		if val := os.Getenv(name); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*target = i
			}
		}
	}
	setInt64 := func(name string, target *int64) {
		if val := os.Getenv(name); val != "" {
			if i, err := strconv.ParseInt(val, 10, 64); err == nil {
				*target = i
			}
		}
	}
	setFloat := func(name string, target *float64) {
		if val := os.Getenv(name); val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				*target = f
			}
		}
	}
	setBool := func(name string, target **bool) {
		if val := os.Getenv(name); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				*target = &b
			}
		}
	}

	setString("NEXUSGATE_ENVIRONMENT", &cfg.Environment)

	setString("NEXUSGATE_BACKEND_KIND", &cfg.Backend.Kind)
	setString("NEXUSGATE_BACKEND_URL", &cfg.Backend.URL)
	setString("NEXUSGATE_BACKEND_MODEL_ID", &cfg.Backend.ModelID)
	setString("NEXUSGATE_BACKEND_CREDENTIAL", &cfg.Backend.Credential)
	setDuration("NEXUSGATE_BACKEND_REQUEST_TIMEOUT", &cfg.Backend.RequestTimeout)
	setDuration("NEXUSGATE_BACKEND_CONNECT_TIMEOUT", &cfg.Backend.ConnectTimeout)
	setDuration("NEXUSGATE_BACKEND_READ_TIMEOUT", &cfg.Backend.ReadTimeout)
	setDuration("NEXUSGATE_BACKEND_TLS_TIMEOUT", &cfg.Backend.TLSTimeout)
	setString("NEXUSGATE_BACKEND_AZURE_DEPLOYMENT", &cfg.Backend.AzureDeployment)
	setString("NEXUSGATE_BACKEND_AZURE_API_VERSION", &cfg.Backend.AzureAPIVersion)
	setString("NEXUSGATE_BACKEND_AWS_REGION", &cfg.Backend.AWSRegion)
	setString("NEXUSGATE_BACKEND_AWS_ACCESS_KEY_ID", &cfg.Backend.AWSAccessKeyID)
	setString("NEXUSGATE_BACKEND_AWS_SECRET_ACCESS_KEY", &cfg.Backend.AWSSecretAccessKey)
	setString("NEXUSGATE_BACKEND_AWS_SESSION_TOKEN", &cfg.Backend.AWSSessionToken)

	setInt("NEXUSGATE_RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts)
	setDuration("NEXUSGATE_RETRY_BASE_DELAY", &cfg.Retry.BaseDelay)
	setDuration("NEXUSGATE_RETRY_MAX_DELAY", &cfg.Retry.MaxDelay)
	setString("NEXUSGATE_RETRY_JITTER", &cfg.Retry.Jitter)

	setInt("NEXUSGATE_POOL_MAX_TOTAL", &cfg.Pool.MaxTotal)
	setInt("NEXUSGATE_POOL_MAX_PER_HOST", &cfg.Pool.MaxPerHost)
	setDuration("NEXUSGATE_POOL_IDLE_TIMEOUT", &cfg.Pool.IdleTimeout)

	setBool("NEXUSGATE_RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setFloat("NEXUSGATE_RATE_LIMIT_RATE_PER_SEC", &cfg.RateLimit.RatePerSec)
	setInt64("NEXUSGATE_RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
	setString("NEXUSGATE_RATE_LIMIT_KEY", &cfg.RateLimit.Key)

	setBool("NEXUSGATE_CACHE_ENABLED", &cfg.Cache.Enabled)
	setInt64("NEXUSGATE_CACHE_MAX_BYTES", &cfg.Cache.MaxBytes)
	setDuration("NEXUSGATE_CACHE_TTL", &cfg.Cache.TTL)
	if val := os.Getenv("NEXUSGATE_CACHE_NONDETERMINISTIC"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.CacheNondeterministic = b
		}
	}

	setBool("NEXUSGATE_STREAMING_ENABLED", &cfg.Streaming.Enabled)

	setString("NEXUSGATE_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("NEXUSGATE_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("NEXUSGATE_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("NEXUSGATE_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("NEXUSGATE_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("NEXUSGATE_LOGGING_FORMAT", &cfg.Logging.Format)

	setBool("NEXUSGATE_METRICS_ENABLED", &cfg.Metrics.Enabled)
}
