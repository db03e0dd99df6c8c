package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"nexusgate/pkg/adapters"
	"nexusgate/pkg/cache"
	"nexusgate/pkg/config"
	"nexusgate/pkg/httpclient"
	"nexusgate/pkg/proxy/handlers"
	"nexusgate/pkg/proxy/middleware"
	"nexusgate/pkg/ratelimit"
	"nexusgate/pkg/security/auth"
	"nexusgate/pkg/security/secrets"
	"nexusgate/pkg/telemetry/metrics"
	"nexusgate/pkg/transport"
)

// Version is stamped by the build; the sender advertises it upstream.
var Version = "dev"

// Server is the assembled gateway.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	credential secrets.Credential
	janitor    *cache.Janitor
	collector  *metrics.Collector

	mu        sync.Mutex
	isRunning bool
}

// New assembles the gateway from a validated configuration.
//
// directHandler is the in-process completion function for the "direct"
// backend sentinel; it may be nil for HTTP backends.
func New(cfg *config.Config, directHandler adapters.DirectHandler) (*Server, error) {
	credential, err := secrets.Resolve(cfg.Backend.Credential)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backend credential: %w", err)
	}

	adapter, err := buildAdapter(cfg, credential, directHandler)
	if err != nil {
		credential.Close()
		return nil, fmt.Errorf("failed to build adapter: %w", err)
	}

	client := httpclient.New(httpclient.Options{
		MaxTotal:       cfg.Pool.MaxTotal,
		MaxPerHost:     cfg.Pool.MaxPerHost,
		IdleTimeout:    cfg.Pool.IdleTimeout,
		ConnectTimeout: cfg.Backend.ConnectTimeout,
		TLSTimeout:     cfg.Backend.TLSTimeout,
		ReadTimeout:    cfg.Backend.ReadTimeout,
	})

	collector := metrics.NewCollector(metrics.Config{
		Namespace: cfg.Metrics.Namespace,
		Subsystem: cfg.Metrics.Subsystem,
	})

	sender := transport.NewSender(client, transport.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      transport.Jitter(cfg.Retry.Jitter),
	}, "nexusgate/"+Version)
	sender.OnRetry = func(reason string) {
		collector.RecordRetry(adapter.Name(), reason)
	}

	deps := handlers.Deps{
		Config:   cfg,
		Adapter:  adapter,
		Sender:   sender,
		Identity: auth.NewExtractor(cfg.RateLimit.Key),
		Metrics:  collector,
	}

	if cfg.RateLimit.IsEnabled() {
		deps.Limiter = ratelimit.NewLimiter(ratelimit.Config{
			RatePerSec: cfg.RateLimit.RatePerSec,
			Burst:      cfg.RateLimit.Burst,
		})
	}

	s := &Server{cfg: cfg, credential: credential, collector: collector}

	if cfg.Cache.IsEnabled() {
		responseCache := cache.New(cache.Config{
			MaxBytes: cfg.Cache.MaxBytes,
			TTL:      cfg.Cache.TTL,
		})
		deps.Cache = responseCache

		janitor, err := cache.StartJanitor(responseCache, "")
		if err != nil {
			credential.Close()
			return nil, fmt.Errorf("failed to start cache janitor: %w", err)
		}
		s.janitor = janitor
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      s.routes(handlers.NewChatHandler(deps)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// buildAdapter resolves the adapter variant for the configured backend.
func buildAdapter(cfg *config.Config, credential secrets.Credential, directHandler adapters.DirectHandler) (adapters.Adapter, error) {
	kind := adapters.Kind(cfg.Backend.Kind)
	if kind == adapters.KindAuto {
		kind = adapters.DetectKind(cfg.Backend.URL)
	}

	if kind == adapters.KindDirect {
		return adapters.NewDirect(cfg.Backend.ModelID, directHandler), nil
	}

	return adapters.New(adapters.Config{
		Kind:               kind,
		BaseURL:            cfg.Backend.URL,
		ModelID:            cfg.Backend.ModelID,
		Credential:         credential.Value(),
		AzureDeployment:    cfg.Backend.AzureDeployment,
		AzureAPIVersion:    cfg.Backend.AzureAPIVersion,
		AWSRegion:          cfg.Backend.AWSRegion,
		AWSAccessKeyID:     cfg.Backend.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.Backend.AWSSecretAccessKey,
		AWSSessionToken:    cfg.Backend.AWSSessionToken,
	})
}

// routes builds the route table and middleware chain.
func (s *Server) routes(chatHandler *handlers.ChatHandler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/chat/completions", chatHandler)
	mux.Handle("/health", handlers.NewHealthHandler())
	if s.cfg.Metrics.IsEnabled() {
		mux.Handle("/metrics", s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.CORS(middleware.CORSConfig{
		Enabled:        s.cfg.CORS.IsEnabled(),
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,
		AllowedMethods: s.cfg.CORS.AllowedMethods,
		AllowedHeaders: s.cfg.CORS.AllowedHeaders,
		MaxAge:         s.cfg.CORS.MaxAge,
	})(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)
	return handler
}

// Handler exposes the assembled handler chain, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the listener and blocks until the context ends or a shutdown
// signal arrives.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("gateway listening",
			"address", s.cfg.Server.ListenAddress,
			"backend", s.cfg.Backend.Kind,
			"environment", s.cfg.Environment,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context canceled, shutting down")
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		s.cleanup()
		return fmt.Errorf("server error: %w", err)
	}

	return s.Shutdown(context.Background())
}

// Shutdown drains in-flight requests within the configured timeout and
// releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.cleanup()

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	slog.Info("gateway stopped")
	return nil
}

func (s *Server) cleanup() {
	if s.janitor != nil {
		s.janitor.Stop()
	}
	if s.credential != nil {
		s.credential.Close()
	}
}
