package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/codex-platform-contract/internal/circuitbreaker"
	"github.com/kjstillabower/codex-platform-contract/internal/config"
	httphandler "github.com/kjstillabower/codex-platform-contract/internal/http"
	"github.com/kjstillabower/codex-platform-contract/internal/lifecycle"
	"github.com/kjstillabower/codex-platform-contract/internal/models"
	"github.com/kjstillabower/codex-platform-contract/internal/observability"
	"github.com/kjstillabower/codex-platform-contract/internal/service"
	"github.com/kjstillabower/codex-platform-contract/internal/store"
)

const inFlightCheckInterval = 100 * time.Millisecond

func main() {
	configDir := pflag.String("config-dir", ".", "Directory holding .env and config/{ENV_NAME}.yaml")
	port := pflag.String("port", "", "Listen port (default from config)")
	pflag.Parse()

	logger, err := observability.NewLogger("service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadFrom(*configDir)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if *port != "" {
		cfg.ServerPort = *port
	}

	var st store.Store
	var memcached *store.MemcachedStore
	switch cfg.StoreBackend {
	case config.StoreBackendMemcached:
		memcached = store.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns, cfg.MemcachedNamespace)
		st = store.Instrument(memcached, store.BackendMemcached)
		if cfg.BreakerEnabled {
			st = store.Guard(st, newStoreBreaker(cfg, store.BackendMemcached, logger))
			logger.Info("store circuit breaker enabled",
				zap.Int("failure_threshold", cfg.BreakerFailureThreshold),
				zap.Duration("open_timeout", cfg.BreakerOpenTimeout))
		}
		logger.Info("store backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		st = store.Instrument(store.NewInMemoryStore(), store.BackendInMemory)
		logger.Info("store backend: in_memory")
	}

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Seed(seedCtx, st, seedPlatforms(cfg.Seed)); err != nil {
		logger.Fatal("seed store", zap.Error(err))
	}
	seedCancel()
	logger.Info("store seeded", zap.Int("platforms", len(cfg.Seed)))

	var storePing func() error
	if memcached != nil {
		storePing = memcached.Ping
	}
	handler := httphandler.NewHandler(service.NewPlatformService(st), logger, storePing)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	if cfg.APIKey != "" {
		logger.Info("API key required on platform endpoints")
	}
	router := httphandler.NewRouter(handler, httphandler.RouterOptions{
		Prefix:         cfg.APIPrefix,
		APIKey:         cfg.APIKey,
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.SetReady(true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, inFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if memcached != nil {
		if err := memcached.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

func newStoreBreaker(cfg *config.Config, backend string, logger *zap.Logger) *circuitbreaker.CircuitBreaker {
	observability.StoreCircuitState.WithLabelValues(backend).Set(0)
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		OpenTimeout:      cfg.BreakerOpenTimeout,
		OnStateChange: func(from, to circuitbreaker.State) {
			observability.RecordStoreCircuitTransition(backend, from.String(), to.String(), int(to))
			logger.Warn("store circuit breaker transition",
				zap.String("backend", backend), zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
}

func seedPlatforms(seed []config.SeedPlatform) []models.Platform {
	out := make([]models.Platform, 0, len(seed))
	for _, p := range seed {
		out = append(out, models.Platform{
			ID:           p.ID,
			Name:         p.Name,
			Manufacturer: p.Manufacturer,
			Type:         models.PlatformType,
		})
	}
	return out
}
