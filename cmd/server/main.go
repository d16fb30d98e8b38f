// Package main is the entry point for the Switchboard routing server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	switchboard "github.com/switchboard-ai/switchboard"
	"github.com/switchboard-ai/switchboard/caches"
	"github.com/switchboard-ai/switchboard/internal/attemptlog"
	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/metrics"
	"github.com/switchboard-ai/switchboard/internal/observability"
	"github.com/switchboard-ai/switchboard/internal/secret"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgManager, err := config.NewManager(configPath, slog.Default())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer cfgManager.Close()
	cfg := cfgManager.Get()

	logger := buildLogger(ctx, cfg)
	logger.Info("starting switchboard", "version", switchboard.Version)
	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", "code", w.Code, "detail", w.Message)
	}

	if err := cfgManager.Watch(ctx); err != nil {
		logger.Warn("config hot-reload disabled", "error", err.Error())
	}

	resolver, err := buildSecretResolver(cfg)
	if err != nil {
		return fmt.Errorf("secret resolver: %w", err)
	}
	defer resolver.Close()

	opts, cleanup, err := buildRouterOptions(ctx, cfg, resolver, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	router, err := switchboard.New(opts...)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}
	defer router.Close()

	cfgManager.OnChange(func(next *config.Config) {
		if err := router.SwapPolicy(&next.Policy); err != nil {
			logger.Error("policy swap rejected, previous policy stays active",
				"error", err.Error())
		}
	})

	srv := &server{
		router:     router,
		cfgManager: cfgManager,
		logger:     logger,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      buildHandler(srv, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err.Error())
	}

	logger.Info("server stopped")
	return nil
}

// buildLogger assembles the console handler, optionally teed with an OTLP
// log exporter, and installs the result as the process default.
func buildLogger(ctx context.Context, cfg *config.Config) *observability.Logger {
	redactor := observability.NewRedactor()
	logger := observability.NewLogger(cfg.Logging, redactor)

	logsCfg := observability.DefaultOTelLogsConfig()
	if logsProvider, err := observability.InitOTelLogs(ctx, logsCfg); err != nil {
		logger.Warn("otel logs disabled", "error", err.Error())
	} else if logsProvider != nil {
		tee := observability.NewTeeHandler(logger.Slog().Handler(), logsProvider.SlogHandler())
		logger = observability.FromSlog(slog.New(tee), redactor)
	}

	slog.SetDefault(logger.Slog())
	return logger
}

func buildSecretResolver(cfg *config.Config) (*secret.Resolver, error) {
	resolver := secret.NewResolver()
	resolver.Register("env", secret.NewCachedSource(secret.NewEnvSource(), cfg.Secrets.CacheTTL))

	if cfg.Secrets.Vault.Address != "" {
		vs, err := secret.NewVaultSource(secret.VaultOptions{
			Address: cfg.Secrets.Vault.Address,
			Token:   cfg.Secrets.Vault.Token,
		})
		if err != nil {
			return nil, err
		}
		resolver.Register("vault", secret.NewCachedSource(vs, cfg.Secrets.CacheTTL))
	}
	return resolver, nil
}

// buildRouterOptions turns file configuration into router wiring. The
// returned cleanup closes everything the options hold open.
func buildRouterOptions(
	ctx context.Context,
	cfg *config.Config,
	resolver *secret.Resolver,
	logger *observability.Logger,
) ([]switchboard.Option, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []switchboard.Option{
		switchboard.WithPolicy(&cfg.Policy),
		switchboard.WithPricing(cfg.Pricing),
		switchboard.WithFallbackEnabled(cfg.Routing.FallbackEnabled),
		switchboard.WithRouteTimeout(cfg.Routing.RouteTimeout),
		switchboard.WithMaxEscalations(cfg.Routing.MaxEscalations),
		switchboard.WithLogger(logger),
	}

	for _, pc := range cfg.Providers {
		key, err := resolver.Resolve(ctx, pc.APIKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("provider %q: resolve api key: %w", pc.Name, err)
		}
		pc.APIKey = key
		opts = append(opts, switchboard.WithProviders(pc))
	}

	if cfg.Cache.Enabled {
		backend, err := caches.New(caches.Options{
			Backend:         cfg.Cache.Backend,
			TTL:             cfg.Cache.TTL,
			CleanupInterval: cfg.Cache.Memory.CleanupInterval,
			RedisAddr:       cfg.Cache.Redis.Addr,
			RedisPassword:   cfg.Cache.Redis.Password,
			RedisDB:         cfg.Cache.Redis.DB,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("cache: %w", err)
		}
		opts = append(opts, switchboard.WithCache(backend, cfg.Cache.TTL))
		logger.Info("response cache enabled", "backend", cfg.Cache.Backend)
	}

	if cfg.AttemptLog.Enabled {
		store, err := buildAttemptStore(ctx, cfg, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, switchboard.WithAttemptStore(store))
	}

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracing(ctx, cfg.Tracing)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("tracing: %w", err)
		}
		closers = append(closers, func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			_ = tp.Shutdown(shutdownCtx)
		})
		opts = append(opts, switchboard.WithTracer(tp.Tracer()))
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	metricsCfg := observability.DefaultOTelMetricsConfig()
	if mp, err := observability.InitOTelMetrics(ctx, metricsCfg); err != nil {
		logger.Warn("otel metrics disabled", "error", err.Error())
	} else if mp != nil {
		closers = append(closers, func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			_ = mp.Shutdown(shutdownCtx)
		})
		opts = append(opts, switchboard.WithOTelMetrics(mp))
	}

	if cfg.Alerts.Enabled {
		alerter, err := observability.NewAlerter(cfg.Alerts)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("alerter: %w", err)
		}
		opts = append(opts, switchboard.WithAlerter(alerter))
	}

	if cfg.Export.Enabled {
		exporter, err := observability.NewS3Exporter(ctx, cfg.Export)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("s3 exporter: %w", err)
		}
		closers = append(closers, func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 10*time.Second)
			defer c()
			_ = exporter.Shutdown(shutdownCtx)
		})
		opts = append(opts, switchboard.WithExporter(exporter))
		logger.Info("attempt export enabled", "bucket", cfg.Export.Bucket)
	}

	return opts, cleanup, nil
}

func buildAttemptStore(ctx context.Context, cfg *config.Config, logger *observability.Logger) (attemptlog.Store, error) {
	if cfg.AttemptLog.Backend == "postgres" {
		if !cfg.Database.Enabled {
			return nil, fmt.Errorf("attempt_log: postgres backend requires database.enabled")
		}
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		metrics.UpdateDBPoolStats(db.Stats())

		store, err := attemptlog.NewPostgresStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("attempt log store: %w", err)
		}
		logger.Info("attempt log using postgres", "host", cfg.Database.Host)
		return store, nil
	}

	return attemptlog.NewMemoryStore(cfg.AttemptLog.Capacity), nil
}
