package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	taengine "github.com/smilemakc/ta-engine"
	"github.com/smilemakc/ta-engine/internal/api"
	"github.com/smilemakc/ta-engine/internal/catalog"
	"github.com/smilemakc/ta-engine/internal/config"
	"github.com/smilemakc/ta-engine/internal/kernel"
	"github.com/smilemakc/ta-engine/internal/obslog"
	"github.com/smilemakc/ta-engine/internal/obsmetrics"
	"github.com/smilemakc/ta-engine/internal/stream"
)

func main() {
	var (
		port             = flag.String("port", "", "Server port (overrides config)")
		jwtSecret        = flag.String("jwt-secret", "", "Shared secret enabling JWT bearer auth on /v1 routes except /v1/catalog (disabled if empty)")
		logLevel         = flag.String("log-level", "", "Log level (overrides config)")
		sdkMetrics       = flag.Bool("sdk-metrics", false, "Collect real metrics via the otel SDK instead of the no-op provider")
		persistSnapshots = flag.Bool("persist-snapshots", false, "Persist incremental session snapshots to DatabaseDSN instead of in-memory only")
	)
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := obslog.New(cfg.LogLevel, os.Stdout)
	log.Raw().Info().Str("port", cfg.Port).Msg("starting ta-engine preview/analyze server")

	var meterProvider metric.MeterProvider = noop.NewMeterProvider()
	if *sdkMetrics {
		sdkProvider, reader := obsmetrics.NewSDKMeterProvider("ta-engine")
		meterProvider = sdkProvider
		defer func() {
			if _, err := reader.Collect(context.Background()); err != nil {
				log.Raw().Warn().Err(err).Msg("final metrics collection failed")
			}
		}()
	}
	meter, err := obsmetrics.New(meterProvider)
	if err != nil {
		log.Raw().Error().Err(err).Msg("failed to build metrics meter")
		os.Exit(1)
	}

	cat := catalog.New()
	kernels := kernel.NewRegistry()
	if err := cat.ValidateBindings(kernels); err != nil {
		log.Raw().Error().Err(err).Msg("catalog/kernel binding validation failed")
		os.Exit(1)
	}

	hub := stream.NewHub(log.Raw())
	go hub.Run()

	var auth api.Authenticator = api.NewNoAuth()
	if *jwtSecret != "" {
		auth = api.NewJWTAuth(*jwtSecret)
		log.Raw().Info().Msg("JWT bearer auth enabled on /v1 routes except /v1/catalog")
	}

	srv := api.NewServer(cat, kernels, log, meter, hub, auth)
	if *persistSnapshots {
		store, err := taengine.NewPostgresSnapshotStore(context.Background(), cfg.DatabaseDSN)
		if err != nil {
			log.Raw().Error().Err(err).Msg("failed to connect snapshot store")
			os.Exit(1)
		}
		srv.SetSnapshotStore(store)
		log.Raw().Info().Msg("persisting session snapshots to Postgres")
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Raw().Info().Str("address", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Raw().Error().Err(err).Msg("server failed")
			os.Exit(1)
		}
	}()

	log.Raw().Info().
		Str("health", "GET /healthz").
		Str("catalog", "GET /v1/catalog").
		Str("preview", "POST /v1/preview").
		Str("validate", "POST /v1/validate").
		Str("analyze", "POST /v1/analyze").
		Str("analyze_yaml", "POST /v1/analyze-yaml").
		Str("stream", "GET /v1/stream").
		Str("sessions", "POST /v1/sessions, POST /v1/sessions/{id}/step, GET /v1/sessions/{id}/snapshot").
		Msg("available endpoints")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Raw().Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Raw().Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Raw().Info().Msg("server exited gracefully")
}
