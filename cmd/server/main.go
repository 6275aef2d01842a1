package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"teamhub/internal/gateway/proxy"
	"teamhub/internal/platform/config"
	"teamhub/internal/platform/httpserver"
	"teamhub/internal/platform/logger"
	"teamhub/internal/platform/metrics"
	httptransport "teamhub/internal/transport/http"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := proxy.New(cfg.UpstreamBaseURL, log,
		proxy.WithTimeout(cfg.UpstreamTimeout),
		proxy.WithMaxBodyBytes(cfg.MaxBodyBytes),
		proxy.WithMaxResponseBytes(cfg.MaxRespBytes),
		proxy.WithMetrics(metrics.New()),
	)
	router := httptransport.NewRouter(p, log, httptransport.WithAllowedOrigins(cfg.AllowedOrigins))
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("gateway configured",
		"upstream", cfg.UpstreamBaseURL,
		"timeout", cfg.UpstreamTimeout,
		"env", cfg.Environment,
	)
	if err := httpserver.Run(ctx, srv, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
