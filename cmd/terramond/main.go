package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/terramon/terramon/internal/alerting"
	"github.com/terramon/terramon/internal/api"
	"github.com/terramon/terramon/internal/collector"
	"github.com/terramon/terramon/internal/config"
	"github.com/terramon/terramon/internal/notify"
	"github.com/terramon/terramon/internal/scrape"
	"github.com/terramon/terramon/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "path to env file with SMTP credentials")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("terramond starting", "config", *configPath)

	// SMTP credentials come from the environment; the env file just seeds it.
	if err := godotenv.Load(*envFile); err != nil {
		slog.Info("no env file loaded", "path", *envFile)
	}

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("config file not found — using defaults", "path", *configPath)
		cfg = config.Default()
	} else if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	rules, err := cfg.Service.Alerts.Build()
	if err != nil {
		slog.Error("invalid alert rules", "err", err)
		os.Exit(1)
	}
	if len(rules) == 0 {
		slog.Info("no rules configured — installing default rule set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	email := notify.NewEmailNotifier(notify.EmailSettingsFromEnv())
	manager := alerting.New(rules, notify.Registry(email))

	// Keep SMTP credentials fresh without a restart.
	go func() {
		if err := config.WatchEnvFile(ctx, *envFile, func() {
			email.UpdateSettings(notify.EmailSettingsFromEnv())
		}); err != nil {
			slog.Warn("env file watch unavailable", "path", *envFile, "err", err)
		}
	}()

	// Local system metrics feed the default cpu/memory/disk rules.
	if !cfg.Service.Collector.Disabled {
		sys := collector.NewSystem(manager, cfg.Service.Collector.Interval.Std(), cfg.Service.Collector.DiskPath)
		go sys.Run(ctx)
	}

	// Remote Prometheus endpoints feed whatever rules their mappings target.
	for _, src := range cfg.Service.Scrape {
		go scrape.New(src, manager).Run(ctx)
	}

	// WebSocket hub — pushes the alert summary to dashboards.
	hub := ws.New(manager, cfg.Service.BroadcastInterval.Std())
	go hub.Run(ctx)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(manager))
	httpMux.Handle("/ws/alerts", hub)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Service.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Service.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("terramond shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
