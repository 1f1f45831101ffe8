package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravadigital/urna-api/internal/archive"
	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/metrics"
	"github.com/gravadigital/urna-api/internal/notify"
	"github.com/gravadigital/urna-api/internal/server"
	"github.com/gravadigital/urna-api/internal/services"
	"github.com/gravadigital/urna-api/internal/storage"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Log.Level)
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := storage.FactoryFor(cfg)
	if err != nil {
		log.Fatal("Unsupported storage", "error", err)
	}
	store, err := factory.CreateContainer(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()

	broker, err := notify.New(ctx, cfg, store.DB())
	if err != nil {
		log.Fatal("Failed to initialize notifications", "backend", cfg.Notify.Backend, "error", err)
	}
	defer broker.Close()

	archiver, err := archive.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize results archive", "error", err)
	}

	metricService := metrics.NewMetricService()
	svc := services.New(services.Dependencies{
		Store:    store,
		Notifier: notify.NewNotifier(broker, broker.Name(), metricService),
		Archiver: archiver,
		Metrics:  metricService,
	})

	srv := server.New(cfg, server.Dependencies{
		Store:    store,
		Services: svc,
		Events:   broker,
		Metrics:  metricService,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Server stopped", "error", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("Graceful shutdown failed", "error", err)
	}

	log.Info("Urna API stopped")
}
