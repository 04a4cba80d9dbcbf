package main

import (
	"context"
	"errors"
	"log/slog"
	oshttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parlor/internal/api"
	"parlor/internal/autoreply"
	"parlor/internal/config"
	"parlor/internal/http"
	"parlor/internal/metrics"
	"parlor/internal/store"
	"parlor/internal/stubs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	seed, err := loadSeed(cfg)
	if err != nil {
		return err
	}

	chatStore := store.New(store.Options{
		Seed: seed,
		Responder: autoreply.New(autoreply.Config{
			Probability: cfg.AutoReplyProbability,
			MinDelay:    cfg.AutoReplyMinDelay,
			MaxDelay:    cfg.AutoReplyMaxDelay,
		}),
		Metrics:        m,
		Logger:         logger,
		TypingExpiry:   cfg.TypingExpiry,
		TypingInterval: cfg.TypingSweepInterval,
	})
	defer chatStore.Close()

	limiter := api.NewLimiter(ctx, cfg.RateLimit, cfg.RateBurst)

	apiServer := http.NewAPIServer(api.New(chatStore, logger), limiter, m, cfg.APIAddr)
	adminServer := http.NewAdminServer(registry, cfg.AdminAddr)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := adminServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := apiServer.Start()
		if err != nil && err != oshttp.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return chatStore.Run(gCtx)
	})

	// Wait for context cancellation (signal)
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Admin server shutdown error", "error", err)
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func loadSeed(cfg *config.Config) (*stubs.Seed, error) {
	now := time.Now()
	switch {
	case cfg.SeedFile != "":
		return stubs.Load(cfg.SeedFile, now)
	case cfg.Seed:
		return stubs.Default(now)
	default:
		return nil, nil
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
