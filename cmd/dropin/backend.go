package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alfredjeanlab/dropin/internal/config"
	"github.com/alfredjeanlab/dropin/internal/events"
	"github.com/alfredjeanlab/dropin/internal/store"
	"github.com/alfredjeanlab/dropin/internal/store/dynamo"
	"github.com/alfredjeanlab/dropin/internal/store/postgres"
)

// loadConfig reads .env and the DROPIN_* environment.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return config.Load()
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore connects to the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		st, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreDynamo:
		st, err := dynamo.New(ctx, cfg.TableName, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// openPublisher returns a NATS publisher when DROPIN_NATS_URL is set and a
// no-op publisher otherwise.
func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("events disabled (DROPIN_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

func stderrLogger(cfg *config.Config) *slog.Logger {
	return newLogger(cfg, os.Stderr)
}
