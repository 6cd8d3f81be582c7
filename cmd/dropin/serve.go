package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/dropin/internal/config"
	"github.com/alfredjeanlab/dropin/internal/geocode"
	"github.com/alfredjeanlab/dropin/internal/server"
	"github.com/alfredjeanlab/dropin/internal/store"
	runsync "github.com/alfredjeanlab/dropin/internal/sync"
	"github.com/spf13/cobra"
)

const healthInterval = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the runs API server",
	GroupID:           "system",
	PersistentPreRunE: localCommand,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := stderrLogger(cfg)
		slog.SetDefault(logger)

		ctx := context.Background()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		logger.Info("store ready", "backend", cfg.Store)

		publisher, err := openPublisher(cfg, logger)
		if err != nil {
			st.Close()
			return err
		}

		runsServer := server.NewRunsServer(st, publisher,
			server.WithLogger(logger),
			server.WithGeocoder(geocode.New(cfg.GeocodeURL, cfg.GeocodeUserAgent)),
			server.WithWriteLimit(server.RateConfig{RPS: cfg.WriteRPS, Burst: cfg.WriteBurst}),
		)

		// Start HTTP server. No write timeout: /runs/events streams.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           runsServer.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start the gRPC health endpoint if configured.
		healthCtx, healthCancel := context.WithCancel(ctx)
		defer healthCancel()
		var grpcStop func()
		if cfg.GRPCAddr != "" {
			grpcServer, hs := runsServer.NewGRPCServer()
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				shutdownHTTP(logger, httpServer)
				publisher.Close()
				st.Close()
				return err
			}
			go runsServer.WatchHealth(healthCtx, hs, healthInterval)
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
			grpcStop = grpcServer.GracefulStop
		}

		scheduler := startSync(ctx, cfg, st, logger)

		logger.Info("drop-in runs server started", "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		healthCancel()
		if grpcStop != nil {
			grpcStop()
			logger.Info("gRPC server stopped")
		}

		shutdownHTTP(logger, httpServer)

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func shutdownHTTP(logger *slog.Logger, srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("HTTP server stopped")
}

// startSync starts the export scheduler when an interval and at least one
// destination are configured.
func startSync(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) *runsync.Scheduler {
	if cfg.SyncInterval <= 0 {
		return nil
	}
	var dests []runsync.Destination

	if cfg.SyncS3Bucket != "" {
		s3Dest, err := runsync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.AWSRegion, cfg.SyncS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
		}
	}

	if cfg.SyncFile != "" {
		dests = append(dests, runsync.NewFileDestination(cfg.SyncFile))
		logger.Info("sync file destination enabled", "path", cfg.SyncFile)
	}

	if len(dests) == 0 {
		return nil
	}
	scheduler := runsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
	scheduler.Start()
	logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
	return scheduler
}
