package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"batchattest/internal/activities"
	"batchattest/internal/app"
	"batchattest/internal/config"
	"batchattest/internal/logging"
	"batchattest/internal/workflows"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("wire components", zap.Error(err))
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Warn("close components", zap.Error(err))
		}
	}()

	healthSrv := startHealthServer(cfg.HealthAddr, logger)
	defer func() {
		_ = healthSrv.Shutdown(context.Background())
	}()

	temporalClient, err := client.NewClient(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.Fatal("create temporal client", zap.Error(err))
	}
	defer temporalClient.Close()

	acts := activities.New(components.Anchor, logger.Named("activities"))
	w := worker.New(temporalClient, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AnchorAttestationWorkflow)
	w.RegisterActivityWithOptions(acts.StoreAttestation, activity.RegisterOptions{Name: activities.StoreAttestationActivityName})
	w.RegisterActivityWithOptions(acts.ConfirmAnchored, activity.RegisterOptions{Name: activities.ConfirmAnchoredActivityName})

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	logger.Info("anchor worker listening",
		zap.String("task_queue", cfg.TaskQueue),
		zap.String("anchor_backend", components.Anchor.Backend()))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker exited", zap.Error(err))
	}
}

func startHealthServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health server error", zap.Error(err))
		}
	}()
	return srv
}
