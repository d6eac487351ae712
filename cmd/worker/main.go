package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/normanhq/norman/internal/bootstrap"
	"github.com/normanhq/norman/internal/config"
	"github.com/normanhq/norman/internal/core/ports"
	"github.com/normanhq/norman/internal/observability/logging"
	"github.com/normanhq/norman/internal/observability/metrics"
)

const (
	serviceName    = "worker"
	processTimeout = 15 * time.Minute
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeLawRegistered(ctx, indexHandler(app.ProcessUC, app.Laws, workerMetrics))
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

// indexHandler wraps the processor with per-law metrics. The law row is
// read before processing for queue lag and after it for the indexed
// chunk count; either read failing loses the observation, not the law.
func indexHandler(proc ports.LawProcessor, laws ports.LawReader, m *metrics.WorkerMetrics) func(context.Context, string) error {
	return func(ctx context.Context, lawID string) error {
		processCtx, cancel := context.WithTimeout(ctx, processTimeout)
		defer cancel()

		if law, err := laws.GetByID(processCtx, lawID); err == nil {
			m.ObserveQueueLag(serviceName, time.Since(law.CreatedAt))
		}

		m.StartLaw()
		start := time.Now()
		processErr := proc.ProcessByID(processCtx, lawID)
		m.FinishLaw(serviceName, time.Since(start), processErr)
		if processErr != nil {
			return processErr
		}

		if law, err := laws.GetByID(processCtx, lawID); err == nil {
			m.ObserveIndexedChunks(serviceName, law.ChunkCount)
		}
		return nil
	}
}
