package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kazaneza/openchat/internal/bootstrap"
	"github.com/kazaneza/openchat/internal/config"
	"github.com/kazaneza/openchat/internal/core/domain"
	"github.com/kazaneza/openchat/internal/observability/logging"
	"github.com/kazaneza/openchat/internal/observability/metrics"
)

const (
	processTimeout    = 30 * time.Second
	retentionInterval = time.Hour
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	wm := metrics.NewWorkerMetrics("worker")
	go serveMetrics(cfg.WorkerMetricsPort, wm, logger)
	go runRetentionSweeps(ctx, app, wm, logger)

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeFeedback(ctx, func(handlerCtx context.Context, fb domain.Feedback) error {
		start := time.Now()
		wm.StartFeedback()
		if !fb.CreatedAt.IsZero() {
			wm.ObserveQueueLag("worker", start.Sub(fb.CreatedAt))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()
		err := app.ProcessUC.Process(processCtx, fb)
		wm.FinishFeedback("worker", time.Since(start), err)
		return err
	})
	if err != nil {
		logger.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}

func serveMetrics(port string, wm *metrics.WorkerMetrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", wm.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	logger.Info("worker metrics listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("worker metrics server failed", "error", err)
	}
}

// runRetentionSweeps deletes conversations older than the configured
// retention window, once at startup and then hourly.
func runRetentionSweeps(ctx context.Context, app *bootstrap.App, wm *metrics.WorkerMetrics, logger *slog.Logger) {
	if app.Config.RetentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		cutoff := time.Now().UTC().AddDate(0, 0, -app.Config.RetentionDays)
		removed, err := app.Conversations.DeleteConversationsBefore(ctx, cutoff)
		wm.RecordRetentionSweep("worker", removed, err)
		if err != nil {
			logger.Error("retention sweep failed", "error", err)
		} else if removed > 0 {
			logger.Info("retention sweep removed conversations", "removed", removed, "cutoff", cutoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
