package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kazaneza/openchat/internal/adapters/http"
	mcpadapter "github.com/kazaneza/openchat/internal/adapters/mcp"
	"github.com/kazaneza/openchat/internal/bootstrap"
	"github.com/kazaneza/openchat/internal/config"
	"github.com/kazaneza/openchat/internal/observability/logging"
	"github.com/kazaneza/openchat/internal/observability/metrics"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	m := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(cfg, app.AnswerUC, app.TurnsUC, app.FeedbackUC, m)

	if cfg.MCPEnabled {
		mcpSrv := mcpadapter.NewServer(mcpadapter.Deps{
			Answers:  app.AnswerUC,
			Searcher: app.SearchUC,
			Prompts:  app.Prompts,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mcp stdio server stopped", "error", err)
			}
		}()
		logger.Info("mcp server listening on stdio")
	}

	httpServer := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     router.Handler(),
		ReadTimeout: 30 * time.Second,
		// Streamed answers can run for minutes; a write deadline would cut them off.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
