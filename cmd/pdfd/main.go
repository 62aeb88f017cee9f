// Command pdfd serves the PDF rendering API in front of Gotenberg.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/propdesk/propdesk/internal/app"
	"github.com/propdesk/propdesk/internal/observability"
	pdfhttp "github.com/propdesk/propdesk/internal/pdf/http"
	"github.com/propdesk/propdesk/jobs"
	"github.com/propdesk/propdesk/report"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	if app.SkipInTestMode(logger, "pdfd") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, cleanup, err := newServer(cfg, logger, observability.NewMetrics())
	if err != nil {
		logger.Error("init server", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("gotenberg", cfg.GotenbergURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// newServer wires the generator, queue client and router. cleanup closes the
// queue connections.
func newServer(cfg *app.Config, logger *slog.Logger, metrics *observability.Metrics) (*http.Server, func(), error) {
	generator, gotenberg, err := app.NewPDFGenerator(cfg, logger, metrics)
	if err != nil {
		return nil, func() {}, err
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := jobs.NewClient(redisOpts)
	inspector := asynq.NewInspector(redisOpts)
	cleanup := func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}

	pdfHandler := pdfhttp.NewHandler(logger, generator, queue, pdfhttp.Config{
		OutputDir: generator.OutputDir(),
		URLPrefix: cfg.PDFURLPrefix,
		RateLimit: cfg.PDFRateLimit,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		PDFHandler:    pdfHandler,
		ReportHandler: report.NewHandler(gotenberg, logger),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}
	return server, cleanup, nil
}
