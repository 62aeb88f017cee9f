// Command worker processes queued PDF renders and the retention sweep.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/propdesk/propdesk/internal/app"
	jobmetrics "github.com/propdesk/propdesk/internal/jobs"
	"github.com/propdesk/propdesk/internal/observability"
	"github.com/propdesk/propdesk/jobs"
)

// sweepSchedule runs the retention sweep nightly.
const sweepSchedule = "0 3 * * *"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	if app.SkipInTestMode(logger, "worker") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker, err := newWorker(cfg, logger, nil, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func newWorker(cfg *app.Config, logger *slog.Logger, metrics *observability.Metrics, registerer prometheus.Registerer) (*jobs.Worker, error) {
	config, err := workerConfig(cfg, logger, metrics, registerer)
	if err != nil {
		return nil, err
	}
	return jobs.NewWorker(config)
}

// workerConfig registers the render and sweep handlers, plus the nightly
// sweep when PDF_RETENTION is positive.
func workerConfig(cfg *app.Config, logger *slog.Logger, metrics *observability.Metrics, registerer prometheus.Registerer) (jobs.WorkerConfig, error) {
	generator, _, err := app.NewPDFGenerator(cfg, logger, metrics)
	if err != nil {
		return jobs.WorkerConfig{}, err
	}
	jobMetrics := jobmetrics.NewMetrics(registerer)

	renderJob := jobs.NewPDFRenderJob(generator, logger, jobMetrics)
	sweepJob := jobs.NewPDFSweepJob(generator.OutputDir(), cfg.PDFRetention, logger, jobMetrics)

	config := jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPDFRender, Handler: renderJob.Handle},
			{Type: jobs.TaskPDFSweep, Handler: sweepJob.Handle},
		},
	}
	if cfg.PDFRetention > 0 {
		sweepTask, err := jobs.NewPDFSweepTask(cfg.PDFRetention)
		if err != nil {
			return jobs.WorkerConfig{}, err
		}
		config.Cron = append(config.Cron, jobs.CronRegistration{
			Spec:    sweepSchedule,
			Task:    sweepTask,
			Options: []asynq.Option{asynq.MaxRetry(1), asynq.Queue(jobs.QueueDefault)},
		})
	}
	return config, nil
}
