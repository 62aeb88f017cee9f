package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/propdesk/propdesk/internal/jobs"
	"github.com/propdesk/propdesk/internal/pdf"
)

// Generator is the subset of pdf.Generator the job needs.
type Generator interface {
	Generate(ctx context.Context, template, filename string, data any) (string, error)
}

// PDFRenderJob processes TaskPDFRender tasks.
type PDFRenderJob struct {
	Generator Generator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewPDFRenderJob wires dependencies for the render handler.
func NewPDFRenderJob(gen Generator, logger *slog.Logger, metrics *jobmetrics.Metrics) *PDFRenderJob {
	return &PDFRenderJob{Generator: gen, Logger: logger, Metrics: metrics}
}

// Handle renders the payload. Unknown templates and malformed payloads are not retried.
func (j *PDFRenderJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Generator == nil {
		return errors.New("pdf render: handler not configured")
	}
	var payload PDFRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("pdf render payload: %v: %w", err, asynq.SkipRetry)
	}
	var data any
	if len(payload.Data) > 0 {
		if err := json.Unmarshal(payload.Data, &data); err != nil {
			return fmt.Errorf("pdf render data: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskPDFRender)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(
		slog.String("template", payload.Template),
		slog.String("filename", payload.Filename))

	url, err := j.Generator.Generate(ctx, payload.Template, payload.Filename, data)
	if err != nil {
		if errors.Is(err, pdf.ErrTemplateNotFound) || errors.Is(err, pdf.ErrInvalidFilename) {
			logger.Warn("pdf render rejected", slog.Any("error", err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logger.Info("pdf render completed", slog.String("url", url))
	return nil
}

func (j *PDFRenderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
