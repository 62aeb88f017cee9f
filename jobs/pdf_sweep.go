package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/propdesk/propdesk/internal/jobs"
)

// TaskPDFSweep removes published PDFs older than the retention window.
const TaskPDFSweep = "pdf:sweep"

// PDFSweepPayload overrides the job's retention for one run.
type PDFSweepPayload struct {
	MaxAge time.Duration `json:"maxAge,omitempty"`
}

// NewPDFSweepTask constructs an Asynq task.
func NewPDFSweepTask(maxAge time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PDFSweepPayload{MaxAge: maxAge})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPDFSweep, data), nil
}

// PDFSweepJob deletes expired files from the PDF output directory.
type PDFSweepJob struct {
	Dir     string
	MaxAge  time.Duration
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPDFSweepJob wires dependencies for the sweep handler.
func NewPDFSweepJob(dir string, maxAge time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *PDFSweepJob {
	return &PDFSweepJob{
		Dir:     dir,
		MaxAge:  maxAge,
		Logger:  logger,
		Metrics: metrics,
		clock:   time.Now,
	}
}

// Handle processes sweep tasks.
func (j *PDFSweepJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Dir == "" {
		return errors.New("pdf sweep: handler not configured")
	}
	maxAge := j.MaxAge
	var payload PDFSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.MaxAge > 0 {
		maxAge = payload.MaxAge
	}
	if maxAge <= 0 {
		return nil
	}

	tracker := j.Metrics.Track(TaskPDFSweep)
	defer func() {
		err = tracker.End(err)
	}()

	removed, err := j.sweep(ctx, j.now().Add(-maxAge))
	if err != nil {
		return err
	}
	if removed > 0 {
		j.logger().Info("pdf sweep", slog.Int("removed", removed), slog.Duration("max_age", maxAge))
	}
	return nil
}

func (j *PDFSweepJob) sweep(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".pdf") || strings.HasSuffix(name, ".tmp")) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			j.logger().Warn("pdf sweep remove", slog.String("file", name), slog.Any("error", err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (j *PDFSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

func (j *PDFSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
