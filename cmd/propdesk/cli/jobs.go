package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/propdesk/propdesk/jobs"
)

// JobQueue is the queue surface used by the jobs command.
type JobQueue interface {
	Trigger(ctx context.Context, name string, payload json.RawMessage) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
}

// JobsCLI wraps manual management helpers for the PDF queue.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	sweepAge  time.Duration
}

// NewJobsCLI initialises the helpers against the given Redis address.
// sweepAge is the default retention for manual sweeps.
func NewJobsCLI(redisAddr string, sweepAge time.Duration) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts), sweepAge: sweepAge}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. pdf:render takes its payload from
// payload; pdf:sweep uses the configured retention unless payload overrides
// it with {"maxAge": "..."}.
func (c *JobsCLI) Trigger(ctx context.Context, name string, payload json.RawMessage) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := buildTask(name, payload, c.sweepAge)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault))
}

func buildTask(name string, payload json.RawMessage, sweepAge time.Duration) (*asynq.Task, error) {
	switch name {
	case jobs.TaskPDFRender:
		var p jobs.PDFRenderPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("jobs cli: decode render payload: %w", err)
		}
		return jobs.NewPDFRenderTask(p)
	case jobs.TaskPDFSweep:
		maxAge := sweepAge
		if len(payload) > 0 {
			var p struct {
				MaxAge string `json:"maxAge"`
			}
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, fmt.Errorf("jobs cli: decode sweep payload: %w", err)
			}
			if p.MaxAge != "" {
				d, err := time.ParseDuration(p.MaxAge)
				if err != nil {
					return nil, fmt.Errorf("jobs cli: invalid maxAge: %w", err)
				}
				maxAge = d
			}
		}
		return jobs.NewPDFSweepTask(maxAge)
	}
	return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Paused    bool   `json:"paused"`
}

// InspectQueue reports the metrics of the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
		stats.Paused = info.Paused
	}
	return stats, nil
}

func (a *App) jobsCommand(ctx context.Context, args []string) int {
	if a.jobs == nil {
		_, _ = fmt.Fprintln(a.stderr, "propdesk jobs: queue not configured (set REDIS_ADDR)")
		return ExitFailure
	}
	if len(args) == 0 {
		_, _ = fmt.Fprintln(a.stderr, "Usage: propdesk jobs stats|render --data JSON|sweep [--max-age D]")
		return ExitUsage
	}
	switch args[0] {
	case "stats":
		stats, err := a.jobs.InspectQueue(ctx)
		if err != nil {
			return a.fail("jobs stats", err)
		}
		return a.encode("jobs stats", stats)
	case "render":
		fs := a.flagSet("jobs render")
		data := fs.String("data", "", "render payload {template, filename, data} as JSON, @file or -")
		if code, ok := a.parse(fs, args[1:]); !ok {
			return code
		}
		raw, err := a.readData(*data)
		if err != nil {
			return a.usageError("jobs render", "%v", err)
		}
		return a.trigger(ctx, "jobs render", jobs.TaskPDFRender, raw)
	case "sweep":
		fs := a.flagSet("jobs sweep")
		maxAge := fs.Duration("max-age", 0, "remove PDFs older than this (default PDF_RETENTION)")
		if code, ok := a.parse(fs, args[1:]); !ok {
			return code
		}
		var raw json.RawMessage
		if *maxAge > 0 {
			raw, _ = json.Marshal(map[string]string{"maxAge": maxAge.String()})
		}
		return a.trigger(ctx, "jobs sweep", jobs.TaskPDFSweep, raw)
	}
	return a.usageError("jobs", "unknown action %q", args[0])
}

func (a *App) trigger(ctx context.Context, cmd, name string, payload json.RawMessage) int {
	info, err := a.jobs.Trigger(ctx, name, payload)
	if err != nil {
		return a.fail(cmd, err)
	}
	_, _ = fmt.Fprintf(a.stdout, "enqueued %s %s\n", name, info.ID)
	return ExitOK
}
