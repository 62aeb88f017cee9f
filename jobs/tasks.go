package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPDFRender renders a document template into a published PDF.
	TaskPDFRender = "pdf:render"
)

// PDFRenderPayload describes one asynchronous render.
type PDFRenderPayload struct {
	Template    string          `json:"template"`
	Filename    string          `json:"filename"`
	Data        json.RawMessage `json:"data,omitempty"`
	RequestedBy string          `json:"requestedBy,omitempty"`
}

// NewPDFRenderTask constructs an Asynq task.
func NewPDFRenderTask(payload PDFRenderPayload) (*asynq.Task, error) {
	if payload.Template == "" || payload.Filename == "" {
		return nil, errors.New("jobs: pdf render requires template and filename")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPDFRender, data, asynq.MaxRetry(3)), nil
}
