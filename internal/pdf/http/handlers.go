package pdfhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/propdesk/propdesk/internal/pdf"
	"github.com/propdesk/propdesk/internal/platform/httpx"
	"github.com/propdesk/propdesk/jobs"
)

// Generator renders documents synchronously.
type Generator interface {
	Generate(ctx context.Context, template, filename string, data any) (string, error)
	URLFor(filename string) (string, error)
	Templates() []string
}

// Enqueuer schedules asynchronous renders.
type Enqueuer interface {
	EnqueuePDF(ctx context.Context, payload jobs.PDFRenderPayload) (string, error)
}

// Config controls where published files are served from.
type Config struct {
	OutputDir string
	URLPrefix string
	// RateLimit caps render requests per client IP per minute. Zero disables it.
	RateLimit int
}

// Handler serves the PDF render API and the published files.
type Handler struct {
	logger    *slog.Logger
	generator Generator
	queue     Enqueuer
	validate  *validator.Validate
	cfg       Config
}

// NewHandler builds a handler. queue may be nil when no worker is deployed.
func NewHandler(logger *slog.Logger, generator Generator, queue Enqueuer, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		generator: generator,
		queue:     queue,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		cfg:       cfg,
	}
}

type renderRequest struct {
	Template string          `json:"template" validate:"required,max=64"`
	Filename string          `json:"filename" validate:"required,max=128"`
	Data     json.RawMessage `json:"data"`
	Async    bool            `json:"async"`
}

type renderResponse struct {
	URL    string `json:"url"`
	TaskID string `json:"taskId,omitempty"`
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	if req.Async {
		h.enqueue(w, r, req)
		return
	}

	var data any
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: data must be a JSON value", httpx.ErrValidation))
			return
		}
	}
	url, err := h.generator.Generate(r.Context(), req.Template, req.Filename, data)
	if err != nil {
		h.respondGenerateError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, renderResponse{URL: url})
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, req renderRequest) {
	if h.queue == nil {
		httpx.RespondError(w, fmt.Errorf("%w: asynchronous rendering is not configured", httpx.ErrUnavailable))
		return
	}
	if !h.hasTemplate(req.Template) {
		h.respondGenerateError(w, pdf.ErrTemplateNotFound)
		return
	}
	url, err := h.generator.URLFor(req.Filename)
	if err != nil {
		h.respondGenerateError(w, err)
		return
	}
	taskID, err := h.queue.EnqueuePDF(r.Context(), jobs.PDFRenderPayload{
		Template:    req.Template,
		Filename:    req.Filename,
		Data:        req.Data,
		RequestedBy: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		h.logger.Error("enqueue pdf render", slog.String("template", req.Template), slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", pdf.FailureMessage)
		return
	}
	httpx.JSON(w, http.StatusAccepted, renderResponse{URL: url, TaskID: taskID})
}

func (h *Handler) handleTemplates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": h.generator.Templates()})
}

func (h *Handler) hasTemplate(name string) bool {
	for _, t := range h.generator.Templates() {
		if t == name {
			return true
		}
	}
	return false
}

// respondGenerateError never leaks converter details; the generator logs them.
func (h *Handler) respondGenerateError(w http.ResponseWriter, err error) {
	detail := pdf.FailureMessage
	switch {
	case errors.Is(err, pdf.ErrTemplateNotFound):
		httpx.Problem(w, http.StatusNotFound, "Template Not Found", detail)
	case errors.Is(err, pdf.ErrInvalidFilename):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filename", detail)
	default:
		httpx.Problem(w, http.StatusInternalServerError, "PDF Generation Failed", detail)
	}
}
