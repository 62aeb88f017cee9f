// Package pdf renders HTML document templates into PDF files through a
// headless browser service and publishes them under a static URL prefix.
package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/propdesk/propdesk/report"
)

var (
	// ErrGenerate is returned for every failed render. Callers surface its
	// message to users unchanged.
	ErrGenerate = errors.New("could not generate PDF")
	// ErrTemplateNotFound indicates the requested template is not in the catalog.
	ErrTemplateNotFound = errors.New("pdf template not found")
	// ErrInvalidFilename indicates the filename sanitises to nothing.
	ErrInvalidFilename = errors.New("invalid pdf filename")
)

// FailureMessage is the text shown to users when a render fails.
const FailureMessage = "Could not generate PDF"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Renderer converts HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string, opts report.PageOptions) ([]byte, error)
}

// Recorder receives render metrics.
type Recorder interface {
	ObservePDFRender(template string, err error, elapsed time.Duration)
	PDFSlotAcquired(delta int)
}

// Config tunes output location and concurrency. RenderTimeout bounds a
// shared render, which outlives the caller that started it.
type Config struct {
	OutputDir     string
	URLPrefix     string
	MaxConcurrent int64
	RenderTimeout time.Duration
}

const defaultRenderTimeout = 2 * time.Minute

// Generator produces PDF files from catalog templates.
type Generator struct {
	catalog   *Catalog
	renderer  Renderer
	outputDir string
	urlPrefix string
	timeout   time.Duration
	slots     *semaphore.Weighted
	group     singleflight.Group
	logger    *slog.Logger
	metrics   Recorder
}

// NewGenerator wires a generator. MaxConcurrent below one means one render at a time.
func NewGenerator(catalog *Catalog, renderer Renderer, cfg Config, logger *slog.Logger, metrics Recorder) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "pdfs"
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = defaultRenderTimeout
	}
	return &Generator{
		catalog:   catalog,
		renderer:  renderer,
		outputDir: cfg.OutputDir,
		urlPrefix: strings.Trim(cfg.URLPrefix, "/"),
		timeout:   cfg.RenderTimeout,
		slots:     semaphore.NewWeighted(cfg.MaxConcurrent),
		logger:    logger,
		metrics:   metrics,
	}
}

// OutputDir returns the directory files are written to.
func (g *Generator) OutputDir() string {
	return g.outputDir
}

// Templates lists the available template names.
func (g *Generator) Templates() []string {
	return g.catalog.Names()
}

// URLFor returns the relative URL a file with this name is published under.
func (g *Generator) URLFor(filename string) (string, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	return g.url(name), nil
}

// Generate renders template with data and writes <OutputDir>/<filename>.pdf.
// It returns the relative URL of the written file. Concurrent calls for the
// same template, filename and data share one render; a caller giving up does
// not cancel it for the others.
func (g *Generator) Generate(ctx context.Context, template, filename string, data any) (string, error) {
	start := time.Now()
	url, err := g.generate(ctx, template, filename, data)
	if g.metrics != nil {
		g.metrics.ObservePDFRender(template, err, time.Since(start))
	}
	if err != nil {
		g.logger.Error("pdf generation failed",
			slog.String("template", template),
			slog.String("filename", filename),
			slog.Any("error", err))
		return "", fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	return url, nil
}

func (g *Generator) generate(ctx context.Context, template, filename string, data any) (string, error) {
	doc, ok := g.catalog.Lookup(template)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, template)
	}
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}

	key, ok := renderKey(template, name, data)
	if !ok {
		return g.render(ctx, doc, name, data)
	}
	ch := g.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return g.render(shared, doc, name, data)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// renderKey identifies a render by its inputs. ok is false when data cannot
// be fingerprinted, in which case the render is not shared.
func renderKey(template, name string, data any) (string, bool) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(raw)
	return template + "/" + name + "/" + hex.EncodeToString(sum[:]), true
}

func (g *Generator) render(ctx context.Context, doc *Document, name string, data any) (string, error) {
	if err := g.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	if g.metrics != nil {
		g.metrics.PDFSlotAcquired(1)
	}
	defer func() {
		g.slots.Release(1)
		if g.metrics != nil {
			g.metrics.PDFSlotAcquired(-1)
		}
	}()

	html, err := doc.Render(data)
	if err != nil {
		return "", err
	}
	content, err := g.renderer.RenderHTML(ctx, html, doc.Spec.PageOptions())
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", doc.Spec.Name, err)
	}
	if err := g.write(name, content); err != nil {
		return "", err
	}
	g.logger.Info("pdf generated",
		slog.String("template", doc.Spec.Name),
		slog.String("file", name+".pdf"),
		slog.Int("bytes", len(content)))
	return g.url(name), nil
}

// write publishes content atomically so readers never observe a partial file.
func (g *Generator) write(name string, content []byte) error {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(g.outputDir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close pdf: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod pdf: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(g.outputDir, name+".pdf")); err != nil {
		cleanup()
		return fmt.Errorf("publish pdf: %w", err)
	}
	return nil
}

func (g *Generator) url(name string) string {
	if g.urlPrefix == "" {
		return "/" + name + ".pdf"
	}
	return "/" + g.urlPrefix + "/" + name + ".pdf"
}

// SanitizeFilename reduces a caller-supplied name to a safe base name
// without the .pdf extension.
func SanitizeFilename(filename string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if ext := path.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = strings.TrimSuffix(base, ext)
	}
	base = unsafeChars.ReplaceAllString(base, "-")
	base = strings.Trim(base, ".-")
	if base == "" {
		return "", ErrInvalidFilename
	}
	return base, nil
}
