package app

import (
	"fmt"
	"log/slog"

	"github.com/propdesk/propdesk/internal/pdf"
	"github.com/propdesk/propdesk/report"
	"github.com/propdesk/propdesk/web"
)

// PDFTemplateDir is the embedded directory holding the PDF manifest.
const PDFTemplateDir = "templates/pdf"

// NewPDFGenerator loads the embedded template catalog and wires it to a
// Gotenberg client. The client is returned for health probes.
func NewPDFGenerator(cfg *Config, logger *slog.Logger, metrics pdf.Recorder) (*pdf.Generator, *report.Client, error) {
	catalog, err := pdf.LoadCatalog(web.Templates, PDFTemplateDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load pdf templates: %w", err)
	}
	client := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	gen := pdf.NewGenerator(catalog, client, pdf.Config{
		OutputDir:     cfg.PDFOutputDir,
		URLPrefix:     cfg.PDFURLPrefix,
		MaxConcurrent: cfg.PDFMaxConcurrent,
		RenderTimeout: 2 * cfg.GotenbergTimeout,
	}, logger, metrics)
	return gen, client, nil
}
