package perf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/propdesk/propdesk/internal/jobs"
	"github.com/propdesk/propdesk/internal/pdf"
	"github.com/propdesk/propdesk/jobs"
	"github.com/propdesk/propdesk/report"
	"github.com/propdesk/propdesk/web"
)

// slowRenderer stands in for Gotenberg with a fixed conversion delay.
type slowRenderer struct {
	delay time.Duration
}

func (r slowRenderer) RenderHTML(ctx context.Context, html string, _ report.PageOptions) ([]byte, error) {
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if strings.Contains(html, "FAIL") {
		return nil, errors.New("chromium crashed")
	}
	return []byte("%PDF-1.7"), nil
}

func newGenerator(t *testing.T, delay time.Duration, slots int64) *pdf.Generator {
	t.Helper()
	catalog, err := pdf.LoadCatalog(web.Templates, "templates/pdf")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return pdf.NewGenerator(catalog, slowRenderer{delay: delay}, pdf.Config{
		OutputDir:     t.TempDir(),
		URLPrefix:     "pdfs",
		MaxConcurrent: slots,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func renderTask(t *testing.T, template, filename, tenant string) *asynq.Task {
	t.Helper()
	data, _ := json.Marshal(map[string]any{"receiptNumber": filename, "tenant": tenant, "amount": 950, "currency": "EUR"})
	task, err := jobs.NewPDFRenderTask(jobs.PDFRenderPayload{Template: template, Filename: filename, Data: data})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestPDFRenderJobThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := jobs.NewPDFRenderJob(newGenerator(t, 8*time.Millisecond, 2), slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		if err := job.Handle(ctx, renderTask(t, "rent_receipt", fmt.Sprintf("receipt-%02d", i), "Kai")); err != nil {
			t.Fatalf("unexpected render failure: %v", err)
		}
	}
	// Converter failures are retried by asynq, so they count as failures.
	for i := 0; i < 2; i++ {
		if err := job.Handle(ctx, renderTask(t, "rent_receipt", fmt.Sprintf("broken-%d", i), "FAIL")); err == nil {
			t.Fatal("expected converter failure to propagate")
		}
	}
	// Unknown templates are dropped without retry.
	for i := 0; i < 3; i++ {
		err := job.Handle(ctx, renderTask(t, "lease_agreement", fmt.Sprintf("lease-%d", i), "Kai"))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("expected SkipRetry, got %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	labels := func(status string) map[string]string {
		return map[string]string{"job": jobs.TaskPDFRender, "status": status}
	}
	success := metricValue(t, families, "propdesk_jobs_total", labels("success"))
	failure := metricValue(t, families, "propdesk_jobs_total", labels("failure"))
	skipped := metricValue(t, families, "propdesk_jobs_total", labels("skipped"))
	if skipped != 3 {
		t.Fatalf("expected 3 skipped renders, got %v", skipped)
	}
	ratio := success / (success + failure)
	if ratio < 0.9 {
		t.Fatalf("render success ratio too low: %f", ratio)
	}

	mean := histogramMean(t, families, "propdesk_job_duration_seconds", map[string]string{"job": jobs.TaskPDFRender})
	if mean > 0.5 {
		t.Fatalf("render duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
