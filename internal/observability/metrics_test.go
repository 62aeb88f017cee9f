package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/pdf", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `propdesk_http_requests_total{code="418",route="/api/pdf"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `propdesk_http_request_duration_seconds_bucket{route="/api/pdf"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestObserveAPICallAndPDFRender(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveAPICall(http.MethodGet, "ok", 20*time.Millisecond)
	metrics.ObserveAPICall(http.MethodGet, "auth", 5*time.Millisecond)
	metrics.ObservePDFRender("invoice", nil, time.Second)
	metrics.ObservePDFRender("invoice", errors.New("boom"), time.Second)
	metrics.PDFSlotAcquired(1)

	body := scrape(t, metrics)
	for _, want := range []string{
		`propdesk_api_calls_total{method="GET",outcome="ok"} 1`,
		`propdesk_api_calls_total{method="GET",outcome="auth"} 1`,
		`propdesk_pdf_renders_total{outcome="success",template="invoice"} 1`,
		`propdesk_pdf_renders_total{outcome="failure",template="invoice"} 1`,
		`propdesk_pdf_renders_in_flight 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveAPICall(http.MethodGet, "ok", time.Millisecond)
	metrics.ObservePDFRender("invoice", nil, time.Millisecond)
	metrics.PDFSlotAcquired(1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}
