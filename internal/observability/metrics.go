package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the PropDesk binaries.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	apiCalls        *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	pdfRenders      *prometheus.CounterVec
	pdfDuration     prometheus.Histogram
	pdfInFlight     prometheus.Gauge
}

// NewMetrics initialises the registry and collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propdesk_http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propdesk_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	apiCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propdesk_api_calls_total",
		Help: "Upstream REST calls by method and outcome kind.",
	}, []string{"method", "outcome"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propdesk_api_call_duration_seconds",
		Help:    "Upstream REST call latency by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	pdfRenders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propdesk_pdf_renders_total",
		Help: "PDF renders by template and outcome.",
	}, []string{"template", "outcome"})
	pdfDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "propdesk_pdf_render_duration_seconds",
		Help:    "Time spent rendering one PDF.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	})
	pdfInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "propdesk_pdf_renders_in_flight",
		Help: "PDF renders currently holding a browser slot.",
	})
	registry.MustRegister(requests, duration, apiCalls, apiDuration, pdfRenders, pdfDuration, pdfInFlight)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		apiCalls:        apiCalls,
		apiDuration:     apiDuration,
		pdfRenders:      pdfRenders,
		pdfDuration:     pdfDuration,
		pdfInFlight:     pdfInFlight,
	}
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAPICall records one upstream REST call.
func (m *Metrics) ObserveAPICall(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(method, outcome).Inc()
	m.apiDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObservePDFRender records one PDF render.
func (m *Metrics) ObservePDFRender(template string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.pdfRenders.WithLabelValues(template, outcome).Inc()
	m.pdfDuration.Observe(elapsed.Seconds())
}

// PDFSlotAcquired adjusts the in-flight gauge; pass -1 on release.
func (m *Metrics) PDFSlotAcquired(delta int) {
	if m == nil {
		return
	}
	m.pdfInFlight.Add(float64(delta))
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

// Gatherer exposes the registry for scraping outside the HTTP handler.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}
