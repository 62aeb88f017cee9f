package app

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/propdesk/internal/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.test")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, SessionBackendFile, cfg.SessionBackend)
	assert.Equal(t, "https://api.example.test", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, int64(4), cfg.PDFMaxConcurrent)
	assert.Equal(t, "pdfs", cfg.PDFURLPrefix)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownSessionBackend(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "cookie")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_BACKEND")
}

func TestLoadConfigNormalisesBackend(t *testing.T) {
	t.Setenv("SESSION_BACKEND", " Redis ")
	t.Setenv("SESSION_TTL", "2h")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, SessionBackendRedis, cfg.SessionBackend)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestNewLoggerToHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, &Config{LogFormat: "json", LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestRouterBaseline(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:  &Config{AppEnv: "test"},
		Metrics: metrics,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Ratelimit-Limit"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "propdesk_http_requests_total")
}

func TestSkipInTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	assert.True(t, SkipInTestMode(slog.New(slog.NewTextHandler(io.Discard, nil)), "pdfd"))

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	assert.False(t, SkipInTestMode(nil, "pdfd"))
}

func TestNewPDFGeneratorLoadsEmbeddedCatalog(t *testing.T) {
	cfg := &Config{
		GotenbergURL:     "http://127.0.0.1:0",
		PDFOutputDir:     t.TempDir(),
		PDFURLPrefix:     "files",
		PDFMaxConcurrent: 2,
	}
	gen, client, err := NewPDFGenerator(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, []string{"invoice", "rent_receipt"}, gen.Templates())
	url, err := gen.URLFor("INV 7.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/files/INV-7.pdf", url)
}
