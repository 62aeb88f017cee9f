package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/propdesk/internal/app"
	"github.com/propdesk/propdesk/internal/observability"
	_ "github.com/propdesk/propdesk/testing"
)

func TestMainSkipsInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	main()
}

func TestServerRendersThroughGotenberg(t *testing.T) {
	gotenberg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/forms/chromium/convert/html":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, _ = io.WriteString(w, "%PDF-1.7 fake")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(gotenberg.Close)

	out := t.TempDir()
	cfg := &app.Config{
		AppEnv:           "test",
		RedisAddr:        "127.0.0.1:0",
		GotenbergURL:     gotenberg.URL,
		PDFOutputDir:     out,
		PDFURLPrefix:     "pdfs",
		PDFMaxConcurrent: 2,
		PDFRateLimit:     10,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, cleanup, err := newServer(cfg, logger, observability.NewMetrics())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	srv := httptest.NewServer(server.Handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/pdf/templates")
	require.NoError(t, err)
	var templates map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&templates))
	_ = resp.Body.Close()
	assert.Contains(t, templates["templates"], "invoice")

	body := `{"template":"rent_receipt","filename":"receipt-42","data":{"receiptNumber":"R-42","tenant":"Kai","amount":950,"currency":"EUR","paidAt":"2026-10-01"}}`
	resp, err = http.Post(srv.URL+"/api/pdf", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var rendered map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rendered))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/pdfs/receipt-42.pdf", rendered["url"])

	written, err := os.ReadFile(filepath.Join(out, "receipt-42.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake", string(written))

	resp, err = http.Get(srv.URL + rendered["url"])
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	resp, err = http.Get(srv.URL + "/report/ping")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metricsBody, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(metricsBody), "propdesk_pdf_renders_total")
}
