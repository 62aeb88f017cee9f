package pdf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/propdesk/report"
	"github.com/propdesk/propdesk/web"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	fsys := fstest.MapFS{
		"tpl/manifest.yaml": {Data: []byte(`
templates:
  - name: invoice
    file: invoice.html
    margins: {top: 0.5, bottom: 0.5}
  - name: landscape
    file: wide.html
    landscape: true
    paper: {width: 11.7, height: 8.27}
`)},
		"tpl/invoice.html": {Data: []byte(`<h1>Invoice {{ .number }}</h1><p>{{ money .currency (total .items) }}</p>`)},
		"tpl/wide.html":    {Data: []byte(`<p>{{ formatDate .at }}</p>`)},
	}
	catalog, err := LoadCatalog(fsys, "tpl")
	require.NoError(t, err)
	return catalog
}

type fakeRenderer struct {
	mu       sync.Mutex
	html     []string
	opts     []report.PageOptions
	err      error
	inFlight atomic.Int32
	peak     atomic.Int32
	hold     chan struct{}
	entered  chan struct{}
}

func (f *fakeRenderer) RenderHTML(ctx context.Context, html string, opts report.PageOptions) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	f.mu.Lock()
	f.html = append(f.html, html)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

func (f *fakeRenderer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.html)
}

type recordingMetrics struct {
	mu      sync.Mutex
	renders []error
	slots   int
}

func (m *recordingMetrics) ObservePDFRender(_ string, err error, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renders = append(m.renders, err)
}

func (m *recordingMetrics) PDFSlotAcquired(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots += delta
}

func TestGenerateWritesFileAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	renderer := &fakeRenderer{}
	metrics := &recordingMetrics{}
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: dir, URLPrefix: "/pdfs/", MaxConcurrent: 2}, quietLogger(), metrics)

	url, err := gen.Generate(context.Background(), "invoice", "INV-001", map[string]any{
		"number":   "INV-001",
		"currency": "usd",
		"items": []any{
			map[string]any{"quantity": 2.0, "rate": 500.0},
			map[string]any{"quantity": 1.0, "rate": 234.5},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/pdfs/INV-001.pdf", url)

	content, err := os.ReadFile(filepath.Join(dir, "INV-001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(content))

	require.Len(t, renderer.html, 1)
	assert.Contains(t, renderer.html[0], "<h1>Invoice INV-001</h1>")
	assert.Contains(t, renderer.html[0], "USD 1,234.50")
	assert.Equal(t, 8.27, renderer.opts[0].PaperWidth)
	assert.Equal(t, 11.7, renderer.opts[0].PaperHeight)
	assert.Equal(t, 0.5, renderer.opts[0].MarginTop)

	assert.Equal(t, []error{nil}, metrics.renders)
	assert.Zero(t, metrics.slots)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestGenerateUnknownTemplateWritesNothing(t *testing.T) {
	dir := t.TempDir()
	renderer := &fakeRenderer{}
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: dir}, quietLogger(), nil)

	url, err := gen.Generate(context.Background(), "missing", "report", nil)
	require.Error(t, err)
	assert.Empty(t, url)
	assert.ErrorIs(t, err, ErrGenerate)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.True(t, strings.HasPrefix(err.Error(), "could not generate PDF"))
	assert.Zero(t, renderer.calls())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateConverterFailure(t *testing.T) {
	dir := t.TempDir()
	renderer := &fakeRenderer{err: errors.New("chromium crashed")}
	metrics := &recordingMetrics{}
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: dir}, quietLogger(), metrics)

	_, err := gen.Generate(context.Background(), "invoice", "INV-002", map[string]any{"number": "2"})
	require.ErrorIs(t, err, ErrGenerate)

	_, statErr := os.Stat(filepath.Join(dir, "INV-002.pdf"))
	assert.True(t, os.IsNotExist(statErr))
	require.Len(t, metrics.renders, 1)
	assert.Error(t, metrics.renders[0])
}

func TestGenerateLandscapeLayout(t *testing.T) {
	renderer := &fakeRenderer{}
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: t.TempDir()}, quietLogger(), nil)

	url, err := gen.Generate(context.Background(), "landscape", "wide.pdf", map[string]any{"at": "2024-03-05"})
	require.NoError(t, err)
	assert.Equal(t, "/wide.pdf", url)
	assert.Contains(t, renderer.html[0], "05 Mar 2024")
	assert.True(t, renderer.opts[0].Landscape)
	assert.Equal(t, 11.7, renderer.opts[0].PaperWidth)
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	renderer := &fakeRenderer{hold: make(chan struct{})}
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: t.TempDir(), MaxConcurrent: 2}, quietLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := gen.Generate(context.Background(), "invoice", "doc-"+string(rune('a'+i)), map[string]any{})
			assert.NoError(t, err)
		}(i)
	}
	require.Eventually(t, func() bool { return renderer.inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(renderer.hold)
	wg.Wait()

	assert.Equal(t, int32(2), renderer.peak.Load())
	assert.Equal(t, 6, renderer.calls())
}

func TestGenerateCollapsesDuplicateRequests(t *testing.T) {
	renderer := &fakeRenderer{hold: make(chan struct{}), entered: make(chan struct{}, 1)}
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: t.TempDir(), MaxConcurrent: 4}, quietLogger(), nil)

	urls := make(chan string, 3)
	var wg sync.WaitGroup
	start := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, err := gen.Generate(context.Background(), "invoice", "shared", map[string]any{})
			assert.NoError(t, err)
			urls <- url
		}()
	}
	start()
	<-renderer.entered
	start()
	start()
	time.Sleep(50 * time.Millisecond)
	close(renderer.hold)
	wg.Wait()
	close(urls)

	assert.Equal(t, 1, renderer.calls())
	for url := range urls {
		assert.Equal(t, "/shared.pdf", url)
	}
}

func TestGenerateHonoursCancelledContext(t *testing.T) {
	renderer := &fakeRenderer{hold: make(chan struct{}), entered: make(chan struct{}, 2)}
	dir := t.TempDir()
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: dir, MaxConcurrent: 1}, quietLogger(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = gen.Generate(context.Background(), "invoice", "first", map[string]any{})
	}()
	<-renderer.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := gen.Generate(ctx, "invoice", "second", map[string]any{})
	require.ErrorIs(t, err, ErrGenerate)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(renderer.hold)
	<-done
	// the abandoned render still completes once the slot frees up
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "second.pdf"))
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestGenerateSharedRenderSurvivesCancelledCaller(t *testing.T) {
	renderer := &fakeRenderer{hold: make(chan struct{}), entered: make(chan struct{}, 1)}
	dir := t.TempDir()
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: dir, MaxConcurrent: 2}, quietLogger(), nil)
	data := map[string]any{"number": "INV-1"}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := gen.Generate(first, "invoice", "inv-1", data)
		firstErr <- err
	}()
	<-renderer.entered

	type outcome struct {
		url string
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		url, err := gen.Generate(context.Background(), "invoice", "inv-1", data)
		second <- outcome{url, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	err := <-firstErr
	require.ErrorIs(t, err, ErrGenerate)
	assert.ErrorIs(t, err, context.Canceled)

	close(renderer.hold)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "/inv-1.pdf", got.url)
	assert.Equal(t, 1, renderer.calls())
	assert.FileExists(t, filepath.Join(dir, "inv-1.pdf"))
}

func TestGenerateDoesNotShareRendersWithDifferentData(t *testing.T) {
	renderer := &fakeRenderer{hold: make(chan struct{}), entered: make(chan struct{}, 2)}
	gen := NewGenerator(testCatalog(t), renderer, Config{OutputDir: t.TempDir(), MaxConcurrent: 2}, quietLogger(), nil)

	var wg sync.WaitGroup
	for _, number := range []string{"INV-1", "INV-2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gen.Generate(context.Background(), "invoice", "same-name", map[string]any{"number": number})
			assert.NoError(t, err)
		}()
	}
	<-renderer.entered
	<-renderer.entered
	close(renderer.hold)
	wg.Wait()

	require.Equal(t, 2, renderer.calls())
	joined := strings.Join(renderer.html, "\n")
	assert.Contains(t, joined, "Invoice INV-1")
	assert.Contains(t, joined, "Invoice INV-2")
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"INV-001":            "INV-001",
		"INV-001.pdf":        "INV-001",
		"invoice 2024.PDF":   "invoice-2024",
		"../../etc/passwd":   "passwd",
		`..\..\win\boot.ini`: "boot.ini",
		"rent.2024.01":       "rent.2024.01",
	}
	for in, want := range cases {
		got, err := SanitizeFilename(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "..", "/", "...pdf"} {
		_, err := SanitizeFilename(bad)
		assert.ErrorIs(t, err, ErrInvalidFilename, bad)
	}
}

func TestEmbeddedCatalogRendersThroughGotenberg(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("files")
		require.NoError(t, err)
		html, _ := io.ReadAll(file)
		_ = file.Close()
		assert.Contains(t, string(html), "Rent receipt RC-9")
		assert.Contains(t, string(html), "IDR 1,500,000.00")
		received.Add(1)
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	catalog, err := LoadCatalog(web.Templates, "templates/pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice", "rent_receipt"}, catalog.Names())

	dir := t.TempDir()
	gen := NewGenerator(catalog, report.NewClient(srv.URL, time.Second), Config{OutputDir: dir, URLPrefix: "pdfs"}, quietLogger(), nil)
	url, err := gen.Generate(context.Background(), "rent_receipt", "RC-9", map[string]any{
		"receiptNumber": "RC-9",
		"tenant":        "Ayu",
		"property":      "Unit 4B",
		"paidAt":        "2024-05-01T09:00:00Z",
		"periodStart":   "2024-05-01",
		"periodEnd":     "2024-05-31",
		"currency":      "IDR",
		"amount":        1500000,
	})
	require.NoError(t, err)
	assert.Equal(t, "/pdfs/RC-9.pdf", url)
	assert.Equal(t, int32(1), received.Load())
	_, err = os.Stat(filepath.Join(dir, "RC-9.pdf"))
	assert.NoError(t, err)
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"manifest.yaml": {Data: []byte("templates:\n  - {name: a, file: a.html}\n  - {name: a, file: a.html}\n")},
		"a.html":        {Data: []byte("<p></p>")},
	}
	_, err := LoadCatalog(fsys, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
