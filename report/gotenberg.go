package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// PageOptions controls Chromium's print-to-PDF layout. Sizes are in inches.
type PageOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	MarginTop       float64
	MarginBottom    float64
	MarginLeft      float64
	MarginRight     float64
	Landscape       bool
	PrintBackground bool
}

// A4 is the default page layout.
var A4 = PageOptions{
	PaperWidth:      8.27,
	PaperHeight:     11.7,
	MarginTop:       0.4,
	MarginBottom:    0.4,
	MarginLeft:      0.4,
	MarginRight:     0.4,
	PrintBackground: true,
}

// Client wraps interactions with the Gotenberg API. Every conversion runs in
// a fresh headless Chromium context on the Gotenberg side.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts an HTML document into PDF bytes.
func (c *Client) RenderHTML(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	for field, value := range opts.formFields() {
		if err := writer.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return io.ReadAll(resp.Body)
}

func (o PageOptions) formFields() map[string]string {
	if o.PaperWidth <= 0 || o.PaperHeight <= 0 {
		o.PaperWidth, o.PaperHeight = A4.PaperWidth, A4.PaperHeight
	}
	return map[string]string{
		"paperWidth":      inches(o.PaperWidth),
		"paperHeight":     inches(o.PaperHeight),
		"marginTop":       inches(o.MarginTop),
		"marginBottom":    inches(o.MarginBottom),
		"marginLeft":      inches(o.MarginLeft),
		"marginRight":     inches(o.MarginRight),
		"landscape":       strconv.FormatBool(o.Landscape),
		"printBackground": strconv.FormatBool(o.PrintBackground),
	}
}

func inches(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
