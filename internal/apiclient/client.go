// Package apiclient wraps every REST call of the panel in one envelope: the
// bearer token is attached from the session, the outcome is normalised into a
// Result, and authentication failures are routed through a Guard.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenSource yields the bearer token of the current session.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Recorder receives call outcomes for instrumentation.
type Recorder interface {
	ObserveAPICall(method, outcome string, elapsed time.Duration)
}

// Config collects client dependencies.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenSource
	Guard      *Guard
	Logger     *slog.Logger
	Metrics    Recorder
	HTTPClient *http.Client
}

// Client performs enveloped REST calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streamHTTP *http.Client
	tokens     TokenSource
	guard      *Guard
	logger     *slog.Logger
	metrics    Recorder
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("apiclient: base url required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("apiclient: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	streamHTTP := &http.Client{Transport: httpClient.Transport}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		streamHTTP: streamHTTP,
		tokens:     cfg.Tokens,
		guard:      cfg.Guard,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Option adjusts a single request.
type Option func(*requestOptions)

type requestOptions struct {
	header http.Header
	query  url.Values
}

// WithHeader sets a request header, overriding defaults such as Content-Type.
func WithHeader(key, value string) Option {
	return func(o *requestOptions) {
		o.header.Set(key, value)
	}
}

// WithQuery appends query parameters.
func WithQuery(values url.Values) Option {
	return func(o *requestOptions) {
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// FilePart is one file of a multipart body.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

// Multipart marks a file-bearing body. Its Content-Type (with boundary) comes
// from the multipart writer; callers cannot force application/json onto it.
type Multipart struct {
	Fields map[string]string
	Files  []FilePart
}

// Do performs one call and wraps the outcome. It never retries.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...Option) Result {
	start := time.Now()
	res := c.do(ctx, method, path, body, opts...)
	elapsed := time.Since(start)
	outcome := "ok"
	if res.Err != nil {
		outcome = res.Err.Kind.String()
	}
	if c.metrics != nil {
		c.metrics.ObserveAPICall(method, outcome, elapsed)
	}
	if c.logger != nil {
		attrs := []any{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", res.Status),
			slog.Duration("elapsed", elapsed),
		}
		if res.Err != nil {
			c.logger.Warn("api call failed", append(attrs, slog.String("kind", outcome), slog.String("error", res.Err.Message))...)
		} else {
			c.logger.Debug("api call", attrs...)
		}
	}
	return res
}

// Call is Do followed by the session guard. A nil return means the session
// was torn down and the caller must stop processing.
func (c *Client) Call(ctx context.Context, method, path string, body any, opts ...Option) *Result {
	res := c.Do(ctx, method, path, body, opts...)
	if c.guard == nil {
		return &res
	}
	return c.guard.Check(ctx, res)
}

// Get is Call with GET.
func (c *Client) Get(ctx context.Context, path string, opts ...Option) *Result {
	return c.Call(ctx, http.MethodGet, path, nil, opts...)
}

// Post is Call with POST.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...Option) *Result {
	return c.Call(ctx, http.MethodPost, path, body, opts...)
}

// Put is Call with PUT.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...Option) *Result {
	return c.Call(ctx, http.MethodPut, path, body, opts...)
}

// Patch is Call with PATCH.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...Option) *Result {
	return c.Call(ctx, http.MethodPatch, path, body, opts...)
}

// Delete is Call with DELETE.
func (c *Client) Delete(ctx context.Context, path string, opts ...Option) *Result {
	return c.Call(ctx, http.MethodDelete, path, nil, opts...)
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts ...Option) Result {
	req, err := c.newRequest(ctx, method, path, body, opts...)
	if err != nil {
		return failure(KindTransport, 0, err.Error(), err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure(KindTransport, 0, err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(KindTransport, resp.StatusCode, err.Error(), err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return success(resp.StatusCode, payload)
	}
	return failureFromResponse(resp.StatusCode, payload)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, opts ...Option) (*http.Request, error) {
	ro := requestOptions{header: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(&ro)
	}

	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, ro.query), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}
	_, isMultipart := body.(*Multipart)
	for k, vs := range ro.header {
		if isMultipart && http.CanonicalHeaderKey(k) == "Content-Type" {
			continue
		}
		req.Header[http.CanonicalHeaderKey(k)] = vs
	}
	return req, nil
}

// authorize attaches the bearer token. Without a token the header is left off.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("apiclient: read access token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		if b == nil {
			return nil, "", nil
		}
		return encodeMultipart(b)
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	case io.Reader:
		return b, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("apiclient: encode body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func encodeMultipart(m *Multipart) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for k, v := range m.Fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		if f.Content == nil {
			continue
		}
		part, err := writer.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}

type errorBody struct {
	Message any `json:"message"`
	Error   any `json:"error"`
}

func failureFromResponse(status int, payload []byte) Result {
	msg := ""
	var body errorBody
	if json.Unmarshal(payload, &body) == nil {
		if s, ok := body.Message.(string); ok {
			msg = s
		}
		if msg == "" {
			if s, ok := body.Error.(string); ok {
				msg = s
			}
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status code %d", status)
	}
	return failure(classify(status, msg), status, msg, nil)
}

func classify(status int, msg string) ErrorKind {
	switch {
	case IsAuthMessage(msg):
		return KindAuth
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}
