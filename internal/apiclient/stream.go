package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// Event is one message delivered by Stream. JSON holds the payload when it
// parsed as JSON; otherwise Text holds the raw data.
type Event struct {
	Type string
	ID   string
	JSON json.RawMessage
	Text string
}

// IsJSON reports whether the payload parsed as JSON.
func (e Event) IsJSON() bool {
	return e.JSON != nil
}

// StreamHandlers are the subscription callbacks. OnOpen and OnError are
// invoked as given.
type StreamHandlers struct {
	OnOpen    func(resp *http.Response)
	OnMessage func(Event)
	OnError   func(error)
}

// ErrSessionEnded is returned by Stream when the guard tore the session down.
var ErrSessionEnded = errors.New("apiclient: session ended")

// Stream opens a server-sent event subscription with the session's bearer
// token and delivers every event until the server closes the stream or ctx
// is cancelled.
func (c *Client) Stream(ctx context.Context, path string, h StreamHandlers) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, WithHeader("Accept", "text/event-stream"))
	if err != nil {
		return c.streamFailure(h, err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return c.streamFailure(h, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		res := failureFromResponse(resp.StatusCode, payload)
		if c.guard != nil && c.guard.Check(ctx, res) == nil {
			return ErrSessionEnded
		}
		return c.streamFailure(h, res.Err)
	}
	if h.OnOpen != nil {
		h.OnOpen(resp)
	}

	reader := newSSEReader(resp.Body)
	for reader.Next() {
		frame := reader.Frame()
		ev := Event{Type: frame.Type, ID: frame.ID}
		if json.Valid([]byte(frame.Data)) {
			ev.JSON = json.RawMessage(frame.Data)
		} else {
			ev.Text = frame.Data
		}
		if h.OnMessage != nil {
			h.OnMessage(ev)
		}
	}
	if err := reader.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.streamFailure(h, err)
	}
	return nil
}

func (c *Client) streamFailure(h StreamHandlers, err error) error {
	if c.logger != nil {
		c.logger.Warn("event stream", slog.Any("error", err))
	}
	if h.OnError != nil {
		h.OnError(err)
	}
	return err
}
