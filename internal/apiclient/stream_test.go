package apiclient_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/propdesk/internal/apiclient"
)

func TestStreamParsesJSONWithTextFallback(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": keepalive\n\n")
		_, _ = io.WriteString(w, "event: task.moved\nid: 7\ndata: {\"id\":\"t1\",\"status\":\"done\"}\n\n")
		_, _ = io.WriteString(w, "data: plain text\ndata: second line\n\n")
		_, _ = io.WriteString(w, "data: 42")
	}, true)

	var (
		opened bool
		events []apiclient.Event
	)
	err := f.client.Stream(context.Background(), "/events", apiclient.StreamHandlers{
		OnOpen:    func(*http.Response) { opened = true },
		OnMessage: func(ev apiclient.Event) { events = append(events, ev) },
		OnError:   func(err error) { t.Errorf("unexpected error: %v", err) },
	})
	require.NoError(t, err)
	assert.True(t, opened)
	require.Len(t, events, 3)

	assert.Equal(t, "task.moved", events[0].Type)
	assert.Equal(t, "7", events[0].ID)
	assert.True(t, events[0].IsJSON())
	assert.JSONEq(t, `{"id":"t1","status":"done"}`, string(events[0].JSON))

	assert.False(t, events[1].IsJSON())
	assert.Equal(t, "plain text\nsecond line", events[1].Text)

	assert.True(t, events[2].IsJSON())
	assert.Equal(t, "42", string(events[2].JSON))
}

func TestStreamAuthFailureEndsSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
	}, true)

	var errs []error
	err := f.client.Stream(context.Background(), "/events", apiclient.StreamHandlers{
		OnError: func(err error) { errs = append(errs, err) },
	})
	assert.ErrorIs(t, err, apiclient.ErrSessionEnded)
	assert.Empty(t, errs)
	assert.Empty(t, f.backend.Keys())
	assert.Equal(t, []string{"/login"}, f.navs)
}

func TestStreamServerErrorGoesToOnError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, strings.Repeat("x", 10))
	}, true)

	var got error
	err := f.client.Stream(context.Background(), "/events", apiclient.StreamHandlers{
		OnError: func(err error) { got = err },
	})
	require.Error(t, err)
	assert.Equal(t, err, got)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiclient.KindServer, apiErr.Kind)
	assert.Len(t, f.backend.Keys(), 3)
}
