package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/propdesk/propdesk/internal/apiclient"
)

type eventLine struct {
	Type string          `json:"type,omitempty"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
	Text string          `json:"text,omitempty"`
}

func (a *App) events(ctx context.Context, args []string) int {
	fs := a.flagSet("events")
	limit := fs.Int("count", 0, "stop after N events (0 follows until interrupted)")
	if code, ok := a.parse(fs, args); !ok {
		return code
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	enc := json.NewEncoder(a.stdout)
	seen := 0
	err := a.svc.Events.Subscribe(ctx, apiclient.StreamHandlers{
		OnOpen: func(*http.Response) {
			_, _ = fmt.Fprintln(a.stderr, "listening for events")
		},
		OnMessage: func(ev apiclient.Event) {
			_ = enc.Encode(eventLine{Type: ev.Type, ID: ev.ID, Data: ev.JSON, Text: ev.Text})
			seen++
			if *limit > 0 && seen >= *limit {
				cancel()
			}
		},
	})
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, apiclient.ErrSessionEnded):
		return ExitSessionEnd
	case errors.Is(err, context.Canceled) && *limit > 0 && seen >= *limit:
		return ExitOK
	}
	return a.fail("events", err)
}
