package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/app"
	"github.com/propdesk/propdesk/internal/rbac"
	"github.com/propdesk/propdesk/internal/services"
	"github.com/propdesk/propdesk/internal/session"
)

// Streams are the process streams handed to the App.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Wire assembles the session store, checker, guarded API client and services
// from cfg. The returned func releases the session backend. jobs may be nil.
func Wire(ctx context.Context, cfg *app.Config, logger *slog.Logger, jobs JobQueue, streams Streams) (*App, func() error, error) {
	backend, release, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, release, err
	}
	store := session.NewStore(backend)
	checker := rbac.NewChecker(store, logger)

	stderr := streams.Stderr
	nav := apiclient.NavigatorFunc(func(path string) {
		if stderr != nil {
			_, _ = fmt.Fprintln(stderr, SessionExpiredMessage)
		}
		logger.Debug("navigate", slog.String("path", path))
	})
	client, err := apiclient.New(apiclient.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Tokens:  store,
		Guard:   apiclient.NewGuard(store, nav, logger),
		Logger:  logger,
	})
	if err != nil {
		_ = release()
		return nil, func() error { return nil }, err
	}

	svc := services.New(services.Deps{Client: client, Checker: checker, Sessions: store, Logger: logger})
	a := NewApp(Deps{
		Services: svc,
		Checker:  checker,
		Jobs:     jobs,
		Stdin:    streams.Stdin,
		Stdout:   streams.Stdout,
		Stderr:   streams.Stderr,
	})
	return a, release, nil
}
