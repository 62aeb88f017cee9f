package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/propdesk/propdesk/internal/app"
	"github.com/propdesk/propdesk/internal/platform/cache"
	"github.com/propdesk/propdesk/internal/session"
)

// OpenBackend returns the session backend selected by SESSION_BACKEND and a
// func releasing it.
func OpenBackend(ctx context.Context, cfg *app.Config) (session.Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.SessionBackend {
	case app.SessionBackendMemory:
		return session.NewMemoryBackend(), noop, nil
	case app.SessionBackendRedis:
		client, err := cache.Connect(ctx, cfg.RedisAddr, 5*time.Second)
		if err != nil {
			return nil, noop, err
		}
		return session.NewRedisBackend(client, cfg.SessionNamespace, cfg.SessionTTL), client.Close, nil
	case app.SessionBackendFile, "":
		path := strings.TrimSpace(cfg.SessionFile)
		if path == "" {
			path = session.FilePath()
		}
		return session.NewFileBackend(path), noop, nil
	}
	return nil, noop, fmt.Errorf("unsupported session backend %q", cfg.SessionBackend)
}
