package apiclient

import (
	"context"
	"log/slog"
	"strings"

	"github.com/propdesk/propdesk/internal/session"
)

// LoginPath is the entry point a guard navigates to after teardown.
const LoginPath = "/login"

// authSentinels are server messages that mean the session is unusable.
var authSentinels = map[string]struct{}{
	"unauthorized":              {},
	"invalid token":             {},
	"missing token":             {},
	"token verification failed": {},
	"jwt malformed":             {},
	"jwt expired":               {},
}

// IsAuthMessage reports whether msg is one of the authentication-failure
// sentinels.
func IsAuthMessage(msg string) bool {
	_, ok := authSentinels[strings.ToLower(strings.TrimSpace(msg))]
	return ok
}

// Navigator performs the redirect side effect.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Guard tears the session down when a call reports an authentication failure.
type Guard struct {
	Sessions  session.Provider
	Navigator Navigator
	LoginPath string
	Logger    *slog.Logger
}

// NewGuard constructs a Guard that redirects to LoginPath.
func NewGuard(sessions session.Provider, nav Navigator, logger *slog.Logger) *Guard {
	return &Guard{Sessions: sessions, Navigator: nav, LoginPath: LoginPath, Logger: logger}
}

// Check returns nil after clearing the session and navigating to the login
// path when res is an authentication failure. Any other result is returned
// unchanged.
func (g *Guard) Check(ctx context.Context, res Result) *Result {
	if g == nil || res.Err == nil || res.Err.Kind != KindAuth {
		return &res
	}
	if g.Sessions != nil {
		if err := g.Sessions.Clear(ctx); err != nil && g.Logger != nil {
			g.Logger.Error("session guard clear", slog.Any("error", err))
		}
	}
	if g.Logger != nil {
		g.Logger.Warn("session expired", slog.String("reason", res.Err.Message))
	}
	if g.Navigator != nil {
		path := g.LoginPath
		if path == "" {
			path = LoginPath
		}
		g.Navigator.Navigate(path)
	}
	return nil
}
