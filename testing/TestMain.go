// Package testing flips the binaries into test mode for any test binary that
// links it, so cmd packages never dial Redis, Gotenberg or the REST API.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"

	"github.com/propdesk/propdesk/internal/app"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(app.TestModeEnv, "1")
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
		if os.Getenv("SESSION_BACKEND") == "" {
			_ = os.Setenv("SESSION_BACKEND", app.SessionBackendMemory)
		}
		app.RefreshTestMode()
	})
}

func init() {
	ensureTestMode()
}

// TestMain is reused by cmd packages through a blank import.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
