// Command propdesk is the operator console for the PropDesk admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/propdesk/propdesk/cmd/propdesk/cli"
	"github.com/propdesk/propdesk/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("propdesk", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(os.Stderr)
	apiURL := flags.String("api-url", "", "REST API base URL (overrides API_BASE_URL)")
	backend := flags.String("session-backend", "", "session storage: file, redis or memory (overrides SESSION_BACKEND)")
	verbose := flags.BoolP("verbose", "v", false, "log API calls to stderr")
	flags.Usage = func() {
		_, _ = fmt.Fprintln(os.Stderr, "Usage: propdesk [flags] <command> [arguments]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return cli.ExitOK
		}
		return cli.ExitUsage
	}

	if *apiURL != "" {
		_ = os.Setenv("API_BASE_URL", *apiURL)
	}
	if *backend != "" {
		_ = os.Setenv("SESSION_BACKEND", *backend)
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "propdesk: load config: %v\n", err)
		return cli.ExitFailure
	}
	if *verbose {
		cfg.LogLevel = "debug"
	} else if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}
	logger := app.NewLoggerTo(os.Stderr, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr, cfg.PDFRetention)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()

	a, release, err := cli.Wire(ctx, cfg, logger, jobsCLI, cli.Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "propdesk: %v\n", err)
		return cli.ExitFailure
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("session backend close", slog.Any("error", err))
		}
	}()

	return a.Run(ctx, flags.Args())
}
