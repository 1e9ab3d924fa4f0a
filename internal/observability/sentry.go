package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type SentryConfig struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
}

// InitSentry configures the global sentry hub. It returns a flush function
// that is safe to call when sentry is disabled.
func InitSentry(cfg SentryConfig) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		EnableLogs:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}
