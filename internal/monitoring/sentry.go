// Package monitoring reports failures to Sentry when a DSN is configured.
package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

const flushTimeout = 2 * time.Second

var enabled bool

// Init configures the Sentry client. An empty DSN leaves reporting disabled.
// The returned func flushes buffered events and should run on shutdown.
func Init(dsn, environment, release string) (func(), error) {
	if dsn == "" {
		log.Debug().Msg("Sentry DSN not set, error monitoring disabled")
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return func() {}, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	enabled = true
	log.Info().Str("environment", environment).Msg("Sentry error monitoring enabled")

	return func() {
		sentry.Flush(flushTimeout)
	}, nil
}

// Enabled reports whether Init configured a client
func Enabled() bool {
	return enabled
}

// CaptureError sends err to Sentry tagged with the given fields
func CaptureError(err error, tags map[string]string) {
	if err == nil || !enabled {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
