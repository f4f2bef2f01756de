package sentryutil

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pasaporte-animal/go-pasaporte/service/logger"
)

const flushTimeout = 2 * time.Second

// ReportError sends err to sentry on the hub bound to ctx, falling back to the
// current hub. No-op when sentry was never initialized.
func ReportError(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub == nil {
		return
	}
	hub.CaptureException(err)
}

// RecoverAndRaise reports a panic to sentry and re-panics so the process still
// crashes loudly. Meant to be deferred at goroutine entry points.
func RecoverAndRaise(ctx context.Context) {
	if r := recover(); r != nil {
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		if hub != nil {
			hub.Recover(r)
			hub.Flush(flushTimeout)
		}
		logger.For(ctx).Errorf("recovered from panic: %v", r)
		panic(r)
	}
}
