package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggerContextKey struct{}

var defaultLogger = logrus.New()

// SetLoggerOptions configures the package-level logger.
func SetLoggerOptions(optionsF func(logger *logrus.Logger)) {
	optionsF(defaultLogger)
}

// NewContextWithFields returns a context whose logger carries the given fields
// in addition to any fields already present on the context.
func NewContextWithFields(parent context.Context, fields logrus.Fields) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	entry := For(parent).WithFields(fields)
	return context.WithValue(parent, loggerContextKey{}, entry)
}

// For returns the log entry bound to ctx, or a plain entry on the default
// logger when ctx is nil or carries no entry.
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(defaultLogger)
	}
	if entry, ok := ctx.Value(loggerContextKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(defaultLogger)
}
