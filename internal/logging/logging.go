// Package logging carries a logrus entry and a correlation ID through contexts.
package logging

import (
	"context"

	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationIDKey
)

// HeaderCorrelationID is read from requests and set on outgoing messages.
const HeaderCorrelationID = "Correlation-ID"

func Init(level logrus.Level) {
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
}

// NewCorrelationID generates an ID for work that did not arrive with one.
func NewCorrelationID() string {
	return "gen_" + shortuuid.New()
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, entry)
}

// FromContext returns the request-scoped entry, or the standard logger with the
// context's correlation ID when none was stored.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return entry
	}
	entry := logrus.NewEntry(logrus.StandardLogger())
	if id := CorrelationIDFromContext(ctx); id != "" {
		entry = entry.WithField("correlation_id", id)
	}
	return entry
}
