package eventlog

import (
	"context"

	"go.uber.org/zap"
)

// Severity classifies logged events.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Logger records business events emitted by services. Calls are
// fire-and-forget: implementations must never fail the operation that
// emitted the event.
type Logger interface {
	Log(ctx context.Context, message, category string, fields map[string]any, severity Severity, err error)
}

type zapEventLogger struct {
	logger *zap.Logger
}

// NewZapLogger adapts a zap.Logger to the event-logging contract.
func NewZapLogger(logger *zap.Logger) Logger {
	return &zapEventLogger{logger: logger}
}

func (l *zapEventLogger) Log(_ context.Context, message, category string, fields map[string]any, severity Severity, err error) {
	zapFields := make([]zap.Field, 0, len(fields)+2)
	zapFields = append(zapFields, zap.String("category", category))
	for key, value := range fields {
		zapFields = append(zapFields, zap.Any(key, value))
	}
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}

	switch severity {
	case SeverityWarning:
		l.logger.Warn(message, zapFields...)
	case SeverityError:
		l.logger.Error(message, zapFields...)
	default:
		l.logger.Info(message, zapFields...)
	}
}

type nopLogger struct{}

// NewNop returns a logger that discards all events.
func NewNop() Logger {
	return nopLogger{}
}

func (nopLogger) Log(context.Context, string, string, map[string]any, Severity, error) {}
