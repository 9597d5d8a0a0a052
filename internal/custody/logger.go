package custody

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// ContextWithLogger returns a context carrying log, a request-scoped
// logger (typically already annotated with request_id) that custody
// operations use in place of the Service's default logger for the
// lifetime of that context.
func ContextWithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// loggerFrom returns the context's logger if one was attached via
// ContextWithLogger, falling back to the Service's own logger otherwise.
func (s *Service) loggerFrom(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && log != nil {
		return log
	}
	return s.log
}
