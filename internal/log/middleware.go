package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or one over slog.Default tagged
// "unknown" when none was attached.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// WithAttrs returns ctx whose logger carries args on every record.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(args...))
}

// Middleware attaches logger, retagged with component, to each request
// context. attrs, when non-nil, adds per-request attributes such as the
// request id.
func Middleware(logger *Logger, component string, attrs func(*http.Request) []any) func(http.Handler) http.Handler {
	base := logger.WithComponent(component)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base
			if attrs != nil {
				if args := attrs(r); len(args) > 0 {
					l = l.With(args...)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger emits the request, gateway and progress records with a
// fixed set of fields so they can be queried across components.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart logs an incoming request at debug level.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
		WithClientIP(clientIP)
	fields[FieldUserAgent] = r.UserAgent()
	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the outcome: info below 400, warn for client errors,
// error for server errors.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)
	sl.logger.Logger.Log(ctx, level, "HTTP request completed", sl.logger.tagged(fields.ToSlice())...)
}

// LogProgressSaved records who changed which activity cell.
func (sl *StructuredLogger) LogProgressSaved(ctx context.Context, email, project, activity, month string) {
	fields := NewFields().
		WithProgress(project, activity, month).
		WithOperation(OpUpdate)
	fields[FieldEmail] = email
	sl.logger.InfoContext(ctx, "Progress saved", fields.ToSlice()...)
}

// LogGatewayCall logs one gateway round trip at debug level, or warn when it failed.
func (sl *StructuredLogger) LogGatewayCall(ctx context.Context, action string, durationMs int64, err error) {
	fields := NewFields().
		WithGatewayAction(action).
		WithError(err)
	fields[FieldDuration] = durationMs

	if err != nil {
		sl.logger.WarnContext(ctx, "Gateway call failed", fields.ToSlice()...)
		return
	}
	sl.logger.DebugContext(ctx, "Gateway call completed", fields.ToSlice()...)
}
