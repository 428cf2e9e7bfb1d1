package log

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware adds a logger carrying the chi request id to the request context.
// It must run after middleware.RequestID.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				l = logger.With(FieldRequestID, reqID)
			}
			ctx := context.WithValue(r.Context(), LoggerContextKey, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context. Without one it
// falls back to the default logger, still tagged with the chi request id.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	l := &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		l = l.With(FieldRequestID, reqID)
	}
	return l
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithRequestID(middleware.GetReqID(ctx)).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogSubmission logs the outcome of one record submission.
func (sl *StructuredLogger) LogSubmission(ctx context.Context, kind string, accepted bool, httpStatus, attempts int, remoteID string, err error) {
	fields := NewFields().
		WithSubmission(kind, httpStatus, attempts, remoteID).
		WithRequestID(middleware.GetReqID(ctx)).
		WithOperation(OpSubmit).
		WithComponent(ComponentRecord).
		WithError(err)
	fields[FieldSuccess] = accepted

	if accepted {
		sl.logger.Logger.InfoContext(ctx, "Record submitted", fields.ToSlice()...)
		return
	}
	sl.logger.Logger.WarnContext(ctx, "Record submission failed", fields.ToSlice()...)
}

