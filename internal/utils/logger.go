package utils

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is the logging facade used by handlers and middleware
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Slog() *slog.Logger
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps a slog.Logger
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s *slogLogger) Slog() *slog.Logger            { return s.l }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

type loggerKey struct{}

const loggerContextKey = "logger"

// WithLogger stores a logger in the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request scoped logger or the fallback
func FromContext(ctx context.Context, fallback Logger) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
			return l
		}
	}
	return fallback
}

// GetLogger returns the logger attached to a gin context by ContextLogger
func GetLogger(c *gin.Context, fallback Logger) Logger {
	if v, ok := c.Get(loggerContextKey); ok {
		if l, ok := v.(Logger); ok {
			return l
		}
	}
	return fallback
}

// ContextLogger attaches a logger carrying the request id to every request
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLogger := logger
		if requestID, ok := c.Get("request_id"); ok {
			reqLogger = logger.With("request_id", requestID)
		}
		c.Set(loggerContextKey, reqLogger)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), reqLogger))
		c.Next()
	}
}

// LoggerMiddleware writes one structured access log line per request
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		l := GetLogger(c, logger)
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID, ok := c.Get("user_id"); ok {
			attrs = append(attrs, "user_id", userID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= 500:
			l.Error("Request completed", attrs...)
		case c.Writer.Status() >= 400:
			l.Warn("Request completed", attrs...)
		default:
			l.Info("Request completed", attrs...)
		}
	}
}
