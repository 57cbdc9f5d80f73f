package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestLogger logs every request with its status and duration.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("remote_addr", c.RealIP()),
				zap.Int("status_code", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			}
			if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
				fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
			}
			if c.Response().Status >= 500 {
				logger.Warn("completed HTTP request", fields...)
			} else {
				logger.Info("completed HTTP request", fields...)
			}
			return nil
		}
	}
}

// Recover turns panics into 500 responses and logs them.
func Recover(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered",
						zap.Any("error", r),
						zap.String("method", c.Request().Method),
						zap.String("path", c.Request().URL.Path),
					)
					err = echo.ErrInternalServerError
				}
			}()
			return next(c)
		}
	}
}
