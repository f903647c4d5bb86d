package middleware

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// probePaths are logged on their first success and on every failure only.
var probePaths = []string{"/healthz", "/readyz"}

// RequestLog returns Echo middleware that logs requests with structured fields.
// It generates a request ID if none is provided and propagates it through
// the response header and echo context. Probe successes after the first are
// not logged; failed probes are logged at WARN.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	probeSeen := make(map[string]*atomic.Bool, len(probePaths))
	for _, p := range probePaths {
		probeSeen[p] = &atomic.Bool{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqID := req.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set(requestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			path := req.URL.Path
			status := c.Response().Status
			level := slog.LevelInfo

			if seen, probe := probeSeen[path]; probe {
				if status >= 200 && status < 300 {
					if seen.Swap(true) {
						return err
					}
				} else {
					level = slog.LevelWarn
				}
			}

			log.LogAttrs(req.Context(), level, "request",
				slog.String("method", req.Method),
				slog.String("path", path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", reqID),
			)

			return err
		}
	}
}

// RequestID returns the request ID stored by RequestLog, if any.
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}
