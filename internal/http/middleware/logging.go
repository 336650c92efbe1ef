// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides correlation IDs, the plain structured access logger, a
// panic-safe recovery handler and the accessors handlers use to reach the
// request-scoped logger:
//
//   - RequestID() reuses or mints an X-Request-ID per request.
//   - Logger() emits one access log line per request and attaches a
//     request-scoped zerolog.Logger. RedactingLogger (redact_logger.go) is the
//     PII-scrubbing alternative; the router installs exactly one of them.
//   - Recovery() converts panics into the JSON error envelope.
//   - LoggerFrom() / RequestIDFrom() read the values stored above.
//
// Recommended order: RequestID → Logger or RedactingLogger → Recovery, so
// panics and errors carry the correlation ID.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// loggerKey holds the request-scoped *zerolog.Logger.
	loggerKey = "logger"
	// HeaderRequestID propagates the correlation ID.
	HeaderRequestID = "X-Request-ID"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
	// maxRequestIDLength bounds client-supplied correlation IDs.
	maxRequestIDLength = 128
)

// RequestID attaches (or propagates) a correlation identifier per request.
// A client-supplied X-Request-ID is reused when it is at most 128 bytes;
// otherwise a new UUIDv4 is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation ID of the request, or "".
func RequestIDFrom(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return c.Writer.Header().Get(HeaderRequestID)
}

// routePath prefers the registered route so log and metric labels stay bounded.
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// attachLogger stores a request-scoped logger carrying the correlation ID,
// method and route, and returns it.
func attachLogger(c *gin.Context) *zerolog.Logger {
	l := log.With().
		Str("request_id", RequestIDFrom(c)).
		Str("method", c.Request.Method).
		Str("path", routePath(c)).
		Logger()
	c.Set(loggerKey, &l)
	return &l
}

// Logger writes a structured access log for each request and response.
//
// Level by outcome: error for 5xx or when Gin collected errors, warn for 4xx,
// info otherwise. The item id path parameter is logged when present.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := attachLogger(c)

		c.Next()

		ev := l.With().
			Str("item_id", c.Param("id")).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery intercepts panics, logs a stack trace, and answers with the
// standard JSON error envelope:
//
//	{ "request_id": "...", "code": "internal_error", "message": "internal server error" }
//
// When the response has already been started only the status is set.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := RequestIDFrom(c)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if c.Writer.Written() {
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				c.Header(HeaderRequestID, rid)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": rid,
					"code":       "internal_error",
					"message":    "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or the global logger
// when none was attached. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// truncate returns s unchanged when within max bytes, otherwise it cuts s to
// max bytes and appends an ellipsis. A max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
