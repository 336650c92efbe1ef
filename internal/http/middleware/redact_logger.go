// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger installed when
// LOG_REDACT is on. It scrubs obvious PII from request metadata before
// emitting logs and never logs request or response bodies, so post content
// and edited drafts stay out of the log stream.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RequestID())
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Api-Key"},
//	}))
//
// Security note: this middleware reduces but does not eliminate the risk of
// sensitive data leaking to logs.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders specifies extra HTTP header names whose values will be fully
// replaced with "[REDACTED]". Matching is case-insensitive and merged with
// the built-in sensitive headers (Authorization, Cookie, Set-Cookie and
// Idempotency-Key).
type RedactOptions struct {
	MaskHeaders []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only so hex segments of UUIDs never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// Redact replaces UUIDs, email addresses and phone numbers in s with
// placeholders. UUIDs go first because the phone pattern is the loosest.
func Redact(s string) string {
	if s == "" {
		return s
	}
	out := uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
}

// RedactingLogger returns a Gin middleware that logs HTTP requests and
// responses with sensitive values scrubbed. Like Logger it attaches the
// request-scoped logger read by LoggerFrom.
//
// Severity: info by default, warn for 4xx, error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization":   {},
		"cookie":          {},
		"set-cookie":      {},
		"idempotency-key": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		l := attachLogger(c)

		safeQuery := Redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = Redact(strings.Join(vv, ", "))
		}

		c.Next()

		reqID := RequestIDFrom(c)
		if reqID == "" {
			reqID = c.GetHeader(HeaderRequestID)
		}

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
