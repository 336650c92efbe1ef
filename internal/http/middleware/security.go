// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, a hardening middleware that attaches a
// conservative set of HTTP security headers suitable for JSON APIs running
// behind a reverse proxy. HSTS is opt-in and only applied to HTTPS requests.
// No CSP is sent since the API never serves HTML outside the Swagger UI.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures HTTP security headers emitted by SecurityHeaders.
//
// EnableHSTS controls whether to emit Strict-Transport-Security for HTTPS
// requests (never for plain HTTP). Only enable when traffic is HTTPS
// end-to-end (including between proxy and app).
//
// HSTSMaxAge is the lifetime for HSTS. Common values are 15552000 (180 days)
// or 31536000 (1 year). Defaults to 180 days if not set (> 0 enforced).
//
// NoStore, when true, adds Cache-Control: no-store (plus legacy Pragma/Expires)
// to prevent caching of sensitive API responses.
//
// EnablePolicy controls whether modern browser feature policies are sent
// (Permissions-Policy and X-Permitted-Cross-Domain-Policies). They have effect
// only in user agents (browsers) and are harmless for non-browser clients.
type SecurityOptions struct {
	EnableHSTS   bool          // set true only when traffic is HTTPS end-to-end
	HSTSMaxAge   time.Duration // e.g., 180 * 24h
	NoStore      bool          // add Cache-Control: no-store
	EnablePolicy bool          // include Permissions-Policy, etc.
}

// exposedHeaders are response headers browser clients need to read: the
// correlation ID, the list ETag and the idempotent-replay marker.
var exposedHeaders = []string{HeaderRequestID, "ETag", HeaderIdempotencyReplayed}

// SecurityHeaders returns a Gin middleware that adds a set of conservative
// HTTP security headers to each response.
//
//   - Always: X-Content-Type-Options: nosniff, X-Frame-Options: DENY,
//     Referrer-Policy: no-referrer.
//   - EnablePolicy: Permissions-Policy and X-Permitted-Cross-Domain-Policies.
//   - NoStore: Cache-Control: no-store, Pragma: no-cache, Expires: 0.
//   - EnableHSTS on HTTPS requests: Strict-Transport-Security.
//
// It also merges exposedHeaders into Access-Control-Expose-Headers without
// duplicating entries that are already listed.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		const hdr = "Access-Control-Expose-Headers"
		h.Set(hdr, mergeHeaderList(h.Get(hdr), exposedHeaders))

		c.Next()
	}
}

// mergeHeaderList appends each of add to the comma-separated list cur unless
// it is already present (case-insensitive).
func mergeHeaderList(cur string, add []string) string {
	seen := map[string]struct{}{}
	for _, p := range strings.Split(cur, ",") {
		if p = strings.TrimSpace(p); p != "" {
			seen[strings.ToLower(p)] = struct{}{}
		}
	}
	out := strings.TrimSpace(cur)
	for _, a := range add {
		if _, ok := seen[strings.ToLower(a)]; ok {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += a
	}
	return out
}

// isHTTPS reports whether the incoming request used HTTPS either directly
// (r.TLS != nil) or via a reverse proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
