// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for create endpoints. It validates
// an Idempotency-Key request header, asks a lookup whether a completed request
// with the same key exists in the route's scope, and annotates the request
// context so downstream handlers can:
//   - read the normalized key (GetIdempotencyKey)
//   - detect replayed requests (IsReplay)
//   - skip rate limiting when a replay is served (via an internal flag)
//
// Persistence stays behind the IdempotencyLookup function type; scoping stays
// behind IdempotencyScope so this file knows nothing about items or feedback.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey carries the client's idempotency key.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotencyReplayed is set to "true" on responses served from a
	// previously completed request.
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the validated idempotency key stored by
// IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// GetIdempotencyScope returns the scope the key was validated under.
func GetIdempotencyScope(c *gin.Context) string {
	v, _ := c.Get(ctxKeyIdemScope)
	s, _ := v.(string)
	return s
}

// IsReplay reports whether a completed request with the same scope and key
// was found.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation for IdempotencyValidator.
// TTL enforcement belongs to the lookup.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Scope maps a request to its idempotency scope. An empty scope means the
	// route does not take part and the header is ignored.
	Scope IdempotencyScope
}

// IdempotencyScope names the namespace a key lives in for a request, for
// example "items" or "feedback:<item id>".
type IdempotencyScope func(*gin.Context) string

// IdempotencyLookup answers whether a still-valid result exists for
// (scope, key) at now. Errors are ignored by the middleware: a failed lookup
// never blocks normal processing.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (exists bool, err error)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyValidator validates the Idempotency-Key header on scoped
// requests, stashes key and scope in the context and, when lookup reports a
// prior result, marks the request as a replay that bypasses rate limiting.
//
//   - Unscoped request or no header: no-op.
//   - Malformed header: 400 bad_idempotency_key.
//   - Always calls the next handler otherwise; handlers serve the replay.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || opts.Scope == nil {
			c.Next()
			return
		}
		scope := opts.Scope(c)
		if scope == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			if exists, err := lookup(c.Request.Context(), scope, key, time.Now().UTC()); err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			} else if exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
