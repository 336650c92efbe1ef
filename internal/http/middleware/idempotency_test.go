package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// testScope scopes POST /items and POST /items/:id/feedback.
func testScope(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	switch c.FullPath() {
	case "/items":
		return "items"
	case "/items/:id/feedback":
		return "feedback:" + c.Param("id")
	}
	return ""
}

func TestHelpers_GetIdempotencyKey_Scope_IsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	if GetIdempotencyScope(c) != "" || IsReplay(c) {
		t.Fatalf("expected empty scope and no replay by default")
	}

	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("expected GetIdempotencyKey to be absent for non-string value")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatalf("expected IsReplay=true")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false for non-bool")
	}
}

func TestIdempotencyValidator_NoHeaderOrUnscoped_NoLookup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	lookupCalled := false
	lookup := func(context.Context, string, string, time.Time) (bool, error) {
		lookupCalled = true
		return false, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{Scope: testScope}, lookup))
	r.POST("/items", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key should not be present when header missing")
		}
		c.Status(http.StatusNoContent)
	})
	r.POST("/items/:id/approve", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("unscoped routes ignore the header")
		}
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/items", nil))

	req := httptest.NewRequest(http.MethodPost, "/items/abc/approve", nil)
	req.Header.Set(HeaderIdempotencyKey, "!!not valid!!")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("unscoped route should pass through, got %d", w.Code)
	}
	if lookupCalled {
		t.Fatalf("lookup should not be called")
	}
}

func TestIdempotencyValidator_InvalidKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"too long", IdempotencyOptions{MaxLen: 5, Scope: testScope}, "abcdef"},
		{"default max", IdempotencyOptions{Scope: testScope}, strings.Repeat("k", 201)},
		{"pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`), Scope: testScope}, "abc123"},
		{"space", IdempotencyOptions{Scope: testScope}, "a b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(IdempotencyValidator(tc.opts, nil))
			r.POST("/items", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/items", nil)
			req.Header.Set(HeaderIdempotencyKey, tc.key)
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body["code"] != "bad_idempotency_key" {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}

func TestIdempotencyValidator_LookupMissHitAndError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type seen struct{ scope, key string }
	run := func(t *testing.T, path string, result bool, lerr error) (seen, bool, bool) {
		t.Helper()
		var got seen
		var replay, bypass bool
		r := gin.New()
		r.Use(IdempotencyValidator(IdempotencyOptions{Scope: testScope},
			func(_ context.Context, scope, key string, now time.Time) (bool, error) {
				if now.IsZero() {
					t.Fatalf("lookup called without a clock")
				}
				got = seen{scope, key}
				return result, lerr
			}))
		h := func(c *gin.Context) {
			replay, bypass = IsReplay(c), IsRateBypass(c)
			if s := GetIdempotencyScope(c); s != got.scope {
				t.Fatalf("stashed scope %q != looked up %q", s, got.scope)
			}
			c.Status(http.StatusOK)
		}
		r.POST("/items", h)
		r.POST("/items/:id/feedback", h)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(HeaderIdempotencyKey, "key-1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		return got, replay, bypass
	}

	got, replay, bypass := run(t, "/items", false, nil)
	if got != (seen{"items", "key-1"}) || replay || bypass {
		t.Fatalf("miss: got=%+v replay=%v bypass=%v", got, replay, bypass)
	}

	got, replay, bypass = run(t, "/items/it-9/feedback", true, nil)
	if got != (seen{"feedback:it-9", "key-1"}) || !replay || !bypass {
		t.Fatalf("hit: got=%+v replay=%v bypass=%v", got, replay, bypass)
	}

	_, replay, bypass = run(t, "/items", true, errors.New("db down"))
	if replay || bypass {
		t.Fatalf("lookup errors must not mark a replay")
	}
}
