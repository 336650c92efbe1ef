package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"plain text":        "plain text",
		"mail a@b.com now":  "mail [REDACTED:email] now",
		"call 555-123-4567": "call [REDACTED:phone]",
		"id 123e4567-e89b-12d3-a456-426614174000": "id [REDACTED:id]",
	}
	for in, want := range cases {
		if got := Redact(in); got != want {
			t.Fatalf("Redact(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/items/:id", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("inside")
		c.String(http.StatusOK, "ok")
	})

	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/items/123?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("Idempotency-Key", "k-123")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set(HeaderRequestID, "rid-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	for _, want := range []string{
		`"level":"info"`,
		`"path":"/items/:id"`,
		`"request_id":"rid-1"`,
		`"message":"inside"`,
		`[REDACTED:email]`,
		`[REDACTED:phone]`,
		`[REDACTED:id]`,
		`"Authorization":"[REDACTED]"`,
		`"Cookie":"[REDACTED]"`,
		`"Idempotency-Key":"[REDACTED]"`,
		`"X-Api-Key":"[REDACTED]"`,
		`"X-Custom":"email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"`,
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected %s in logs, got: %s", want, logs)
		}
	}
	if strings.Contains(logs, "topsecret") || strings.Contains(logs, "a.b+tag@example.com") {
		t.Fatalf("secret leaked into logs: %s", logs)
	}
}

func TestRedactingLogger_WarnAndErrorLevels_RequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	reqWarn := httptest.NewRequest(http.MethodGet, "/warn", nil)
	reqWarn.Header.Set(HeaderRequestID, "rid-warn")
	r.ServeHTTP(httptest.NewRecorder(), reqWarn)

	reqErr := httptest.NewRequest(http.MethodGet, "/error", nil)
	reqErr.Header.Set(HeaderRequestID, "rid-err")
	r.ServeHTTP(httptest.NewRecorder(), reqErr)

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"request_id":"rid-warn"`) {
		t.Fatalf("warn log not found or missing request_id fallback: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"request_id":"rid-err"`) {
		t.Fatalf("error log not found or missing request_id fallback: %s", logs)
	}
}
