package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/http/middleware"
)

// Scenario: create, set review manually, approve, approve again.
func TestItems_ApproveScenario(t *testing.T) {
	r, _ := newServer(t)

	it := createItem(t, r, "Launch announcement")
	if it.Status != domain.StatusIdea || it.Platform != domain.PlatformLinkedIn {
		t.Fatalf("unexpected item: %+v", it)
	}

	w := do(r, http.MethodPatch, "/items/"+it.ID, gin.H{"status": "review"})
	mustStatus(t, w, http.StatusOK)
	if got := decode[domain.ContentItem](t, w); got.Status != domain.StatusReview {
		t.Fatalf("status=%s", got.Status)
	}

	w = do(r, http.MethodPost, "/items/"+it.ID+"/approve", nil)
	mustStatus(t, w, http.StatusOK)
	if got := decode[domain.ContentItem](t, w); got.Status != domain.StatusScheduled {
		t.Fatalf("status=%s", got.Status)
	}

	w = do(r, http.MethodPost, "/items/"+it.ID+"/approve", nil)
	mustStatus(t, w, http.StatusBadRequest)
	er := decode[ErrorResponse](t, w)
	if er.Code != ErrCodeInvalidTransition || !strings.Contains(er.Message, "scheduled") || !strings.Contains(er.Message, "review") {
		t.Fatalf("unexpected error: %+v", er)
	}

	w = do(r, http.MethodGet, "/items/"+it.ID, nil)
	mustStatus(t, w, http.StatusOK)
	if got := decode[domain.ContentItem](t, w); got.Status != domain.StatusScheduled {
		t.Fatalf("status changed to %s", got.Status)
	}
}

func TestItems_CreateValidation(t *testing.T) {
	r, _ := newServer(t)

	for _, body := range []any{
		"{",
		gin.H{"content": "no title"},
		gin.H{"title": "x", "platform": "myspace"},
		gin.H{"title": "   "},
	} {
		w := do(r, http.MethodPost, "/items", body)
		mustStatus(t, w, http.StatusBadRequest)
		if er := decode[ErrorResponse](t, w); er.Code != ErrCodeBadRequest {
			t.Fatalf("body %v: code=%s", body, er.Code)
		}
	}
}

func TestItems_IdempotentCreate(t *testing.T) {
	r, _ := newServer(t)
	body := gin.H{"title": "once"}

	w1 := do(r, http.MethodPost, "/items", body, middleware.HeaderIdempotencyKey, "create-1")
	mustStatus(t, w1, http.StatusCreated)
	first := decode[domain.ContentItem](t, w1)

	w2 := do(r, http.MethodPost, "/items", body, middleware.HeaderIdempotencyKey, "create-1")
	mustStatus(t, w2, http.StatusCreated)
	if w2.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("expected replay header")
	}
	if again := decode[domain.ContentItem](t, w2); again.ID != first.ID {
		t.Fatalf("replay returned %s, want %s", again.ID, first.ID)
	}

	w := do(r, http.MethodGet, "/items", nil)
	mustStatus(t, w, http.StatusOK)
	if list := decode[ListItemsResponse](t, w); list.Pagination.Total != 1 {
		t.Fatalf("total=%d", list.Pagination.Total)
	}

	w = do(r, http.MethodPost, "/items", body, middleware.HeaderIdempotencyKey, "bad key!")
	mustStatus(t, w, http.StatusBadRequest)
}

func TestItems_ListPagingAndETag(t *testing.T) {
	r, _ := newServer(t)
	for _, title := range []string{"a", "b", "c"} {
		createItem(t, r, title)
	}

	w := do(r, http.MethodGet, "/items?limit=2", nil)
	mustStatus(t, w, http.StatusOK)
	page := decode[ListItemsResponse](t, w)
	if len(page.Items) != 2 || page.Pagination.Total != 3 || !page.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", page.Pagination)
	}
	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"items:`) {
		t.Fatalf("etag=%q", etag)
	}

	w = do(r, http.MethodGet, "/items?limit=2", nil, "If-None-Match", etag)
	mustStatus(t, w, http.StatusNotModified)

	// A different page has a different tag.
	w = do(r, http.MethodGet, "/items?limit=2&offset=2", nil, "If-None-Match", etag)
	mustStatus(t, w, http.StatusOK)
	if p := decode[ListItemsResponse](t, w); len(p.Items) != 1 || p.Pagination.HasNext {
		t.Fatalf("unexpected last page: %+v", p.Pagination)
	}

	// A write invalidates the tag.
	createItem(t, r, "d")
	w = do(r, http.MethodGet, "/items?limit=2", nil, "If-None-Match", etag)
	mustStatus(t, w, http.StatusOK)

	w = do(r, http.MethodGet, "/items?status=idea&platform=linkedin", nil)
	mustStatus(t, w, http.StatusOK)
	if p := decode[ListItemsResponse](t, w); p.Pagination.Total != 4 {
		t.Fatalf("filtered total=%d", p.Pagination.Total)
	}

	for _, q := range []string{"limit=abc", "limit=0", "limit=101", "offset=-1", "status=archived", "platform=fax"} {
		mustStatus(t, do(r, http.MethodGet, "/items?"+q, nil), http.StatusBadRequest)
	}
}

func TestItems_NotFoundNamesID(t *testing.T) {
	r, _ := newServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/items/ghost"},
		{http.MethodDelete, "/items/ghost"},
		{http.MethodPost, "/items/ghost/approve"},
		{http.MethodPost, "/items/ghost/reject"},
	} {
		w := do(r, tc.method, tc.path, nil)
		mustStatus(t, w, http.StatusNotFound)
		if er := decode[ErrorResponse](t, w); er.Code != ErrCodeNotFound || !strings.Contains(er.Message, "ghost") {
			t.Fatalf("%s %s: %+v", tc.method, tc.path, er)
		}
	}
	w := do(r, http.MethodPatch, "/items/ghost", gin.H{"title": "x"})
	mustStatus(t, w, http.StatusNotFound)
}

func TestItems_PipelineAndDelete(t *testing.T) {
	r, _ := newServer(t)
	it := createItem(t, r, "pipeline")

	mustStatus(t, do(r, http.MethodPost, "/items/"+it.ID+"/publish", nil), http.StatusBadRequest)
	mustStatus(t, do(r, http.MethodPost, "/items/"+it.ID+"/submit", nil), http.StatusOK)
	mustStatus(t, do(r, http.MethodPost, "/items/"+it.ID+"/approve", nil), http.StatusOK)

	w := do(r, http.MethodPost, "/items/"+it.ID+"/publish", nil)
	mustStatus(t, w, http.StatusOK)
	pub := decode[domain.ContentItem](t, w)
	if pub.Status != domain.StatusPublished || pub.PublishedAt == nil {
		t.Fatalf("unexpected publish result: %+v", pub)
	}

	for i := 0; i < 2; i++ {
		w = do(r, http.MethodPost, "/items/"+it.ID+"/reject", nil)
		mustStatus(t, w, http.StatusOK)
		if got := decode[domain.ContentItem](t, w); got.Status != domain.StatusRejected {
			t.Fatalf("reject #%d: status=%s", i+1, got.Status)
		}
	}

	w = do(r, http.MethodDelete, "/items/"+it.ID, nil)
	mustStatus(t, w, http.StatusNoContent)
	mustStatus(t, do(r, http.MethodGet, "/items/"+it.ID, nil), http.StatusNotFound)
}

func TestItems_PatchValidation(t *testing.T) {
	r, _ := newServer(t)
	it := createItem(t, r, "patch")

	mustStatus(t, do(r, http.MethodPatch, "/items/"+it.ID, "{"), http.StatusBadRequest)
	mustStatus(t, do(r, http.MethodPatch, "/items/"+it.ID, gin.H{"status": "archived"}), http.StatusBadRequest)

	w := do(r, http.MethodPatch, "/items/"+it.ID, gin.H{"content": "new body", "platform": "vk"})
	mustStatus(t, w, http.StatusOK)
	got := decode[domain.ContentItem](t, w)
	if got.Platform != domain.PlatformVK || got.Content == nil || *got.Content != "new body" {
		t.Fatalf("unexpected patch result: %+v", got)
	}
}

func TestItems_StatsAndSearch(t *testing.T) {
	r, _ := newServer(t)
	a := createItem(t, r, "Go generics tips")
	createItem(t, r, "Sourdough bread")

	w := do(r, http.MethodGet, "/items/stats/by-status", nil)
	mustStatus(t, w, http.StatusOK)
	byStatus := decode[map[string]int64](t, w)
	if byStatus["idea"] != 2 || byStatus["published"] != 0 {
		t.Fatalf("by-status=%v", byStatus)
	}

	w = do(r, http.MethodGet, "/items/stats/by-platform", nil)
	mustStatus(t, w, http.StatusOK)
	if byPlatform := decode[map[string]int64](t, w); byPlatform["linkedin"] != 2 {
		t.Fatalf("by-platform=%v", byPlatform)
	}

	w = do(r, http.MethodGet, "/items/search?q=generics+in+go", nil)
	mustStatus(t, w, http.StatusOK)
	res := decode[SimilarItemsResponse](t, w)
	if len(res.Items) != 1 || res.Items[0].Item.ID != a.ID {
		t.Fatalf("unexpected hits: %+v", res.Items)
	}

	w = do(r, http.MethodGet, "/items/search?q=knitting", nil)
	mustStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty list, got %s", w.Body.String())
	}

	mustStatus(t, do(r, http.MethodGet, "/items/search?q=", nil), http.StatusBadRequest)
	mustStatus(t, do(r, http.MethodGet, "/items/search?q=go&k=x", nil), http.StatusBadRequest)
}
