// Content item HTTP handlers.
//
// This file exposes REST endpoints for content items:
//   - POST   /items                      (create, Idempotency-Key aware)
//   - GET    /items                      (list, filtered and paged, ETag support)
//   - GET    /items/{id}                 (fetch one)
//   - PATCH  /items/{id}                 (privileged field override, incl. status)
//   - DELETE /items/{id}                 (soft delete)
//   - POST   /items/{id}/approve|reject|submit|publish (guarded transitions)
//   - GET    /items/stats/by-status, /items/stats/by-platform
//   - GET    /items/search               (similar-topic lookup)
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/services"
	"github.com/tbourn/smm-pipeline/internal/utils"
)

const (
	defaultPageSize = 20
	defaultSimilarK = 5
)

//
// DTOs
//

// CreateItemRequest is the JSON payload for creating a content item. Status
// always starts at "idea".
type CreateItemRequest struct {
	Title       string     `json:"title" binding:"required" example:"Launch announcement"`
	Content     *string    `json:"content,omitempty" example:"We are live!"`
	Platform    string     `json:"platform,omitempty" example:"linkedin"`
	Author      string     `json:"author,omitempty" example:"editor"`
	ImageURL    *string    `json:"image_url,omitempty"`
	ImagePrompt *string    `json:"image_prompt,omitempty"`
	AIPrompt    *string    `json:"ai_prompt,omitempty"`
	AIModel     *string    `json:"ai_model,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// PatchItemRequest is a partial update. Absent fields are left untouched;
// status is overwritten without transition checks.
type PatchItemRequest struct {
	Title       *string    `json:"title,omitempty"`
	Content     *string    `json:"content,omitempty"`
	Platform    *string    `json:"platform,omitempty"`
	Author      *string    `json:"author,omitempty"`
	Status      *string    `json:"status,omitempty" example:"review"`
	ImageURL    *string    `json:"image_url,omitempty"`
	ImagePrompt *string    `json:"image_prompt,omitempty"`
	AIPrompt    *string    `json:"ai_prompt,omitempty"`
	AIModel     *string    `json:"ai_model,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Pagination carries paging metadata for list responses.
type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

// ListItemsResponse wraps a page of items.
type ListItemsResponse struct {
	Items      []domain.ContentItem `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

// SimilarItemsResponse lists search hits, best first.
type SimilarItemsResponse struct {
	Query string                 `json:"query"`
	Items []services.SimilarItem `json:"items"`
}

//
// Handlers
//

// CreateItem godoc
// @ID          createItem
// @Summary     Create a content item
// @Description Creates an item in status "idea". Supports idempotency via the Idempotency-Key header (same key → same item).
// @Tags        Items
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateItemRequest  true  "Item payload"
//
// @Success     201  {object}  domain.ContentItem
// @Header      201  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /items [post]
func (h *Handlers) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: title required")
		return
	}
	ctx := c.Request.Context()

	if rec := h.replayed(c, scopeItems); rec != nil {
		if prev, err := h.items.Get(ctx, rec.ResourceID); err == nil {
			replay(c, rec.Status, prev)
			return
		}
	}

	it, err := h.items.Create(ctx, services.CreateItemInput{
		Title:       req.Title,
		Content:     req.Content,
		Platform:    req.Platform,
		Author:      req.Author,
		ImageURL:    req.ImageURL,
		ImagePrompt: req.ImagePrompt,
		AIPrompt:    req.AIPrompt,
		AIModel:     req.AIModel,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}

	h.remember(c, scopeItems, it.ID, http.StatusCreated)
	ok(c, http.StatusCreated, it)
}

// ListItems godoc
// @ID          listItems
// @Summary     List content items
// @Description Returns a page of items, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Items
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       status         query   string  false "Filter by status"    Enums(idea, draft, review, scheduled, published, rejected)
// @Param       platform       query   string  false "Filter by platform"  Enums(telegram, linkedin, vk, twitter)
// @Param       limit          query   int     false "Page size"           minimum(1) maximum(100) default(20)
// @Param       offset         query   int     false "Rows to skip"        minimum(0) default(0)
//
// @Success     200  {object} handlers.ListItemsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /items [get]
func (h *Handlers) ListItems(c *gin.Context) {
	ctx := c.Request.Context()

	limit, err := utils.ParseInt("limit", c.Query("limit"), defaultPageSize)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	offset, err := utils.ParseInt("offset", c.Query("offset"), 0)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	in := services.ListItemsInput{
		Status:   c.Query("status"),
		Platform: c.Query("platform"),
		Limit:    limit,
		Offset:   offset,
	}

	// ETag pre-check (best effort).
	f, err := h.items.Filter(in.Status, in.Platform)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if count, maxTS, err := h.items.Stats(ctx, f); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixMilli()
		}
		etag := fmt.Sprintf(`W/"items:%s:%s:%d:%d:%d:%d"`, f.Status, f.Platform, limit, offset, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.items.List(ctx, in)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListItemsResponse{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasNext: int64(offset+len(items)) < total,
		},
	})
}

// GetItem godoc
// @ID          getItem
// @Summary     Get a content item
// @Tags        Items
// @Produce     json
// @Param       id   path  string  true  "Item ID"  format(uuid)
// @Success     200  {object} domain.ContentItem
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /items/{id} [get]
func (h *Handlers) GetItem(c *gin.Context) {
	it, err := h.items.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, it)
}

// PatchItem godoc
// @ID          patchItem
// @Summary     Override item fields
// @Description Privileged partial update. Setting status here bypasses the transition rules.
// @Tags        Items
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Item ID"  format(uuid)
// @Param       body  body  handlers.PatchItemRequest  true  "Fields to overwrite"
// @Success     200  {object} domain.ContentItem
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /items/{id} [patch]
func (h *Handlers) PatchItem(c *gin.Context) {
	var req PatchItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	it, err := h.items.AdminOverride(c.Request.Context(), c.Param("id"), services.ItemPatch{
		Title:       req.Title,
		Content:     req.Content,
		Platform:    req.Platform,
		Author:      req.Author,
		Status:      req.Status,
		ImageURL:    req.ImageURL,
		ImagePrompt: req.ImagePrompt,
		AIPrompt:    req.AIPrompt,
		AIModel:     req.AIModel,
		ScheduledAt: req.ScheduledAt,
		PublishedAt: req.PublishedAt,
	})
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, it)
}

// DeleteItem godoc
// @ID          deleteItem
// @Summary     Delete a content item
// @Description Soft-deletes the item. Its feedback history is kept.
// @Tags        Items
// @Param       id   path  string  true  "Item ID"  format(uuid)
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /items/{id} [delete]
func (h *Handlers) DeleteItem(c *gin.Context) {
	if err := h.items.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// transition runs one guarded status change for the :id item.
func (h *Handlers) transition(c *gin.Context, fn func(context.Context, string) (*domain.ContentItem, error)) {
	it, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, it)
}

// ApproveItem godoc
// @ID          approveItem
// @Summary     Approve an item
// @Description Moves an item from review to scheduled. Any other status is rejected with invalid_transition.
// @Tags        Items
// @Produce     json
// @Param       id   path  string  true  "Item ID"  format(uuid)
// @Success     200  {object} domain.ContentItem
// @Failure     400  {object} handlers.ErrorResponse "Invalid transition"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Router      /items/{id}/approve [post]
func (h *Handlers) ApproveItem(c *gin.Context) { h.transition(c, h.items.Approve) }

// RejectItem godoc
// @ID          rejectItem
// @Summary     Reject an item
// @Description Moves an item to rejected from any status.
// @Tags        Items
// @Produce     json
// @Param       id   path  string  true  "Item ID"  format(uuid)
// @Success     200  {object} domain.ContentItem
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Router      /items/{id}/reject [post]
func (h *Handlers) RejectItem(c *gin.Context) { h.transition(c, h.items.Reject) }

// SubmitItem godoc
// @ID          submitItem
// @Summary     Submit an item for review
// @Description Moves an item from idea or draft to review.
// @Tags        Items
// @Produce     json
// @Param       id   path  string  true  "Item ID"  format(uuid)
// @Success     200  {object} domain.ContentItem
// @Failure     400  {object} handlers.ErrorResponse "Invalid transition"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Router      /items/{id}/submit [post]
func (h *Handlers) SubmitItem(c *gin.Context) { h.transition(c, h.items.Submit) }

// PublishItem godoc
// @ID          publishItem
// @Summary     Mark an item published
// @Description Moves an item from scheduled to published and stamps published_at.
// @Tags        Items
// @Produce     json
// @Param       id   path  string  true  "Item ID"  format(uuid)
// @Success     200  {object} domain.ContentItem
// @Failure     400  {object} handlers.ErrorResponse "Invalid transition"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Router      /items/{id}/publish [post]
func (h *Handlers) PublishItem(c *gin.Context) { h.transition(c, h.items.Publish) }

// ItemStatsByStatus godoc
// @ID          itemStatsByStatus
// @Summary     Count items per status
// @Tags        Items
// @Produce     json
// @Success     200  {object} map[string]int64
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /items/stats/by-status [get]
func (h *Handlers) ItemStatsByStatus(c *gin.Context) {
	counts, err := h.items.CountsByStatus(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, counts)
}

// ItemStatsByPlatform godoc
// @ID          itemStatsByPlatform
// @Summary     Count items per platform
// @Tags        Items
// @Produce     json
// @Success     200  {object} map[string]int64
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /items/stats/by-platform [get]
func (h *Handlers) ItemStatsByPlatform(c *gin.Context) {
	counts, err := h.items.CountsByPlatform(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, counts)
}

// SearchItems godoc
// @ID          searchItems
// @Summary     Find items on a similar topic
// @Description Ranks live items by token overlap with q. Used as a duplicate-topic check before drafting.
// @Tags        Items
// @Produce     json
// @Param       q  query  string  true   "Topic text"
// @Param       k  query  int     false  "Max hits"  minimum(1) maximum(100) default(5)
// @Success     200  {object} handlers.SimilarItemsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /items/search [get]
func (h *Handlers) SearchItems(c *gin.Context) {
	k, err := utils.ParseInt("k", c.Query("k"), defaultSimilarK)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	q := c.Query("q")
	hits, err := h.items.Similar(c.Request.Context(), q, k)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if hits == nil {
		hits = []services.SimilarItem{}
	}
	ok(c, http.StatusOK, SimilarItemsResponse{Query: q, Items: hits})
}
