// Feedback HTTP handlers.
//
// This file exposes REST endpoints for the feedback ledger:
//   - POST /items/{id}/feedback  (record a judgment, Idempotency-Key aware)
//   - GET  /items/{id}/feedback  (history of one item)
//   - GET  /feedback/recent      (latest entries, optional kind filter)
//   - GET  /feedback/stats       (counts and approval rate over a day window)
//
// Recording feedback also forces the item's status: approved and edited move
// it to scheduled, rejected moves it to rejected.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/services"
	"github.com/tbourn/smm-pipeline/internal/utils"
)

const defaultWindowDays = 7

// RecordFeedbackRequest is the JSON payload for a judgment on an item.
//
// Kind must be one of approved, rejected or edited. Rejection fields are kept
// only for rejected feedback and EditedContent only for edited feedback.
type RecordFeedbackRequest struct {
	Kind             string   `json:"kind" binding:"required" example:"rejected"`
	ConfidenceBefore *float64 `json:"confidence_before,omitempty" example:"0.7"`
	EditedContent    *string  `json:"edited_content,omitempty"`
	RejectionReason  *string  `json:"rejection_reason,omitempty" example:"tone"`
	RejectionDetail  *string  `json:"rejection_detail,omitempty" example:"too salesy"`
	UserID           *string  `json:"user_id,omitempty" example:"editor-1"`
}

// FeedbackListResponse wraps a feedback listing.
type FeedbackListResponse struct {
	Feedback []domain.Feedback `json:"feedback"`
	Total    int64             `json:"total"`
}

// PostFeedback godoc
// @ID          postFeedback
// @Summary     Record feedback on an item
// @Description Appends a judgment and forces the item's status. Supports idempotency via the Idempotency-Key header, scoped per item.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Item ID"  format(uuid)
// @Param       body             body    handlers.RecordFeedbackRequest  true  "Feedback payload"
//
// @Success     201  {object} domain.Feedback
// @Header      201  {string} Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /items/{id}/feedback [post]
func (h *Handlers) PostFeedback(c *gin.Context) {
	var req RecordFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: kind required")
		return
	}
	ctx := c.Request.Context()
	itemID := c.Param("id")
	scope := scopeFeedbackPrefix + itemID

	if rec := h.replayed(c, scope); rec != nil {
		if prev, err := h.feedback.Get(ctx, rec.ResourceID); err == nil {
			replay(c, rec.Status, prev)
			return
		}
	}

	fb, err := h.feedback.Record(ctx, itemID, services.RecordFeedbackInput{
		Kind:             req.Kind,
		ConfidenceBefore: req.ConfidenceBefore,
		EditedContent:    req.EditedContent,
		RejectionReason:  req.RejectionReason,
		RejectionDetail:  req.RejectionDetail,
		UserID:           req.UserID,
	})
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}

	h.remember(c, scope, fb.ID, http.StatusCreated)
	ok(c, http.StatusCreated, fb)
}

// ListItemFeedback godoc
// @ID          listItemFeedback
// @Summary     List feedback for an item
// @Tags        Feedback
// @Produce     json
// @Param       id   path  string  true  "Item ID"  format(uuid)
// @Success     200  {object} handlers.FeedbackListResponse
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /items/{id}/feedback [get]
func (h *Handlers) ListItemFeedback(c *gin.Context) {
	list, err := h.feedback.ListForItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, FeedbackListResponse{Feedback: list, Total: int64(len(list))})
}

// RecentFeedback godoc
// @ID          recentFeedback
// @Summary     List recent feedback
// @Description Newest first. Total counts every entry matching the kind filter.
// @Tags        Feedback
// @Produce     json
// @Param       kind   query  string  false  "Filter by kind"  Enums(approved, rejected, edited)
// @Param       limit  query  int     false  "Max entries"     minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.FeedbackListResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /feedback/recent [get]
func (h *Handlers) RecentFeedback(c *gin.Context) {
	limit, err := utils.ParseInt("limit", c.Query("limit"), services.DefaultRecentLimit)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	list, total, err := h.feedback.ListRecent(c.Request.Context(), c.Query("kind"), limit)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, FeedbackListResponse{Feedback: list, Total: total})
}

// FeedbackStats godoc
// @ID          feedbackStats
// @Summary     Feedback statistics
// @Description Counts per kind and the approval rate over the last N days. The approval rate of an empty window is 0.
// @Tags        Feedback
// @Produce     json
// @Param       days  query  int  false  "Window in days"  minimum(1) maximum(90) default(7)
// @Success     200  {object} services.FeedbackStats
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /feedback/stats [get]
func (h *Handlers) FeedbackStats(c *gin.Context) {
	days, err := utils.ParseInt("days", c.Query("days"), defaultWindowDays)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	st, err := h.feedback.Stats(c.Request.Context(), days)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}
