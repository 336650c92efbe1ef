// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics; the
// domain-specific ones name business failures the status alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_transition",
//	  "message": "cannot approve item with status 'scheduled': must be 'review'"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/smm-pipeline/internal/services"
	"github.com/tbourn/smm-pipeline/internal/sysutil"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeCreateFailed      = "create_failed"
	ErrCodeListFailed        = "list_failed"
)

// failService translates a service error into the envelope. fallback is the
// code used for unexpected (5xx) errors.
func failService(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrFeedbackNotFound),
		errors.Is(err, services.ErrPromptVersionNotFound):
		msg := err.Error()
		if ref := sysutil.FirstNonEmpty(c.Param("id"), c.Param("version")); ref != "" {
			msg += ": " + ref
		}
		fail(c, http.StatusNotFound, ErrCodeNotFound, msg)
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusBadRequest, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
