// Prompt version registry handlers.
//
//   - POST /prompt/create               (register a version, optionally activate)
//   - POST /prompt/activate/{version}   (make one version the only active one)
//   - GET  /prompt/versions             (history, newest first)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/http/middleware"
	"github.com/tbourn/smm-pipeline/internal/services"
	"github.com/tbourn/smm-pipeline/internal/utils"
)

// PromptCreateResponse acknowledges a create call. Prompt is omitted when the
// label already existed.
type PromptCreateResponse struct {
	Status   string                `json:"status" example:"created"`
	Version  string                `json:"version" example:"v1.0.0"`
	IsActive bool                  `json:"is_active"`
	Prompt   *domain.PromptVersion `json:"prompt,omitempty"`
}

// PromptActivateResponse acknowledges an activation.
type PromptActivateResponse struct {
	Status  string `json:"status" example:"activated"`
	Version string `json:"version" example:"v1.0.0"`
	Message string `json:"message"`
}

// PromptVersionsResponse lists the registry.
type PromptVersionsResponse struct {
	Versions []domain.PromptVersion `json:"versions"`
}

// CreatePrompt godoc
// @ID          createPrompt
// @Summary     Register a prompt version
// @Description Creates a version with a SHA-256 content hash (of the content when given, otherwise of the label). Registering an existing label is acknowledged with status "exists" and changes nothing.
// @Tags        Prompts
// @Produce     json
// @Param       version   query  string  true   "Version label"  example(v1.0.0)
// @Param       reason    query  string  false  "Why it was created"  default(Initial version)
// @Param       author    query  string  false  "Author"              default(system)
// @Param       activate  query  bool    false  "Make it the active version"  default(true)
// @Param       content   query  string  false  "Prompt text"
// @Success     201  {object} handlers.PromptCreateResponse
// @Success     200  {object} handlers.PromptCreateResponse "Version already exists"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /prompt/create [post]
func (h *Handlers) CreatePrompt(c *gin.Context) {
	activate := utils.ParseBoolDefault(c.Query("activate"), true)
	in := services.CreatePromptInput{
		Version:  c.Query("version"),
		Reason:   c.Query("reason"),
		Author:   c.Query("author"),
		Activate: &activate,
	}
	if content, ok := c.GetQuery("content"); ok {
		in.Content = &content
	}

	pv, err := h.prompts.Create(c.Request.Context(), in)
	switch {
	case errors.Is(err, services.ErrPromptVersionExists):
		resp := PromptCreateResponse{Status: "exists", Version: in.Version}
		if pv != nil {
			resp.Version = pv.Version
			resp.IsActive = pv.IsActive
		}
		ok(c, http.StatusOK, resp)
		return
	case err != nil:
		failService(c, err, ErrCodeCreateFailed)
		return
	}

	middleware.LoggerFrom(c).Info().
		Str("version", pv.Version).
		Bool("active", pv.IsActive).
		Msg("prompt version created")
	ok(c, http.StatusCreated, PromptCreateResponse{
		Status:   "created",
		Version:  pv.Version,
		IsActive: pv.IsActive,
		Prompt:   pv,
	})
}

// ActivatePrompt godoc
// @ID          activatePrompt
// @Summary     Activate a prompt version
// @Description Deactivates every other version and activates this one in a single transaction.
// @Tags        Prompts
// @Produce     json
// @Param       version  path  string  true  "Version label"
// @Success     200  {object} handlers.PromptActivateResponse
// @Failure     404  {object} handlers.ErrorResponse "Version not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /prompt/activate/{version} [post]
func (h *Handlers) ActivatePrompt(c *gin.Context) {
	pv, err := h.prompts.Activate(c.Request.Context(), c.Param("version"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	middleware.LoggerFrom(c).Info().Str("version", pv.Version).Msg("prompt version activated")
	ok(c, http.StatusOK, PromptActivateResponse{
		Status:  "activated",
		Version: pv.Version,
		Message: fmt.Sprintf("prompt version %s activated", pv.Version),
	})
}

// ListPrompts godoc
// @ID          listPrompts
// @Summary     List prompt versions
// @Tags        Prompts
// @Produce     json
// @Success     200  {object} handlers.PromptVersionsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /prompt/versions [get]
func (h *Handlers) ListPrompts(c *gin.Context) {
	list, err := h.prompts.List(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, PromptVersionsResponse{Versions: list})
}
