// Agent HTTP handlers.
//
// This file exposes the derived agent views and the two agent ledgers:
//   - GET  /agent/status                (autonomy, breaker, prompt, counters)
//   - GET  /agent/health                (GREEN/YELLOW/RED traffic light)
//   - GET  /agent/learning/insights     (rejection reasons and suggestions)
//   - POST /agent/rollback              (record a rollback request)
//   - POST /agent/decisions, GET /agent/decisions/recent
//   - POST /agent/learning/events, GET /agent/learning/events
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/http/middleware"
	"github.com/tbourn/smm-pipeline/internal/services"
	"github.com/tbourn/smm-pipeline/internal/utils"
)

// RecordDecisionRequest is the JSON payload for one agent decision.
type RecordDecisionRequest struct {
	DecisionType  string   `json:"decision_type" binding:"required" example:"generate"`
	AutonomyLevel int      `json:"autonomy_level" binding:"required" example:"2"`
	Confidence    *float64 `json:"confidence,omitempty" example:"0.8"`
	ActionTaken   bool     `json:"action_taken"`
	Reason        string   `json:"reason,omitempty"`
	Outcome       *string  `json:"outcome,omitempty" example:"pending"`
	OutcomeDetail *string  `json:"outcome_detail,omitempty"`
}

// RecordLearningRequest is the JSON payload for one learning event.
type RecordLearningRequest struct {
	EventType           string  `json:"event_type" binding:"required" example:"reflexion"`
	InputData           string  `json:"input_data,omitempty"`
	Insights            string  `json:"insights,omitempty"`
	Actions             string  `json:"actions,omitempty"`
	PromptVersionBefore *string `json:"prompt_version_before,omitempty"`
	PromptVersionAfter  *string `json:"prompt_version_after,omitempty"`
}

// DecisionListResponse wraps recent decisions.
type DecisionListResponse struct {
	Decisions []domain.AgentDecision `json:"decisions"`
}

// LearningEventListResponse wraps learning events.
type LearningEventListResponse struct {
	Events []domain.LearningEvent `json:"events"`
}

// AgentStatus godoc
// @ID          agentStatus
// @Summary     Agent status
// @Description Autonomy level of the latest decision, circuit breaker state, active prompt, generations since the last reflexion and the 7-day approval rate.
// @Tags        Agent
// @Produce     json
// @Success     200  {object} services.AgentStatus
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /agent/status [get]
func (h *Handlers) AgentStatus(c *gin.Context) {
	st, err := h.agent.Status(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}

// LearningInsights godoc
// @ID          learningInsights
// @Summary     Learning insights
// @Tags        Agent
// @Produce     json
// @Param       days  query  int  false  "Window in days"  minimum(1) maximum(90) default(7)
// @Success     200  {object} services.LearningInsights
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /agent/learning/insights [get]
func (h *Handlers) LearningInsights(c *gin.Context) {
	days, err := utils.ParseInt("days", c.Query("days"), defaultWindowDays)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	in, err := h.agent.Insights(c.Request.Context(), days)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, in)
}

// Rollback godoc
// @ID          rollback
// @Summary     Request a rollback
// @Description Records the request as a learning event and a pending rollback decision. Prompts and items are not changed.
// @Tags        Agent
// @Produce     json
// @Param       level   query  int     true  "Rollback level"  minimum(1) maximum(4)
// @Param       reason  query  string  true  "Why the rollback is needed"
// @Success     200  {object} services.RollbackAck
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /agent/rollback [post]
func (h *Handlers) Rollback(c *gin.Context) {
	level, err := utils.ParseInt("level", c.Query("level"), 0)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	reason := c.Query("reason")
	ack, err := h.agent.Rollback(c.Request.Context(), level, reason)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	middleware.LoggerFrom(c).Info().
		Int("level", level).
		Str("reason", reason).
		Msg("rollback requested")
	ok(c, http.StatusOK, ack)
}

// AgentHealth godoc
// @ID          agentHealth
// @Summary     Agent health
// @Description Traffic light over the 7-day approval rate (undefined below 5 samples), the failure rate of the last 10 decisions and the presence of an active prompt.
// @Tags        Agent
// @Produce     json
// @Success     200  {object} services.AgentHealth
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /agent/health [get]
func (h *Handlers) AgentHealth(c *gin.Context) {
	hl, err := h.agent.Health(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, hl)
}

// PostDecision godoc
// @ID          postDecision
// @Summary     Record an agent decision
// @Tags        Agent
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.RecordDecisionRequest  true  "Decision"
// @Success     201  {object} domain.AgentDecision
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /agent/decisions [post]
func (h *Handlers) PostDecision(c *gin.Context) {
	var req RecordDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: decision_type and autonomy_level required")
		return
	}
	d, err := h.decisions.Record(c.Request.Context(), services.RecordDecisionInput{
		Kind:          req.DecisionType,
		AutonomyLevel: req.AutonomyLevel,
		Confidence:    req.Confidence,
		ActionTaken:   req.ActionTaken,
		Reason:        req.Reason,
		Outcome:       req.Outcome,
		OutcomeDetail: req.OutcomeDetail,
	})
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, d)
}

// RecentDecisions godoc
// @ID          recentDecisions
// @Summary     List recent agent decisions
// @Tags        Agent
// @Produce     json
// @Param       decision_type  query  string  false  "Filter by type"  Enums(generate, publish, modify_prompt, rollback)
// @Param       limit          query  int     false  "Max entries"     minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.DecisionListResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /agent/decisions/recent [get]
func (h *Handlers) RecentDecisions(c *gin.Context) {
	limit, err := utils.ParseInt("limit", c.Query("limit"), services.DefaultRecentLimit)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	list, err := h.decisions.Recent(c.Request.Context(), c.Query("decision_type"), limit)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, DecisionListResponse{Decisions: list})
}

// PostLearningEvent godoc
// @ID          postLearningEvent
// @Summary     Record a learning event
// @Description A reflexion event resets the generations-since-reflexion counter.
// @Tags        Agent
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.RecordLearningRequest  true  "Learning event"
// @Success     201  {object} domain.LearningEvent
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /agent/learning/events [post]
func (h *Handlers) PostLearningEvent(c *gin.Context) {
	var req RecordLearningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: event_type required")
		return
	}
	ev, err := h.learning.Record(c.Request.Context(), services.RecordLearningInput{
		Kind:                req.EventType,
		InputData:           req.InputData,
		Insights:            req.Insights,
		Actions:             req.Actions,
		PromptVersionBefore: req.PromptVersionBefore,
		PromptVersionAfter:  req.PromptVersionAfter,
	})
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, ev)
}

// ListLearningEvents godoc
// @ID          listLearningEvents
// @Summary     List learning events
// @Tags        Agent
// @Produce     json
// @Param       kind   query  string  false  "Filter by type"  Enums(reflexion, rule_update, pattern_detected, rollback)
// @Param       limit  query  int     false  "Max entries"     minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.LearningEventListResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /agent/learning/events [get]
func (h *Handlers) ListLearningEvents(c *gin.Context) {
	limit, err := utils.ParseInt("limit", c.Query("limit"), services.DefaultRecentLimit)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	list, err := h.learning.List(c.Request.Context(), c.Query("kind"), limit)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, LearningEventListResponse{Events: list})
}
