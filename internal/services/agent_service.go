// Package services – AgentService
//
// AgentService is the derived-state engine of the agent. It holds no state
// of its own: every view (status, learning insights, health) is a fresh
// projection over the feedback, decision, prompt and learning ledgers.
// Rollback only records intent; it does not revert prompts, rules or
// autonomy itself.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/repo"
)

// AgentStatus is the status view.
type AgentStatus struct {
	AutonomyLevel             int                 `json:"autonomy_level"`
	AutonomyName              string              `json:"autonomy_name"`
	CircuitBreakerState       domain.BreakerState `json:"circuit_breaker_state"`
	PromptVersion             string              `json:"prompt_version"`
	GenerationsSinceReflexion int64               `json:"generations_since_reflexion"`
	ApprovalRate7d            float64             `json:"approval_rate_7d"`
	LastAction                *string             `json:"last_action"`
}

// LearningInsights is the insights view over a day window.
type LearningInsights struct {
	ApprovalRate           float64          `json:"approval_rate"`
	TotalFeedback          int64            `json:"total_feedback"`
	CommonRejectionReasons map[string]int64 `json:"common_rejection_reasons"`
	SuccessfulPatterns     []string         `json:"successful_patterns"`
	ImprovementSuggestions []string         `json:"improvement_suggestions"`
	PromptVersion          string           `json:"prompt_version"`
}

// HealthMetrics are the measurements behind the traffic light.
type HealthMetrics struct {
	// ApprovalRate7d is nil when the window holds fewer than
	// domain.HealthMinFeedback entries.
	ApprovalRate7d  *float64 `json:"approval_rate_7d"`
	FailureRate10   float64  `json:"failure_rate_10"`
	TotalFeedback7d int64    `json:"total_feedback_7d"`
	ActivePrompt    *string  `json:"active_prompt"`
}

// AgentHealth is the health view.
type AgentHealth struct {
	Status  domain.TrafficLight `json:"status"`
	Message string              `json:"message"`
	Issues  []string            `json:"issues"`
	Metrics HealthMetrics       `json:"metrics"`
}

// RollbackAck acknowledges a recorded rollback request.
type RollbackAck struct {
	Status  string `json:"status"`
	Level   int    `json:"level"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// AgentService implements the derived-state engine.
type AgentService struct {
	DB *gorm.DB

	// Now is the clock used for windows; nil means time.Now.
	Now func() time.Time
}

// NewAgentService constructs an AgentService.
func NewAgentService(db *gorm.DB) *AgentService { return &AgentService{DB: db} }

func agentTracer() trace.Tracer { return otel.Tracer("services/AgentService") }

func (s *AgentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// activeLabel returns the active prompt label, or nil when none is active.
func activeLabel(ctx context.Context, db *gorm.DB) (*string, error) {
	pv, err := repo.ActivePromptVersion(ctx, db)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pv.Version, nil
}

func labelOrDefault(l *string) string {
	if l == nil {
		return domain.DefaultPromptVersion
	}
	return *l
}

// Status builds the status view.
func (s *AgentService) Status(ctx context.Context) (*AgentStatus, error) {
	ctx, span := agentTracer().Start(ctx, "Status")
	defer span.End()

	out := &AgentStatus{AutonomyLevel: domain.DefaultAutonomyLevel}
	last, err := repo.LatestDecision(ctx, s.DB)
	switch {
	case err == nil:
		out.AutonomyLevel = last.AutonomyLevel
		action := string(last.Kind)
		out.LastAction = &action
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}
	out.AutonomyName = domain.AutonomyName(out.AutonomyLevel)

	label, err := activeLabel(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out.PromptVersion = labelOrDefault(label)

	c, err := repo.FeedbackCountsSince(ctx, s.DB, s.now().Add(-domain.StatusWindow))
	if err != nil {
		return nil, err
	}
	out.ApprovalRate7d = domain.Round3(domain.ApprovalRate(c))

	var since *time.Time
	reflexion, err := repo.LatestLearningEvent(ctx, s.DB, domain.LearningReflexion)
	switch {
	case err == nil:
		since = &reflexion.CreatedAt
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}
	out.GenerationsSinceReflexion, err = repo.CountDecisionsSince(ctx, s.DB, domain.DecisionGenerate, since)
	if err != nil {
		return nil, err
	}

	recent, err := repo.RecentDecisions(ctx, s.DB, "", domain.BreakerSampleSize)
	if err != nil {
		return nil, err
	}
	out.CircuitBreakerState = domain.EvaluateBreaker(recent)

	s.observe(out.CircuitBreakerState, out.ApprovalRate7d)
	span.SetAttributes(attribute.String("breaker", string(out.CircuitBreakerState)))
	return out, nil
}

// Insights builds the learning insights view over the last days days.
func (s *AgentService) Insights(ctx context.Context, days int) (*LearningInsights, error) {
	ctx, span := agentTracer().Start(ctx, "Insights", trace.WithAttributes(attribute.Int("days", days)))
	defer span.End()

	if err := checkWindow(days); err != nil {
		return nil, err
	}
	label, err := activeLabel(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	since := windowStart(s.now(), days)
	c, err := repo.FeedbackCountsSince(ctx, s.DB, since)
	if err != nil {
		return nil, err
	}
	out := &LearningInsights{
		TotalFeedback:          c.Total(),
		CommonRejectionReasons: map[string]int64{},
		SuccessfulPatterns:     []string{},
		PromptVersion:          labelOrDefault(label),
	}
	if c.Total() == 0 {
		out.ImprovementSuggestions = domain.Suggestions(c, nil)
		return out, nil
	}
	reasons, err := repo.RejectionReasonsSince(ctx, s.DB, since)
	if err != nil {
		return nil, err
	}
	out.ApprovalRate = domain.Round3(domain.ApprovalRate(c))
	out.CommonRejectionReasons = reasons
	out.ImprovementSuggestions = domain.Suggestions(c, reasons)
	return out, nil
}

// Health builds the traffic-light view.
func (s *AgentService) Health(ctx context.Context) (*AgentHealth, error) {
	ctx, span := agentTracer().Start(ctx, "Health")
	defer span.End()

	c, err := repo.FeedbackCountsSince(ctx, s.DB, s.now().Add(-domain.StatusWindow))
	if err != nil {
		return nil, err
	}
	rate, defined := domain.HealthApprovalRate(c)

	recent, err := repo.RecentDecisions(ctx, s.DB, "", domain.BreakerSampleSize)
	if err != nil {
		return nil, err
	}
	failureRate := domain.FailureRate(recent)

	label, err := activeLabel(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	v := domain.EvaluateHealth(domain.HealthInput{
		ApprovalRate:    rate,
		ApprovalDefined: defined,
		FailureRate:     failureRate,
		HasActivePrompt: label != nil,
	})
	out := &AgentHealth{
		Status:  v.Status,
		Message: v.Message,
		Issues:  v.Issues,
		Metrics: HealthMetrics{
			FailureRate10:   domain.Round3(failureRate),
			TotalFeedback7d: c.Total(),
			ActivePrompt:    label,
		},
	}
	if defined {
		r := domain.Round3(rate)
		out.Metrics.ApprovalRate7d = &r
	}

	s.observe(domain.EvaluateBreaker(recent), domain.ApprovalRate(c))
	span.SetAttributes(attribute.String("health", string(v.Status)))
	return out, nil
}

// Rollback records a rollback request at level (1 prompt, 2 learned rules,
// 3 autonomy, 4 full baseline). One learning event and one pending rollback
// decision are written in a single transaction; nothing else changes.
func (s *AgentService) Rollback(ctx context.Context, level int, reason string) (*RollbackAck, error) {
	ctx, span := agentTracer().Start(ctx, "Rollback", trace.WithAttributes(attribute.Int("level", level)))
	defer span.End()

	if level < 1 || level > 4 {
		return nil, invalid("level must be between 1 and 4")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason must not be empty")
	}
	input, err := json.Marshal(struct {
		Level  int    `json:"level"`
		Reason string `json:"reason"`
	}{level, reason})
	if err != nil {
		return nil, err
	}

	pending := domain.OutcomePending
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		label, err := activeLabel(ctx, tx)
		if err != nil {
			return err
		}
		ev := &domain.LearningEvent{
			Kind:                domain.LearningRollback,
			InputData:           string(input),
			Insights:            fmt.Sprintf("Rollback level %d initiated", level),
			Actions:             fmt.Sprintf("rollback_level_%d", level),
			PromptVersionBefore: label,
		}
		if err := repo.CreateLearningEvent(ctx, tx, ev); err != nil {
			return err
		}
		return repo.CreateDecision(ctx, tx, &domain.AgentDecision{
			Kind:          domain.DecisionRollback,
			AutonomyLevel: domain.DefaultAutonomyLevel,
			ActionTaken:   true,
			Reason:        reason,
			Outcome:       &pending,
		})
	})
	if err != nil {
		return nil, err
	}
	decisionsTotal.WithLabelValues(string(domain.DecisionRollback), string(pending)).Inc()

	return &RollbackAck{
		Status:  "rollback_initiated",
		Level:   level,
		Reason:  reason,
		Message: fmt.Sprintf("Rollback level %d initiated. The agent must apply the changes.", level),
	}, nil
}

func (s *AgentService) observe(b domain.BreakerState, rate float64) {
	if b == domain.BreakerOpen {
		breakerOpen.Set(1)
	} else {
		breakerOpen.Set(0)
	}
	approvalRate.Set(rate)
}
