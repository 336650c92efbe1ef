// Package services – DecisionService
//
// The agent decision ledger is write-once per entry: there is no update or
// delete path. The newest row carries the autonomy level currently in
// effect and feeds the circuit breaker.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/repo"
)

// DefaultRecentLimit is the page size of "recent" listings when none is given.
const DefaultRecentLimit = 20

// RecordDecisionInput carries one agent decision.
type RecordDecisionInput struct {
	Kind          string
	AutonomyLevel int
	Confidence    *float64
	ActionTaken   bool
	Reason        string
	Outcome       *string
	OutcomeDetail *string
}

// DecisionService implements the agent decision ledger.
type DecisionService struct {
	DB *gorm.DB
}

// NewDecisionService constructs a DecisionService.
func NewDecisionService(db *gorm.DB) *DecisionService { return &DecisionService{DB: db} }

// Record validates in and appends it to the ledger.
func (s *DecisionService) Record(ctx context.Context, in RecordDecisionInput) (*domain.AgentDecision, error) {
	ctx, span := otel.Tracer("services/DecisionService").Start(ctx, "Record",
		trace.WithAttributes(
			attribute.String("decision.kind", in.Kind),
			attribute.Int("autonomy_level", in.AutonomyLevel),
		),
	)
	defer span.End()

	kind, ok := domain.ParseDecisionKind(in.Kind)
	if !ok {
		return nil, invalid("unknown decision type %q", in.Kind)
	}
	if in.AutonomyLevel < 1 || in.AutonomyLevel > 4 {
		return nil, invalid("autonomy_level must be between 1 and 4")
	}
	if c := in.Confidence; c != nil && (*c < 0 || *c > 1) {
		return nil, invalid("confidence must be between 0 and 1")
	}
	var outcome *domain.Outcome
	if in.Outcome != nil && strings.TrimSpace(*in.Outcome) != "" {
		o, ok := domain.ParseOutcome(*in.Outcome)
		if !ok {
			return nil, invalid("unknown outcome %q", *in.Outcome)
		}
		outcome = &o
	}

	d := &domain.AgentDecision{
		Kind:          kind,
		AutonomyLevel: in.AutonomyLevel,
		Confidence:    in.Confidence,
		ActionTaken:   in.ActionTaken,
		Reason:        in.Reason,
		Outcome:       outcome,
		OutcomeDetail: in.OutcomeDetail,
	}
	if err := repo.CreateDecision(ctx, s.DB, d); err != nil {
		return nil, err
	}
	decisionsTotal.WithLabelValues(string(kind), outcomeLabel(outcome)).Inc()
	return d, nil
}

// Recent returns up to limit decisions, optionally of one kind, newest first.
// A zero limit means DefaultRecentLimit.
func (s *DecisionService) Recent(ctx context.Context, kind string, limit int) ([]domain.AgentDecision, error) {
	if limit == 0 {
		limit = DefaultRecentLimit
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, invalid("limit must be between 1 and %d", MaxPageSize)
	}
	var k domain.DecisionKind
	if strings.TrimSpace(kind) != "" {
		parsed, ok := domain.ParseDecisionKind(kind)
		if !ok {
			return nil, invalid("unknown decision type %q", kind)
		}
		k = parsed
	}
	return repo.RecentDecisions(ctx, s.DB, k, limit)
}
