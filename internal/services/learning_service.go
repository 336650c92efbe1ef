package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/repo"
)

// RecordLearningInput carries one learning-loop audit entry.
type RecordLearningInput struct {
	Kind                string
	InputData           string
	Insights            string
	Actions             string
	PromptVersionBefore *string
	PromptVersionAfter  *string
}

// LearningService records and lists learning events. A reflexion entry
// resets the "generations since reflexion" counter of the status view.
type LearningService struct {
	DB *gorm.DB
}

// NewLearningService constructs a LearningService.
func NewLearningService(db *gorm.DB) *LearningService { return &LearningService{DB: db} }

// Record appends one event.
func (s *LearningService) Record(ctx context.Context, in RecordLearningInput) (*domain.LearningEvent, error) {
	kind, ok := domain.ParseLearningEventKind(in.Kind)
	if !ok {
		return nil, invalid("unknown learning event type %q", in.Kind)
	}
	ev := &domain.LearningEvent{
		Kind:                kind,
		InputData:           in.InputData,
		Insights:            in.Insights,
		Actions:             in.Actions,
		PromptVersionBefore: trimmedOrNil(in.PromptVersionBefore),
		PromptVersionAfter:  trimmedOrNil(in.PromptVersionAfter),
	}
	if err := repo.CreateLearningEvent(ctx, s.DB, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// List returns up to limit events, optionally of one kind, newest first.
func (s *LearningService) List(ctx context.Context, kind string, limit int) ([]domain.LearningEvent, error) {
	if limit == 0 {
		limit = DefaultRecentLimit
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, invalid("limit must be between 1 and %d", MaxPageSize)
	}
	var k domain.LearningEventKind
	if strings.TrimSpace(kind) != "" {
		parsed, ok := domain.ParseLearningEventKind(kind)
		if !ok {
			return nil, invalid("unknown learning event type %q", kind)
		}
		k = parsed
	}
	return repo.ListLearningEvents(ctx, s.DB, k, limit)
}
