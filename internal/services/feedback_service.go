// Package services – FeedbackService
//
// This file implements the FeedbackService, which appends human judgments to
// the feedback ledger. Recording feedback is the only way feedback mutates
// content state: the judged item is forced to scheduled (approved, edited)
// or rejected, and an edit with a non-empty body overwrites the item's
// content. The insert and the item update share one transaction.
package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/repo"
)

// MaxWindowDays bounds the day window of stats and insights queries.
const MaxWindowDays = 90

// RecordFeedbackInput carries one judgment.
type RecordFeedbackInput struct {
	Kind             string
	ConfidenceBefore *float64
	OriginalContent  *string
	EditedContent    *string
	RejectionReason  *string
	RejectionDetail  *string
	UserID           *string
}

// FeedbackStats summarises the ledger over a day window.
type FeedbackStats struct {
	Days         int                           `json:"days"`
	Total        int64                         `json:"total"`
	ApprovalRate float64                       `json:"approval_rate"`
	CountsByKind map[domain.FeedbackKind]int64 `json:"counts_by_kind"`
}

// FeedbackService implements the use-cases around the feedback ledger.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB

	// Now is the clock used for windowed stats; nil means time.Now.
	Now func() time.Time
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(db *gorm.DB) *FeedbackService { return &FeedbackService{DB: db} }

func feedbackTracer() trace.Tracer { return otel.Tracer("services/FeedbackService") }

func (s *FeedbackService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Record appends feedback on itemID and applies its status-forcing rule.
//
// Fields that do not belong to the kind are dropped: the content pair is kept
// only for edited, the reason pair only for rejected. For edited feedback
// without an explicit original, the item's current body is snapshotted.
func (s *FeedbackService) Record(ctx context.Context, itemID string, in RecordFeedbackInput) (*domain.Feedback, error) {
	ctx, span := feedbackTracer().Start(ctx, "Record",
		trace.WithAttributes(
			attribute.String("item.id", itemID),
			attribute.String("feedback.kind", in.Kind),
		),
	)
	defer span.End()

	kind, ok := domain.ParseFeedbackKind(in.Kind)
	if !ok {
		return nil, invalid("unknown feedback kind %q", in.Kind)
	}
	if c := in.ConfidenceBefore; c != nil && (*c < 0 || *c > 1) {
		return nil, invalid("confidence_before must be between 0 and 1")
	}
	ev, _ := domain.FeedbackEvent(kind)

	fb := &domain.Feedback{
		ItemID:           itemID,
		Kind:             kind,
		ConfidenceBefore: in.ConfidenceBefore,
		UserID:           trimmedOrNil(in.UserID),
	}
	switch kind {
	case domain.FeedbackEdited:
		fb.OriginalContent = in.OriginalContent
		fb.EditedContent = in.EditedContent
	case domain.FeedbackRejected:
		fb.RejectionReason = trimmedOrNil(in.RejectionReason)
		fb.RejectionDetail = in.RejectionDetail
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		it, err := repo.GetItemForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if kind == domain.FeedbackEdited && fb.OriginalContent == nil {
			fb.OriginalContent = it.Content
		}
		if err := repo.CreateFeedback(ctx, tx, fb); err != nil {
			return err
		}

		next, err := domain.Next(it.Status, ev)
		if err != nil {
			return err
		}
		fields := map[string]any{"status": next}
		if kind == domain.FeedbackEdited && fb.EditedContent != nil && *fb.EditedContent != "" {
			fields["content"] = *fb.EditedContent
		}
		if err := repo.UpdateItemFields(ctx, tx, itemID, fields); err != nil {
			return err
		}
		if it.Status != next {
			transitionsTotal.WithLabelValues(string(it.Status), string(next)).Inc()
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	feedbackTotal.WithLabelValues(string(kind)).Inc()
	return fb, nil
}

// Get returns one feedback row by ID.
func (s *FeedbackService) Get(ctx context.Context, id string) (*domain.Feedback, error) {
	fb, err := repo.GetFeedback(ctx, s.DB, id)
	if isNotFound(err) {
		return nil, ErrFeedbackNotFound
	}
	return fb, err
}

// ListForItem returns the feedback on a live item, newest first.
func (s *FeedbackService) ListForItem(ctx context.Context, itemID string) ([]domain.Feedback, error) {
	if _, err := repo.GetItem(ctx, s.DB, itemID); err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return repo.ListFeedbackForItem(ctx, s.DB, itemID)
}

// ListRecent returns up to limit rows, optionally of one kind, newest first,
// and the total number of matching rows.
func (s *FeedbackService) ListRecent(ctx context.Context, kind string, limit int) ([]domain.Feedback, int64, error) {
	if limit < 1 || limit > MaxPageSize {
		return nil, 0, invalid("limit must be between 1 and %d", MaxPageSize)
	}
	var k domain.FeedbackKind
	if strings.TrimSpace(kind) != "" {
		parsed, ok := domain.ParseFeedbackKind(kind)
		if !ok {
			return nil, 0, invalid("unknown feedback kind %q", kind)
		}
		k = parsed
	}
	return repo.ListRecentFeedback(ctx, s.DB, k, limit)
}

// Stats summarises the last days days. An empty window yields a rate of 0.
func (s *FeedbackService) Stats(ctx context.Context, days int) (*FeedbackStats, error) {
	ctx, span := feedbackTracer().Start(ctx, "Stats", trace.WithAttributes(attribute.Int("days", days)))
	defer span.End()

	if err := checkWindow(days); err != nil {
		return nil, err
	}
	c, err := repo.FeedbackCountsSince(ctx, s.DB, windowStart(s.now(), days))
	if err != nil {
		return nil, err
	}
	return &FeedbackStats{
		Days:         days,
		Total:        c.Total(),
		ApprovalRate: domain.Round3(domain.ApprovalRate(c)),
		CountsByKind: c.ByKind(),
	}, nil
}

func checkWindow(days int) error {
	if days < 1 || days > MaxWindowDays {
		return invalid("days must be between 1 and %d", MaxWindowDays)
	}
	return nil
}

func windowStart(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
