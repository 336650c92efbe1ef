package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// CreateLearningEvent appends ev to the learning audit trail.
func CreateLearningEvent(ctx context.Context, db *gorm.DB, ev *domain.LearningEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(ev).Error
}

// LatestLearningEvent returns the newest event of kind, or ErrNotFound.
func LatestLearningEvent(ctx context.Context, db *gorm.DB, kind domain.LearningEventKind) (*domain.LearningEvent, error) {
	var ev domain.LearningEvent
	err := db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at desc").
		Take(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListLearningEvents returns up to limit events (optionally of one kind),
// newest first.
func ListLearningEvents(ctx context.Context, db *gorm.DB, kind domain.LearningEventKind, limit int) ([]domain.LearningEvent, error) {
	q := db.WithContext(ctx)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []domain.LearningEvent
	err := q.Order("created_at desc").Limit(limit).Find(&out).Error
	return out, err
}
