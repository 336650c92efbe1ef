package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// CreateDecision appends d to the agent decision ledger.
func CreateDecision(ctx context.Context, db *gorm.DB, d *domain.AgentDecision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(d).Error
}

// RecentDecisions returns up to limit decisions (optionally of one kind),
// newest first. Ties on created_at are broken by id for a stable order.
func RecentDecisions(ctx context.Context, db *gorm.DB, kind domain.DecisionKind, limit int) ([]domain.AgentDecision, error) {
	q := db.WithContext(ctx)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []domain.AgentDecision
	err := q.Order("created_at desc").Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

// LatestDecision returns the newest decision, or ErrNotFound on an empty ledger.
func LatestDecision(ctx context.Context, db *gorm.DB) (*domain.AgentDecision, error) {
	var d domain.AgentDecision
	err := db.WithContext(ctx).Order("created_at desc").Order("id desc").Take(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CountDecisionsSince counts decisions of kind created strictly after since.
// A nil since counts the whole ledger.
func CountDecisionsSince(ctx context.Context, db *gorm.DB, kind domain.DecisionKind, since *time.Time) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.AgentDecision{}).Where("kind = ?", kind)
	if since != nil {
		q = q.Where("created_at > ?", *since)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
