// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// Feedback ledger: inserts, per-item and recent listings, and the windowed
// aggregates the derived-state engine is built on.
//
// Rows are never updated or deleted here; there is intentionally no such
// function.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// CreateFeedback inserts fb, assigning ID and CreatedAt when unset.
func CreateFeedback(ctx context.Context, db *gorm.DB, fb *domain.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Omit("Item").Create(fb).Error
}

// GetFeedback fetches one feedback row by ID, or ErrNotFound.
func GetFeedback(ctx context.Context, db *gorm.DB, id string) (*domain.Feedback, error) {
	var fb domain.Feedback
	if err := db.WithContext(ctx).Where("id = ?", id).First(&fb).Error; err != nil {
		return nil, err
	}
	return &fb, nil
}

// ListFeedbackForItem returns all feedback on itemID, newest first.
func ListFeedbackForItem(ctx context.Context, db *gorm.DB, itemID string) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListRecentFeedback returns up to limit rows (optionally of one kind), newest
// first, together with the total number of matching rows.
func ListRecentFeedback(ctx context.Context, db *gorm.DB, kind domain.FeedbackKind, limit int) ([]domain.Feedback, int64, error) {
	scoped := func() *gorm.DB {
		q := db.WithContext(ctx).Model(&domain.Feedback{})
		if kind != "" {
			q = q.Where("kind = ?", kind)
		}
		return q
	}
	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Feedback
	if err := scoped().Order("created_at desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FeedbackCountsSince tallies feedback by kind for rows created at or after since.
func FeedbackCountsSince(ctx context.Context, db *gorm.DB, since time.Time) (domain.FeedbackCounts, error) {
	var rows []struct {
		Kind domain.FeedbackKind
		N    int64
	}
	var c domain.FeedbackCounts
	err := db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Select("kind, COUNT(*) AS n").
		Where("created_at >= ?", since).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return c, err
	}
	for _, r := range rows {
		c.Add(r.Kind, r.N)
	}
	return c, nil
}

// RejectionReasonsSince returns a reason→count frequency table over rejected
// feedback created at or after since. Rows without a reason are skipped.
func RejectionReasonsSince(ctx context.Context, db *gorm.DB, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Reason string
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Select("rejection_reason AS reason, COUNT(*) AS n").
		Where("kind = ? AND rejection_reason IS NOT NULL AND rejection_reason <> '' AND created_at >= ?",
			domain.FeedbackRejected, since).
		Group("rejection_reason").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Reason] = r.N
	}
	return out, nil
}
