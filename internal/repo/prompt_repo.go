package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// CreatePromptVersion inserts pv. A duplicate label surfaces as the driver's
// unique violation; see IsDuplicate.
func CreatePromptVersion(ctx context.Context, db *gorm.DB, pv *domain.PromptVersion) error {
	if pv.ID == "" {
		pv.ID = uuid.NewString()
	}
	if pv.CreatedAt.IsZero() {
		pv.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(pv).Error
}

// GetPromptVersion fetches a version by label, or ErrNotFound.
func GetPromptVersion(ctx context.Context, db *gorm.DB, label string) (*domain.PromptVersion, error) {
	var pv domain.PromptVersion
	if err := db.WithContext(ctx).Where("version = ?", label).Take(&pv).Error; err != nil {
		return nil, err
	}
	return &pv, nil
}

// ActivePromptVersion returns the active version, or ErrNotFound when none is.
func ActivePromptVersion(ctx context.Context, db *gorm.DB) (*domain.PromptVersion, error) {
	var pv domain.PromptVersion
	if err := db.WithContext(ctx).Where("is_active = ?", true).Take(&pv).Error; err != nil {
		return nil, err
	}
	return &pv, nil
}

// ListPromptVersions returns every version, newest first.
func ListPromptVersions(ctx context.Context, db *gorm.DB) ([]domain.PromptVersion, error) {
	var out []domain.PromptVersion
	err := db.WithContext(ctx).Order("created_at desc").Find(&out).Error
	return out, err
}

// ActivatePromptVersion clears is_active on every row, then sets it on id.
// Both statements must run in the caller's transaction; it returns
// ErrNotFound (leaving the caller to roll back) when id matches no row.
func ActivatePromptVersion(ctx context.Context, tx *gorm.DB, id string) error {
	if err := tx.WithContext(ctx).
		Model(&domain.PromptVersion{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error; err != nil {
		return err
	}
	res := tx.WithContext(ctx).
		Model(&domain.PromptVersion{}).
		Where("id = ?", id).
		Update("is_active", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActivePromptVersions reports how many rows are flagged active.
func CountActivePromptVersions(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.PromptVersion{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}
