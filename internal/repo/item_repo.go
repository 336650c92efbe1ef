// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ContentItem model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Error semantics:
//   - When an item is not found (or was soft-deleted), functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ItemFilter narrows item listings. Zero values mean "any".
type ItemFilter struct {
	Status   domain.Status
	Platform domain.Platform
}

func (f ItemFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Platform != "" {
		q = q.Where("platform = ?", f.Platform)
	}
	return q
}

// CreateItem inserts it, assigning a UUID and UTC timestamps when unset.
func CreateItem(ctx context.Context, db *gorm.DB, it *domain.ContentItem) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = it.CreatedAt
	}
	return db.WithContext(ctx).Create(it).Error
}

// GetItem fetches a non-deleted item by ID, or ErrNotFound.
func GetItem(ctx context.Context, db *gorm.DB, id string) (*domain.ContentItem, error) {
	var it domain.ContentItem
	if err := db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// GetItemForUpdate is GetItem with a row lock on drivers that support it.
// SQLite serializes writers and ignores the clause.
func GetItemForUpdate(ctx context.Context, db *gorm.DB, id string) (*domain.ContentItem, error) {
	q := db.WithContext(ctx)
	if db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var it domain.ContentItem
	if err := q.Where("id = ?", id).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// CountItems returns the number of non-deleted items matching f.
func CountItems(ctx context.Context, db *gorm.DB, f ItemFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.ContentItem{})).Count(&total).Error
	return total, err
}

// ListItemsPage returns items matching f, newest first.
func ListItemsPage(ctx context.Context, db *gorm.DB, f ItemFilter, offset, limit int) ([]domain.ContentItem, error) {
	var out []domain.ContentItem
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListAllItems returns every non-deleted item, newest first.
func ListAllItems(ctx context.Context, db *gorm.DB) ([]domain.ContentItem, error) {
	var out []domain.ContentItem
	err := db.WithContext(ctx).Order("created_at desc").Find(&out).Error
	return out, err
}

// UpdateItemFields applies a column→value patch and bumps updated_at.
// It returns ErrNotFound if no live row has the given id.
func UpdateItemFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.ContentItem{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem soft-deletes an item. Its feedback history is kept.
func DeleteItem(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ContentItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
