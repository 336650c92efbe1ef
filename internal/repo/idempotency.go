// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for POST endpoints.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// ErrDuplicate indicates that a row with the same unique key already exists.
var ErrDuplicate = errors.New("duplicate")

// IsDuplicate reports whether err is a unique-constraint violation. Drivers
// disagree on how they surface it, so the message text is checked as well.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key") ||
		strings.Contains(low, "duplicate entry")
}

// GetIdempotency returns a non-expired record for (scope, key) or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("scope = ? AND idem_key = ? AND expires_at > ?", scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
// An expired record for the same (scope, key) is purged first so the key can
// be reused once its window has passed.
func CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	if err := db.WithContext(ctx).
		Where("scope = ? AND idem_key = ? AND expires_at <= ?", scope, key, now).
		Delete(&domain.Idempotency{}).Error; err != nil {
		return nil, err
	}
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
