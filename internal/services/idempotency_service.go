package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/repo"
)

// IdempotencyService remembers which resource a create request produced for
// a (scope, key) pair so retries can be replayed.
type IdempotencyService struct {
	DB *gorm.DB
}

// NewIdempotencyService constructs an IdempotencyService.
func NewIdempotencyService(db *gorm.DB) *IdempotencyService { return &IdempotencyService{DB: db} }

// Lookup returns the live record for (scope, key), or nil when there is none.
func (s *IdempotencyService) Lookup(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// Seen reports whether a live record exists. It matches the lookup hook of
// the idempotency middleware.
func (s *IdempotencyService) Seen(ctx context.Context, scope, key string, now time.Time) (bool, error) {
	rec, err := s.Lookup(ctx, scope, key, now)
	return rec != nil, err
}

// Save records resourceID under (scope, key) for ttl. When a concurrent
// request stored the same pair first, its record wins and Save is a no-op.
func (s *IdempotencyService) Save(ctx context.Context, scope, key, resourceID string, status int, ttl time.Duration) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, scope, key, resourceID, status, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}
