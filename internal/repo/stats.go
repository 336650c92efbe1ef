// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) and the item breakdowns.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// ItemsStats returns aggregate metadata for the items matching f: the number
// of rows and the greatest UpdatedAt among them.
//
// When nothing matches, the returned count is 0 and maxUpdatedAt is nil.
func ItemsStats(ctx context.Context, db *gorm.DB, f ItemFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = f.apply(db.WithContext(ctx).Model(&domain.ContentItem{})).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	err = f.apply(db.WithContext(ctx).Model(&domain.ContentItem{})).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// CountItemsByStatus returns live items grouped by status. Every status is
// present in the result, zero when unused.
func CountItemsByStatus(ctx context.Context, db *gorm.DB) (map[domain.Status]int64, error) {
	var rows []struct {
		Status domain.Status
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.ContentItem{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Status]int64, len(domain.Statuses))
	for _, s := range domain.Statuses {
		out[s] = 0
	}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// CountItemsByPlatform returns live items grouped by platform, with every
// platform present.
func CountItemsByPlatform(ctx context.Context, db *gorm.DB) (map[domain.Platform]int64, error) {
	var rows []struct {
		Platform domain.Platform
		N        int64
	}
	err := db.WithContext(ctx).
		Model(&domain.ContentItem{}).
		Select("platform, COUNT(*) AS n").
		Group("platform").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Platform]int64, len(domain.Platforms))
	for _, p := range domain.Platforms {
		out[p] = 0
	}
	for _, r := range rows {
		out[r.Platform] = r.N
	}
	return out, nil
}
