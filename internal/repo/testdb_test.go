package repo

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

// newTestDB opens a unique in-memory database per test. With migrate == nil
// the full schema is applied; pass explicit models to migrate a subset.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newFullDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func seedItem(t *testing.T, db *gorm.DB, id string, st domain.Status, pf domain.Platform, at time.Time) *domain.ContentItem {
	t.Helper()
	it := &domain.ContentItem{ID: id, Title: "title " + id, Author: "editor", Status: st, Platform: pf, CreatedAt: at, UpdatedAt: at}
	if err := db.Create(it).Error; err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
	return it
}

func ptr[T any](v T) *T { return &v }
