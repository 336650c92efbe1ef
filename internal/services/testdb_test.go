package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/repo"
)

func newTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return db
}

// newItem creates an item through the service and forces status st.
func newItem(t testing.TB, db *gorm.DB, title string, st domain.Status) *domain.ContentItem {
	t.Helper()
	svc := NewItemService(db)
	it, err := svc.Create(context.Background(), CreateItemInput{Title: title})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if st != domain.StatusIdea {
		s := string(st)
		it, err = svc.AdminOverride(context.Background(), it.ID, ItemPatch{Status: &s})
		if err != nil {
			t.Fatalf("override status: %v", err)
		}
	}
	return it
}

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }
