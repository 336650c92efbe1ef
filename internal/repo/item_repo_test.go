package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

func TestCreateItem_AssignsIDAndTimestamps(t *testing.T) {
	db := newFullDB(t)
	it := &domain.ContentItem{Title: "Launch", Author: "editor", Status: domain.StatusIdea, Platform: domain.PlatformLinkedIn}
	if err := CreateItem(context.Background(), db, it); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if it.ID == "" || it.CreatedAt.IsZero() || !it.UpdatedAt.Equal(it.CreatedAt) {
		t.Fatalf("unexpected item: %+v", it)
	}
	got, err := GetItem(context.Background(), db, it.ID)
	if err != nil || got.Title != "Launch" {
		t.Fatalf("GetItem: %v %+v", err, got)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	db := newFullDB(t)
	if _, err := GetItem(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListItemsPage_FilterOrderAndCount(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	seedItem(t, db, "a", domain.StatusIdea, domain.PlatformLinkedIn, base)
	seedItem(t, db, "b", domain.StatusReview, domain.PlatformLinkedIn, base.Add(time.Hour))
	seedItem(t, db, "c", domain.StatusIdea, domain.PlatformVK, base.Add(2*time.Hour))
	seedItem(t, db, "d", domain.StatusIdea, domain.PlatformLinkedIn, base.Add(3*time.Hour))

	all, err := ListItemsPage(ctx, db, ItemFilter{}, 0, 10)
	if err != nil || len(all) != 4 || all[0].ID != "d" || all[3].ID != "a" {
		t.Fatalf("unexpected page: err=%v items=%v", err, ids(all))
	}

	f := ItemFilter{Status: domain.StatusIdea, Platform: domain.PlatformLinkedIn}
	page, err := ListItemsPage(ctx, db, f, 1, 1)
	if err != nil || len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("filtered page: err=%v items=%v", err, ids(page))
	}
	n, err := CountItems(ctx, db, f)
	if err != nil || n != 2 {
		t.Fatalf("CountItems = %d, %v; want 2", n, err)
	}
}

func TestUpdateItemFields_AndNotFound(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedItem(t, db, "x", domain.StatusIdea, domain.PlatformTwitter, old)

	if err := UpdateItemFields(ctx, db, "x", map[string]any{"status": domain.StatusReview, "title": "new"}); err != nil {
		t.Fatalf("UpdateItemFields: %v", err)
	}
	got, _ := GetItem(ctx, db, "x")
	if got.Status != domain.StatusReview || got.Title != "new" || !got.UpdatedAt.After(old) {
		t.Fatalf("patch not applied: %+v", got)
	}
	if err := UpdateItemFields(ctx, db, "nope", map[string]any{"title": "t"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteItem_SoftDeleteKeepsFeedback(t *testing.T) {
	db := newFullDB(t)
	ctx := context.Background()
	seedItem(t, db, "x", domain.StatusIdea, domain.PlatformTwitter, time.Now().UTC())
	if err := CreateFeedback(ctx, db, &domain.Feedback{ItemID: "x", Kind: domain.FeedbackApproved}); err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}

	if err := DeleteItem(ctx, db, "x"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := GetItem(ctx, db, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted item still visible: %v", err)
	}
	if err := DeleteItem(ctx, db, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	fbs, err := ListFeedbackForItem(ctx, db, "x")
	if err != nil || len(fbs) != 1 {
		t.Fatalf("feedback ledger should survive soft delete: %v %d", err, len(fbs))
	}
	if n, _ := CountItems(ctx, db, ItemFilter{}); n != 0 {
		t.Fatalf("CountItems should skip deleted rows, got %d", n)
	}
}

func TestGetItemForUpdate_SQLite(t *testing.T) {
	db := newFullDB(t)
	seedItem(t, db, "x", domain.StatusIdea, domain.PlatformTwitter, time.Now().UTC())
	if _, err := GetItemForUpdate(context.Background(), db, "x"); err != nil {
		t.Fatalf("GetItemForUpdate: %v", err)
	}
}

func ids(items []domain.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
