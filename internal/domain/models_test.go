package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ContentItem{}, &Feedback{}, &AgentDecision{}, &PromptVersion{}, &LearningEvent{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		m := db.Migrator()
		_ = m.DropTable(&Idempotency{}, &LearningEvent{}, &PromptVersion{}, &AgentDecision{}, &Feedback{}, &ContentItem{})
	})
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		ContentItem{}.TableName():   "content_items",
		Feedback{}.TableName():      "feedback",
		AgentDecision{}.TableName(): "agent_decisions",
		PromptVersion{}.TableName(): "prompt_versions",
		LearningEvent{}.TableName(): "learning_events",
		Idempotency{}.TableName():   "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_TablesAndIndexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	for _, tbl := range []any{&ContentItem{}, &Feedback{}, &AgentDecision{}, &PromptVersion{}, &LearningEvent{}, &Idempotency{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&PromptVersion{}, "ux_prompt_versions_version") {
		t.Fatalf("expected unique index ux_prompt_versions_version")
	}
	if !m.HasIndex(&Idempotency{}, "ux_scope_key") {
		t.Fatalf("expected unique index ux_scope_key")
	}
}

func TestContentItem_Defaults_AndChecks(t *testing.T) {
	db := newDomainDB(t)

	it := ContentItem{ID: "11111111-1111-1111-1111-111111111111", Title: "Go tips", Author: "editor"}
	if err := db.Omit("Status", "Platform").Create(&it).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	var got ContentItem
	if err := db.First(&got, "id = ?", it.ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if got.Status != StatusIdea || got.Platform != PlatformLinkedIn {
		t.Fatalf("defaults: status=%q platform=%q", got.Status, got.Platform)
	}

	bad := ContentItem{ID: "22222222-2222-2222-2222-222222222222", Title: "x", Author: "a", Status: "bogus", Platform: PlatformVK}
	if err := db.Create(&bad).Error; err == nil {
		t.Fatalf("expected CHECK violation for unknown status")
	}
}

func TestPromptVersion_UniqueLabel(t *testing.T) {
	db := newDomainDB(t)

	now := time.Now().UTC()
	a := PromptVersion{ID: "a", Version: "v1", ContentHash: "h", Author: "system", CreatedAt: now}
	b := PromptVersion{ID: "b", Version: "v1", ContentHash: "h", Author: "system", CreatedAt: now}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create first: %v", err)
	}
	if err := db.Create(&b).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate version label")
	}
}

func TestFeedback_ReferencesItem(t *testing.T) {
	db := newDomainDB(t)

	fb := Feedback{ID: "f1", ItemID: "does-not-exist", Kind: FeedbackApproved}
	if err := db.Create(&fb).Error; err == nil {
		t.Fatalf("expected FK violation for feedback on a missing item")
	}
}
