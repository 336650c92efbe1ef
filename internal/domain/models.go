// Package domain defines the persistence models for the content pipeline:
// content items, the feedback and agent-decision ledgers, prompt versions and
// learning events. These types are mapped with GORM and form the core data
// layer of the service.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// ContentItem is a single piece of social-media content moving through the
// publication pipeline (idea → draft → review → scheduled → published, with
// a rejection branch).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Title: topic or headline; never empty.
//   - Content: post body, nil until drafted.
//   - Platform: target network (telegram/linkedin/vk/twitter).
//   - Author: byline of the post.
//   - Status: pipeline state; only changed through transitions or the
//     admin override path.
//   - ImageURL / ImagePrompt: optional media reference and its prompt.
//   - AIPrompt / AIModel: generation metadata, when the body was generated.
//   - ScheduledAt / PublishedAt: optional pipeline timestamps.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker; feedback history is retained.
type ContentItem struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Title       string         `json:"title"        gorm:"type:varchar(255);not null"`
	Content     *string        `json:"content"      gorm:"type:text"`
	Platform    Platform       `json:"platform"     gorm:"type:varchar(20);not null;default:'linkedin';index;check:platform IN ('telegram','linkedin','vk','twitter')"`
	Author      string         `json:"author"       gorm:"type:varchar(100);not null"`
	Status      Status         `json:"status"       gorm:"type:varchar(20);not null;default:'idea';index;check:status IN ('idea','draft','review','scheduled','published','rejected')"`
	ImageURL    *string        `json:"image_url"    gorm:"type:varchar(500)"`
	ImagePrompt *string        `json:"image_prompt" gorm:"type:text"`
	AIPrompt    *string        `json:"ai_prompt"    gorm:"type:text"`
	AIModel     *string        `json:"ai_model"     gorm:"type:varchar(50)"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	PublishedAt *time.Time     `json:"published_at"`
	CreatedAt   time.Time      `json:"created_at"   gorm:"index"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for ContentItem.
func (ContentItem) TableName() string { return "content_items" }

// Feedback is one human judgment on generated content. Rows are append-only:
// once written they are never updated or deleted.
//
// Fields:
//   - ItemID: the judged content item (indexed).
//   - Kind: approved, rejected or edited.
//   - ConfidenceBefore: the agent's confidence prior to the judgment.
//   - OriginalContent / EditedContent: snapshot pair, kept only for edited.
//   - RejectionReason / RejectionDetail: reason key and free text, kept only
//     for rejected.
//   - UserID: optional identity of the reviewer.
type Feedback struct {
	ID               string       `json:"id"                gorm:"type:char(36);primaryKey"`
	ItemID           string       `json:"item_id"           gorm:"type:char(36);not null;index"`
	Kind             FeedbackKind `json:"kind"              gorm:"type:varchar(16);not null;index;check:kind IN ('approved','rejected','edited')"`
	ConfidenceBefore *float64     `json:"confidence_before"`
	OriginalContent  *string      `json:"original_content"  gorm:"type:text"`
	EditedContent    *string      `json:"edited_content"    gorm:"type:text"`
	RejectionReason  *string      `json:"rejection_reason"  gorm:"type:varchar(50);index"`
	RejectionDetail  *string      `json:"rejection_detail"  gorm:"type:text"`
	UserID           *string      `json:"user_id"           gorm:"type:varchar(64)"`
	CreatedAt        time.Time    `json:"created_at"        gorm:"index"`

	// Item is the judged content item. Items are soft-deleted, so the
	// reference stays valid for the lifetime of the ledger.
	Item ContentItem `json:"-" gorm:"foreignKey:ItemID;references:ID"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// AgentDecision records one autonomous or assisted action taken by the agent.
// The ledger is write-once per entry; the newest row carries the autonomy
// level currently in effect.
type AgentDecision struct {
	ID            string       `json:"id"             gorm:"type:char(36);primaryKey"`
	Kind          DecisionKind `json:"type"           gorm:"type:varchar(20);not null;index;check:kind IN ('generate','publish','modify_prompt','rollback')"`
	AutonomyLevel int          `json:"autonomy_level" gorm:"not null;check:autonomy_level BETWEEN 1 AND 4"`
	Confidence    *float64     `json:"confidence"`
	ActionTaken   bool         `json:"action_taken"   gorm:"not null"`
	Reason        string       `json:"reason"         gorm:"type:text"`
	Outcome       *Outcome     `json:"outcome"        gorm:"type:varchar(16)"`
	OutcomeDetail *string      `json:"outcome_detail" gorm:"type:text"`
	CreatedAt     time.Time    `json:"created_at"     gorm:"index"`
}

// TableName returns the database table name for AgentDecision.
func (AgentDecision) TableName() string { return "agent_decisions" }

// PromptVersion is one version of the generation prompt configuration.
// At most one row has IsActive set at any time.
type PromptVersion struct {
	ID                 string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	Version            string    `json:"version"              gorm:"type:varchar(50);not null;uniqueIndex:ux_prompt_versions_version"`
	ContentHash        string    `json:"content_hash"         gorm:"type:char(64);not null"`
	Content            *string   `json:"content,omitempty"    gorm:"type:text"`
	Reason             string    `json:"reason"               gorm:"type:text"`
	Author             string    `json:"author"               gorm:"type:varchar(50);not null"`
	ApprovalRateBefore *float64  `json:"approval_rate_before"`
	ApprovalRateAfter  *float64  `json:"approval_rate_after"`
	IsActive           bool      `json:"is_active"            gorm:"not null;index"`
	CreatedAt          time.Time `json:"created_at"           gorm:"index"`
}

// TableName returns the database table name for PromptVersion.
func (PromptVersion) TableName() string { return "prompt_versions" }

// LearningEvent is an append-only audit entry of the agent's learning loop
// (reflexion runs, rule updates, detected patterns, rollbacks).
type LearningEvent struct {
	ID                  string            `json:"id"                    gorm:"type:char(36);primaryKey"`
	Kind                LearningEventKind `json:"type"                  gorm:"type:varchar(24);not null;index;check:kind IN ('reflexion','rule_update','pattern_detected','rollback')"`
	InputData           string            `json:"input_data"            gorm:"type:text"`
	Insights            string            `json:"insights"              gorm:"type:text"`
	Actions             string            `json:"actions"               gorm:"type:text"`
	PromptVersionBefore *string           `json:"prompt_version_before" gorm:"type:varchar(50)"`
	PromptVersionAfter  *string           `json:"prompt_version_after"  gorm:"type:varchar(50)"`
	CreatedAt           time.Time         `json:"created_at"            gorm:"index"`
}

// TableName returns the database table name for LearningEvent.
func (LearningEvent) TableName() string { return "learning_events" }
