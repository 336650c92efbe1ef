// Package services – ItemService
//
// This file implements ItemService, which owns the lifecycle of content items.
// Status changes go through one of two distinct paths:
//
//   - Transition: guarded by the domain transition table (submit, approve,
//     reject, publish). Disallowed events fail with a *domain.TransitionError.
//   - AdminOverride: an unchecked field patch, including status, for manual
//     correction. It is the only way to bypass the transition table.
//
// Observability: public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/repo"
	"github.com/tbourn/smm-pipeline/internal/search"
)

const (
	maxTitleRunes  = 255
	maxAuthorRunes = 100
	defaultAuthor  = "editor"

	// MaxPageSize bounds every list endpoint.
	MaxPageSize = 100
)

// CreateItemInput carries the fields accepted when creating an item.
type CreateItemInput struct {
	Title       string
	Content     *string
	Platform    string
	Author      string
	ImageURL    *string
	ImagePrompt *string
	AIPrompt    *string
	AIModel     *string
	ScheduledAt *time.Time
}

// ItemPatch is a partial update. Nil fields are left untouched.
type ItemPatch struct {
	Title       *string
	Content     *string
	Platform    *string
	Author      *string
	Status      *string
	ImageURL    *string
	ImagePrompt *string
	AIPrompt    *string
	AIModel     *string
	ScheduledAt *time.Time
	PublishedAt *time.Time
}

// ListItemsInput filters and pages an item listing.
type ListItemsInput struct {
	Status   string
	Platform string
	Limit    int
	Offset   int
}

// SimilarItem is one search hit.
type SimilarItem struct {
	Item  domain.ContentItem `json:"item"`
	Score float64            `json:"score"`
}

// ItemService implements the content item use-cases.
type ItemService struct {
	DB *gorm.DB
}

// NewItemService constructs an ItemService.
func NewItemService(db *gorm.DB) *ItemService { return &ItemService{DB: db} }

func itemTracer() trace.Tracer { return otel.Tracer("services/ItemService") }

// Create validates in and stores a new item in status idea.
func (s *ItemService) Create(ctx context.Context, in CreateItemInput) (*domain.ContentItem, error) {
	ctx, span := itemTracer().Start(ctx, "Create")
	defer span.End()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title must not be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, invalid("title must be at most %d characters", maxTitleRunes)
	}
	platform := domain.PlatformLinkedIn
	if strings.TrimSpace(in.Platform) != "" {
		p, ok := domain.ParsePlatform(in.Platform)
		if !ok {
			return nil, invalid("unknown platform %q", in.Platform)
		}
		platform = p
	}
	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = defaultAuthor
	}
	if utf8.RuneCountInString(author) > maxAuthorRunes {
		return nil, invalid("author must be at most %d characters", maxAuthorRunes)
	}

	it := &domain.ContentItem{
		Title:       title,
		Content:     in.Content,
		Platform:    platform,
		Author:      author,
		Status:      domain.StatusIdea,
		ImageURL:    in.ImageURL,
		ImagePrompt: in.ImagePrompt,
		AIPrompt:    in.AIPrompt,
		AIModel:     in.AIModel,
		ScheduledAt: utcPtr(in.ScheduledAt),
	}
	if err := repo.CreateItem(ctx, s.DB, it); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("item.id", it.ID))
	return it, nil
}

// Get returns a live item or ErrItemNotFound.
func (s *ItemService) Get(ctx context.Context, id string) (*domain.ContentItem, error) {
	it, err := repo.GetItem(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return it, nil
}

// Filter validates the status/platform filter of a listing.
func (s *ItemService) Filter(status, platform string) (repo.ItemFilter, error) {
	var f repo.ItemFilter
	if strings.TrimSpace(status) != "" {
		st, ok := domain.ParseStatus(status)
		if !ok {
			return f, invalid("unknown status %q", status)
		}
		f.Status = st
	}
	if strings.TrimSpace(platform) != "" {
		p, ok := domain.ParsePlatform(platform)
		if !ok {
			return f, invalid("unknown platform %q", platform)
		}
		f.Platform = p
	}
	return f, nil
}

// List returns one page of items, newest first, with the total match count.
func (s *ItemService) List(ctx context.Context, in ListItemsInput) ([]domain.ContentItem, int64, error) {
	ctx, span := itemTracer().Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int("limit", in.Limit),
			attribute.Int("offset", in.Offset),
		),
	)
	defer span.End()

	if err := checkPage(in.Limit, in.Offset); err != nil {
		return nil, 0, err
	}
	f, err := s.Filter(in.Status, in.Platform)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountItems(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ContentItem{}, 0, nil
	}
	items, err := repo.ListItemsPage(ctx, s.DB, f, in.Offset, in.Limit)
	return items, total, err
}

// Stats returns the (count, max updated_at) pair used for list ETags.
func (s *ItemService) Stats(ctx context.Context, f repo.ItemFilter) (int64, *time.Time, error) {
	return repo.ItemsStats(ctx, s.DB, f)
}

// CountsByStatus returns live items grouped by status.
func (s *ItemService) CountsByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	return repo.CountItemsByStatus(ctx, s.DB)
}

// CountsByPlatform returns live items grouped by platform.
func (s *ItemService) CountsByPlatform(ctx context.Context) (map[domain.Platform]int64, error) {
	return repo.CountItemsByPlatform(ctx, s.DB)
}

// AdminOverride applies p without consulting the transition table. Enum
// values are still validated so no unknown status or platform is stored.
func (s *ItemService) AdminOverride(ctx context.Context, id string, p ItemPatch) (*domain.ContentItem, error) {
	ctx, span := itemTracer().Start(ctx, "AdminOverride", trace.WithAttributes(attribute.String("item.id", id)))
	defer span.End()

	fields := map[string]any{}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return nil, invalid("title must not be empty")
		}
		if utf8.RuneCountInString(t) > maxTitleRunes {
			return nil, invalid("title must be at most %d characters", maxTitleRunes)
		}
		fields["title"] = t
	}
	if p.Content != nil {
		fields["content"] = *p.Content
	}
	if p.Platform != nil {
		pf, ok := domain.ParsePlatform(*p.Platform)
		if !ok {
			return nil, invalid("unknown platform %q", *p.Platform)
		}
		fields["platform"] = pf
	}
	if p.Author != nil {
		a := strings.TrimSpace(*p.Author)
		if a == "" {
			return nil, invalid("author must not be empty")
		}
		fields["author"] = a
	}
	if p.Status != nil {
		st, ok := domain.ParseStatus(*p.Status)
		if !ok {
			return nil, invalid("unknown status %q", *p.Status)
		}
		fields["status"] = st
	}
	if p.ImageURL != nil {
		fields["image_url"] = *p.ImageURL
	}
	if p.ImagePrompt != nil {
		fields["image_prompt"] = *p.ImagePrompt
	}
	if p.AIPrompt != nil {
		fields["ai_prompt"] = *p.AIPrompt
	}
	if p.AIModel != nil {
		fields["ai_model"] = *p.AIModel
	}
	if p.ScheduledAt != nil {
		fields["scheduled_at"] = p.ScheduledAt.UTC()
	}
	if p.PublishedAt != nil {
		fields["published_at"] = p.PublishedAt.UTC()
	}

	var out *domain.ContentItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := repo.GetItemForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := repo.UpdateItemFields(ctx, tx, id, fields); err != nil {
				return err
			}
		}
		after, err := repo.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if before.Status != after.Status {
			transitionsTotal.WithLabelValues(string(before.Status), string(after.Status)).Inc()
		}
		out = after
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return out, nil
}

// Transition fires ev on the item. The read and the write happen in one
// transaction so the precondition holds at write time.
func (s *ItemService) Transition(ctx context.Context, id string, ev domain.Event) (*domain.ContentItem, error) {
	ctx, span := itemTracer().Start(ctx, "Transition",
		trace.WithAttributes(
			attribute.String("item.id", id),
			attribute.String("event", string(ev)),
		),
	)
	defer span.End()

	var out *domain.ContentItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		it, err := repo.GetItemForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := domain.Next(it.Status, ev)
		if err != nil {
			return err
		}
		fields := map[string]any{"status": next}
		if ev == domain.EventPublish {
			fields["published_at"] = time.Now().UTC()
		}
		if err := repo.UpdateItemFields(ctx, tx, id, fields); err != nil {
			return err
		}
		transitionsTotal.WithLabelValues(string(it.Status), string(next)).Inc()
		out, err = repo.GetItem(ctx, tx, id)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return out, nil
}

// Approve moves a reviewed item to scheduled.
func (s *ItemService) Approve(ctx context.Context, id string) (*domain.ContentItem, error) {
	return s.Transition(ctx, id, domain.EventApprove)
}

// Reject moves an item to rejected from any status.
func (s *ItemService) Reject(ctx context.Context, id string) (*domain.ContentItem, error) {
	return s.Transition(ctx, id, domain.EventReject)
}

// Submit hands an idea or draft to review.
func (s *ItemService) Submit(ctx context.Context, id string) (*domain.ContentItem, error) {
	return s.Transition(ctx, id, domain.EventSubmit)
}

// Publish marks a scheduled item as published.
func (s *ItemService) Publish(ctx context.Context, id string) (*domain.ContentItem, error) {
	return s.Transition(ctx, id, domain.EventPublish)
}

// Delete soft-deletes an item; its feedback stays in the ledger.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	if err := repo.DeleteItem(ctx, s.DB, id); err != nil {
		if isNotFound(err) {
			return ErrItemNotFound
		}
		return err
	}
	return nil
}

// Similar ranks live items by token overlap with query. The index is built
// per call from the current rows.
func (s *ItemService) Similar(ctx context.Context, query string, k int) ([]SimilarItem, error) {
	ctx, span := itemTracer().Start(ctx, "Similar", trace.WithAttributes(attribute.Int("k", k)))
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, invalid("q must not be empty")
	}
	if k < 1 || k > MaxPageSize {
		return nil, invalid("k must be between 1 and %d", MaxPageSize)
	}
	items, err := repo.ListAllItems(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.ContentItem, len(items))
	docs := make([]search.Doc, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		text := it.Title
		if it.Content != nil {
			text += "\n" + *it.Content
		}
		docs = append(docs, search.Doc{ID: it.ID, Text: text})
	}
	idx := search.NewIndex(docs, search.WithStopwords(search.DefaultStopwords))

	hits := idx.TopK(query, k)
	out := make([]SimilarItem, 0, len(hits))
	for _, h := range hits {
		out = append(out, SimilarItem{Item: byID[h.ID], Score: domain.Round3(h.Score)})
	}
	return out, nil
}

// checkPage enforces limit in [1, MaxPageSize] and offset >= 0.
func checkPage(limit, offset int) error {
	if limit < 1 || limit > MaxPageSize {
		return invalid("limit must be between 1 and %d", MaxPageSize)
	}
	if offset < 0 {
		return invalid("offset must be >= 0")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
