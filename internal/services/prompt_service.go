// Package services – PromptService
//
// PromptService manages the prompt version registry. At most one version is
// active at any time; activation clears every active flag and sets the new
// one inside a single transaction, so no committed state ever shows zero or
// two active rows as a result of an activation.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
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
)

const (
	defaultPromptReason = "Initial version"
	defaultPromptAuthor = "system"
	maxLabelRunes       = 50
)

// CreatePromptInput describes a new prompt version. Activate defaults to
// true when nil.
type CreatePromptInput struct {
	Version  string
	Reason   string
	Author   string
	Activate *bool
	Content  *string
}

// PromptService implements the prompt version registry.
type PromptService struct {
	DB *gorm.DB

	// Now is the clock used for the approval snapshot; nil means time.Now.
	Now func() time.Time
}

// NewPromptService constructs a PromptService.
func NewPromptService(db *gorm.DB) *PromptService { return &PromptService{DB: db} }

func promptTracer() trace.Tracer { return otel.Tracer("services/PromptService") }

func (s *PromptService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ContentHash fingerprints a prompt version: the SHA-256 of its prompt text
// when one is supplied, otherwise of its label.
func ContentHash(label string, content *string) string {
	src := label
	if content != nil && *content != "" {
		src = *content
	}
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// Create registers a new version. A label that is already registered yields
// the existing row together with ErrPromptVersionExists.
func (s *PromptService) Create(ctx context.Context, in CreatePromptInput) (*domain.PromptVersion, error) {
	ctx, span := promptTracer().Start(ctx, "Create", trace.WithAttributes(attribute.String("prompt.version", in.Version)))
	defer span.End()

	label := strings.TrimSpace(in.Version)
	if label == "" {
		return nil, invalid("version must not be empty")
	}
	if utf8.RuneCountInString(label) > maxLabelRunes {
		return nil, invalid("version must be at most %d characters", maxLabelRunes)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = defaultPromptReason
	}
	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = defaultPromptAuthor
	}
	activate := in.Activate == nil || *in.Activate

	if existing, err := repo.GetPromptVersion(ctx, s.DB, label); err == nil {
		return existing, ErrPromptVersionExists
	} else if !isNotFound(err) {
		return nil, err
	}

	pv := &domain.PromptVersion{
		Version:     label,
		ContentHash: ContentHash(label, in.Content),
		Content:     in.Content,
		Reason:      reason,
		Author:      author,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.FeedbackCountsSince(ctx, tx, s.now().Add(-domain.StatusWindow))
		if err != nil {
			return err
		}
		if c.Total() > 0 {
			r := domain.Round3(domain.ApprovalRate(c))
			pv.ApprovalRateBefore = &r
		}
		if err := repo.CreatePromptVersion(ctx, tx, pv); err != nil {
			return err
		}
		if !activate {
			return nil
		}
		if err := repo.ActivatePromptVersion(ctx, tx, pv.ID); err != nil {
			return err
		}
		pv.IsActive = true
		return nil
	})
	if err != nil {
		if repo.IsDuplicate(err) {
			existing, gerr := repo.GetPromptVersion(ctx, s.DB, label)
			if gerr != nil {
				return nil, ErrPromptVersionExists
			}
			return existing, ErrPromptVersionExists
		}
		return nil, err
	}
	return pv, nil
}

// Activate makes label the only active version.
func (s *PromptService) Activate(ctx context.Context, label string) (*domain.PromptVersion, error) {
	ctx, span := promptTracer().Start(ctx, "Activate", trace.WithAttributes(attribute.String("prompt.version", label)))
	defer span.End()

	var out *domain.PromptVersion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pv, err := repo.GetPromptVersion(ctx, tx, label)
		if err != nil {
			return err
		}
		if err := repo.ActivatePromptVersion(ctx, tx, pv.ID); err != nil {
			return err
		}
		pv.IsActive = true
		out = pv
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPromptVersionNotFound
		}
		return nil, err
	}
	return out, nil
}

// List returns every version, newest first.
func (s *PromptService) List(ctx context.Context) ([]domain.PromptVersion, error) {
	return repo.ListPromptVersions(ctx, s.DB)
}

// Active returns the active version, or nil when none is active.
func (s *PromptService) Active(ctx context.Context) (*domain.PromptVersion, error) {
	pv, err := repo.ActivePromptVersion(ctx, s.DB)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return pv, err
}
