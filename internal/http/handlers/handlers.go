// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they bind and validate input, call the
// application services through the interfaces below, and translate results
// into HTTP responses (including conditional and idempotent-replay ones).
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/smm-pipeline/internal/domain"
	"github.com/tbourn/smm-pipeline/internal/http/middleware"
	"github.com/tbourn/smm-pipeline/internal/repo"
	"github.com/tbourn/smm-pipeline/internal/services"
)

//
// Service contracts (context-aware)
//

// ItemService covers the content item store and its status machine.
type ItemService interface {
	Create(ctx context.Context, in services.CreateItemInput) (*domain.ContentItem, error)
	Get(ctx context.Context, id string) (*domain.ContentItem, error)
	List(ctx context.Context, in services.ListItemsInput) ([]domain.ContentItem, int64, error)
	Filter(status, platform string) (repo.ItemFilter, error)
	Stats(ctx context.Context, f repo.ItemFilter) (int64, *time.Time, error)
	CountsByStatus(ctx context.Context) (map[domain.Status]int64, error)
	CountsByPlatform(ctx context.Context) (map[domain.Platform]int64, error)
	AdminOverride(ctx context.Context, id string, p services.ItemPatch) (*domain.ContentItem, error)
	Approve(ctx context.Context, id string) (*domain.ContentItem, error)
	Reject(ctx context.Context, id string) (*domain.ContentItem, error)
	Submit(ctx context.Context, id string) (*domain.ContentItem, error)
	Publish(ctx context.Context, id string) (*domain.ContentItem, error)
	Delete(ctx context.Context, id string) error
	Similar(ctx context.Context, query string, k int) ([]services.SimilarItem, error)
}

// FeedbackService covers the feedback ledger.
type FeedbackService interface {
	Record(ctx context.Context, itemID string, in services.RecordFeedbackInput) (*domain.Feedback, error)
	Get(ctx context.Context, id string) (*domain.Feedback, error)
	ListForItem(ctx context.Context, itemID string) ([]domain.Feedback, error)
	ListRecent(ctx context.Context, kind string, limit int) ([]domain.Feedback, int64, error)
	Stats(ctx context.Context, days int) (*services.FeedbackStats, error)
}

// DecisionService covers the agent decision ledger.
type DecisionService interface {
	Record(ctx context.Context, in services.RecordDecisionInput) (*domain.AgentDecision, error)
	Recent(ctx context.Context, kind string, limit int) ([]domain.AgentDecision, error)
}

// LearningService covers learning-loop audit events.
type LearningService interface {
	Record(ctx context.Context, in services.RecordLearningInput) (*domain.LearningEvent, error)
	List(ctx context.Context, kind string, limit int) ([]domain.LearningEvent, error)
}

// PromptService covers the prompt version registry.
type PromptService interface {
	Create(ctx context.Context, in services.CreatePromptInput) (*domain.PromptVersion, error)
	Activate(ctx context.Context, label string) (*domain.PromptVersion, error)
	List(ctx context.Context) ([]domain.PromptVersion, error)
}

// AgentService exposes the derived agent read model and rollback.
type AgentService interface {
	Status(ctx context.Context) (*services.AgentStatus, error)
	Insights(ctx context.Context, days int) (*services.LearningInsights, error)
	Health(ctx context.Context) (*services.AgentHealth, error)
	Rollback(ctx context.Context, level int, reason string) (*services.RollbackAck, error)
}

// IdempotencyStore remembers which resource a create produced for a
// (scope, key) pair. Lookup returns nil, nil when nothing valid is stored.
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error)
	Save(ctx context.Context, scope, key, resourceID string, status int, ttl time.Duration) error
}

//
// Handler wiring
//

// Deps bundles what the handlers need. Idempotency may be nil, which turns
// Idempotency-Key handling off.
type Deps struct {
	Items          ItemService
	Feedback       FeedbackService
	Decisions      DecisionService
	Learning       LearningService
	Prompts        PromptService
	Agent          AgentService
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
}

// Handlers groups the HTTP endpoints of the content pipeline.
type Handlers struct {
	items     ItemService
	feedback  FeedbackService
	decisions DecisionService
	learning  LearningService
	prompts   PromptService
	agent     AgentService
	idem      IdempotencyStore
	idemTTL   time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	ttl := d.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handlers{
		items:     d.Items,
		feedback:  d.Feedback,
		decisions: d.Decisions,
		learning:  d.Learning,
		prompts:   d.Prompts,
		agent:     d.Agent,
		idem:      d.Idempotency,
		idemTTL:   ttl,
	}
}

//
// Idempotency helpers
//

// Idempotency scopes. Feedback keys are scoped per item.
const (
	scopeItems          = "items"
	scopeFeedbackPrefix = "feedback:"
)

// IdempotencyScope maps a request to its idempotency scope: "items" for
// POST .../items and "feedback:<id>" for POST .../items/:id/feedback. Every
// other request is unscoped (""). It is shared with the validator middleware.
func IdempotencyScope(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	p := c.FullPath()
	switch {
	case strings.HasSuffix(p, "/items/:id/feedback"):
		return scopeFeedbackPrefix + c.Param("id")
	case strings.HasSuffix(p, "/items"):
		return scopeItems
	}
	return ""
}

// idempotencyKey returns the key validated by middleware, falling back to the
// raw header when no validator ran.
func idempotencyKey(c *gin.Context) string {
	if k, ok := middleware.GetIdempotencyKey(c); ok {
		return k
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

// replayed looks up a prior result for the request. It returns the stored
// record or nil; lookup failures are logged and treated as a miss.
func (h *Handlers) replayed(c *gin.Context, scope string) *domain.Idempotency {
	key := idempotencyKey(c)
	if h.idem == nil || key == "" {
		return nil
	}
	rec, err := h.idem.Lookup(c.Request.Context(), scope, key, time.Now().UTC())
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
		return nil
	}
	return rec
}

// remember stores the created resource under the request's key, best effort.
func (h *Handlers) remember(c *gin.Context, scope, resourceID string, status int) {
	key := idempotencyKey(c)
	if h.idem == nil || key == "" {
		return
	}
	if err := h.idem.Save(c.Request.Context(), scope, key, resourceID, status, h.idemTTL); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency store failed")
	}
}

// replay writes a previously created resource with the replay marker.
func replay(c *gin.Context, status int, body any) {
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	ok(c, status, body)
}
