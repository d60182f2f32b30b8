package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/ports"
)

// Publisher moves approved drafts to published and records moderation decisions.
type Publisher struct {
	guard  *OwnershipGuard
	drafts ports.ElevatedDraftStore
	now    func() time.Time
	logger *slog.Logger
}

// NewPublisher constructs the publish and moderation use cases.
func NewPublisher(guard *OwnershipGuard, drafts ports.ElevatedDraftStore, logger *slog.Logger) *Publisher {
	return &Publisher{guard: guard, drafts: drafts, now: time.Now, logger: orDiscard(logger)}
}

// Publish checks ownership and the publish preconditions, then assigns the slug.
// Publishing an already published draft keeps its slug.
func (p *Publisher) Publish(ctx context.Context, sc domain.SubmissionContext, draftID uuid.UUID) (domain.EventDraft, error) {
	draft, err := p.guard.AuthorizeEditor(ctx, sc, draftID)
	if err != nil {
		return domain.EventDraft{}, err
	}
	if err := draft.CheckPublishable(); err != nil {
		return domain.EventDraft{}, err
	}
	if draft.Status == domain.StatusPublished && draft.Slug != "" {
		return draft, nil
	}

	slug := draft.Slug
	if slug == "" {
		slug = domain.Slugify(draft.Title, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	now := p.now()
	if err := p.drafts.Publish(ctx, draft.ID, slug, now); err != nil {
		return domain.EventDraft{}, fmt.Errorf("publish draft: %w", err)
	}

	draft.Status = domain.StatusPublished
	draft.Slug = slug
	draft.UpdatedAt = now
	p.logger.Info("draft published", "event_id", draft.ID, "slug", slug)
	return draft, nil
}

// Moderate records an administrator's decision. Pending is not a decision.
func (p *Publisher) Moderate(ctx context.Context, sc domain.SubmissionContext, draftID uuid.UUID, status domain.ModerationStatus, notes string) error {
	if err := AuthorizeAdmin(sc); err != nil {
		return err
	}
	if status != domain.ModerationApproved && status != domain.ModerationRejected {
		return fmt.Errorf("moderation status %q: %w", status, domain.ErrInvalidInput)
	}

	exists, err := p.drafts.Exists(ctx, draftID)
	if err != nil {
		return fmt.Errorf("load draft: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := p.drafts.SetModeration(ctx, draftID, status, notes); err != nil {
		return fmt.Errorf("set moderation: %w", err)
	}
	p.logger.Info("moderation decision recorded", "event_id", draftID, "status", status)
	return nil
}
