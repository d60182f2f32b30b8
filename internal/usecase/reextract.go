package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/ports"
	"PosterIntake/internal/source"
)

// ReextractDeps wires the authenticated re-extraction flow.
type ReextractDeps struct {
	Guard     *OwnershipGuard
	Sources   *source.Registry
	Extractor *Extractor
	Drafts    ports.ElevatedDraftStore
	Notifier  *AdminNotifier
	Now       func() time.Time
	Logger    *slog.Logger
}

// ReextractRequest names the draft and optionally a new source for it.
type ReextractRequest struct {
	EventID   uuid.UUID
	ImageURL  string
	SourceURL string
}

// Reextractor lets an owner re-run extraction on their own draft.
type Reextractor struct {
	guard     *OwnershipGuard
	sources   *source.Registry
	extractor *Extractor
	drafts    ports.ElevatedDraftStore
	notifier  *AdminNotifier
	now       func() time.Time
	logger    *slog.Logger
}

// NewReextractor constructs the re-extraction use case.
func NewReextractor(deps ReextractDeps) *Reextractor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Reextractor{
		guard:     deps.Guard,
		sources:   deps.Sources,
		extractor: deps.Extractor,
		drafts:    deps.Drafts,
		notifier:  deps.Notifier,
		now:       now,
		logger:    orDiscard(deps.Logger),
	}
}

// Reextract authorizes the caller, extracts, normalizes and persists. Nothing is
// written unless the caller owns the draft.
func (r *Reextractor) Reextract(ctx context.Context, sc domain.SubmissionContext, req ReextractRequest) (domain.ExtractionResult, error) {
	draft, err := r.guard.AuthorizeOwner(ctx, sc, req.EventID)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	content, sourceURL, err := r.content(ctx, draft, req)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	now := r.now()
	outcome := ExtractionOutcome(Unparseable{Reason: "draft has no source to extract from"})
	if content.HasImage() || content.PageText != "" {
		outcome = r.extractor.Extract(ctx, content, now.Year())
	}
	extracted, dates := NormalizeDates(Resolve(outcome, now), now)
	disp := Arbitrate(draft.ModerationStatus, draft.ModerationStatus, draft.ModerationNotes, extracted.ModerationWarning)

	if err := r.drafts.ApplyExtraction(ctx, draft.ID, draftUpdate(extracted, dates, disp, sourceURL)); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("update draft: %w", err)
	}
	r.logger.Info("re-extraction stored", "event_id", draft.ID, "moderation_status", disp.Status)

	if disp.Notify && r.notifier != nil {
		r.notifier.NotifyAsync(ctx, AdminAlert{EventID: draft.ID, Title: extracted.Title, Reason: disp.Notes})
	}
	return extracted, nil
}

// content prefers the request's sources and falls back to what the draft already references.
func (r *Reextractor) content(ctx context.Context, draft domain.EventDraft, req ReextractRequest) (domain.PosterContent, string, error) {
	var picked source.Request
	switch {
	case req.ImageURL != "":
		picked = source.Request{Kind: source.KindImageURL, Value: req.ImageURL}
	case req.SourceURL != "":
		picked = source.Request{Kind: source.KindPageURL, Value: req.SourceURL}
	case draft.PosterPublicURL != "":
		return domain.PosterContent{ImageURL: draft.PosterPublicURL}, draft.SourceURL, nil
	case draft.SourceURL != "":
		picked = source.Request{Kind: source.KindPageURL, Value: draft.SourceURL}
	default:
		return domain.PosterContent{}, "", nil
	}

	resolved, err := r.sources.Resolve(ctx, picked)
	if err != nil {
		return domain.PosterContent{}, "", fmt.Errorf("resolve %s: %w", picked.Kind, err)
	}
	sourceURL := draft.SourceURL
	if resolved.Content.SourceURL != "" {
		sourceURL = resolved.Content.SourceURL
	}
	return resolved.Content, sourceURL, nil
}
