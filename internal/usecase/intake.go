package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/metrics"
	"PosterIntake/internal/ports"
	"PosterIntake/internal/source"
)

const (
	messagePending  = "Your poster has been submitted and is pending review."
	messageAccepted = "Your poster has been accepted!"
)

// IntakeDeps wires all driven adapters into the anonymous submission flow.
type IntakeDeps struct {
	Sources   *source.Registry
	Screener  *Screener
	Extractor *Extractor
	Drafts    ports.ElevatedDraftStore
	Posters   ports.PosterStore
	Notifier  *AdminNotifier
	Now       func() time.Time
	Logger    *slog.Logger
}

// SubmitRequest is an anonymous poster submission. Exactly one field is set.
type SubmitRequest struct {
	ImageBase64 string
	ImageURL    string
	SourceURL   string
}

// SubmitResult is either a rejection or the created draft.
type SubmitResult struct {
	Rejected bool
	Reason   string
	Draft    domain.EventDraft
	Message  string
}

// Intake implements the anonymous submission workflow.
type Intake struct {
	sources   *source.Registry
	screener  *Screener
	extractor *Extractor
	drafts    ports.ElevatedDraftStore
	posters   ports.PosterStore
	notifier  *AdminNotifier
	now       func() time.Time
	logger    *slog.Logger
}

// NewIntake constructs the orchestration component.
func NewIntake(deps IntakeDeps) *Intake {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Intake{
		sources:   deps.Sources,
		screener:  deps.Screener,
		extractor: deps.Extractor,
		drafts:    deps.Drafts,
		posters:   deps.Posters,
		notifier:  deps.Notifier,
		now:       now,
		logger:    orDiscard(deps.Logger),
	}
}

// Submit screens the content, creates the draft, extracts its fields and routes
// it to review when needed. A rejection creates nothing.
func (i *Intake) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	picked, err := source.Pick(req.ImageBase64, req.ImageURL, req.SourceURL)
	if err != nil {
		return SubmitResult{}, err
	}
	resolved, err := i.sources.Resolve(ctx, picked)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("resolve %s: %w", picked.Kind, err)
	}

	verdict, err := i.screener.Screen(ctx, resolved.Content)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return SubmitResult{}, err
	}
	decision := Decide(verdict)
	if !decision.Accepted {
		i.logger.Info("submission rejected", "score", verdict.PosterScore, "safety", verdict.Safety, "source", picked.Kind)
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return SubmitResult{Rejected: true, Reason: decision.RejectReason}, nil
	}

	now := i.now()
	draft := domain.NewAnonymousDraft(now, decision.Moderation, decision.Notes)
	draft.SourceURL = resolved.Content.SourceURL
	if picked.Kind == source.KindImageURL {
		draft.PosterPublicURL = resolved.Content.ImageURL
	}
	if resolved.Upload != nil {
		if err := i.storePoster(ctx, &draft, resolved.Upload, now); err != nil {
			metrics.SubmissionsTotal.WithLabelValues("error").Inc()
			return SubmitResult{}, err
		}
	}

	draft, err = i.drafts.Create(ctx, draft)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return SubmitResult{}, fmt.Errorf("create draft: %w", err)
	}
	i.logger.Info("created anonymous draft", "event_id", draft.ID, "moderation_status", draft.ModerationStatus)

	outcome := i.extractor.Extract(ctx, resolved.Content, now.Year())
	extracted, dates := NormalizeDates(Resolve(outcome, now), now)
	disp := Arbitrate("", decision.Moderation, decision.Notes, extracted.ModerationWarning)

	update := draftUpdate(extracted, dates, disp, draft.SourceURL)
	if err := i.drafts.ApplyExtraction(ctx, draft.ID, update); err != nil {
		// The draft already exists with its screening disposition; keep it.
		i.logger.Error("persist extraction failed", "event_id", draft.ID, "error", err)
		disp = Arbitrate("", decision.Moderation, decision.Notes, "")
	} else {
		applyUpdate(&draft, update)
	}
	draft.ModerationStatus = disp.Status
	draft.ModerationNotes = disp.Notes

	if disp.Notify && i.notifier != nil {
		i.notifier.NotifyAsync(ctx, AdminAlert{EventID: draft.ID, Title: draft.Title, Reason: disp.Notes})
	}

	result := SubmitResult{Draft: draft, Message: messageAccepted}
	status := "accepted"
	if draft.ModerationStatus == domain.ModerationPending {
		result.Message = messagePending
		status = "pending_review"
	}
	metrics.SubmissionsTotal.WithLabelValues(status).Inc()
	return result, nil
}

func (i *Intake) storePoster(ctx context.Context, draft *domain.EventDraft, up *source.Upload, now time.Time) error {
	if i.posters == nil {
		return domain.ErrPosterStorageNotConfigured
	}
	key := PosterKey(now, up.Extension)
	publicURL, err := i.posters.Upload(ctx, key, up.Body, up.ContentType)
	if err != nil {
		return fmt.Errorf("store poster: %w", err)
	}
	draft.PosterPath = key
	draft.PosterPublicURL = publicURL
	return nil
}

// PosterKey names an anonymous upload: anonymous/<unix-ms>-<8 hex>.<ext>.
func PosterKey(now time.Time, ext string) string {
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("anonymous/%d-%s.%s", now.UnixMilli(), uuid.NewString()[:8], ext)
}

func draftUpdate(res domain.ExtractionResult, dates NormalizedDates, disp Disposition, sourceURL string) domain.DraftUpdate {
	return domain.DraftUpdate{
		Title:             res.Title,
		StartAt:           dates.StartAt,
		EndAt:             dates.EndAt,
		Timezone:          res.Timezone,
		City:              res.City,
		Venue:             res.Venue,
		Address:           res.Address,
		Description:       res.Description,
		TicketURL:         res.TicketURL,
		Tags:              res.Tags,
		SourceURL:         sourceURL,
		ConfidenceOverall: res.Overall(),
		Confidence:        res.Confidence,
		Evidence:          res.Evidence,
		AgeRestriction:    res.AgeRestriction,
		ContentFlags:      res.ContentFlags,
		ModerationStatus:  disp.Status,
		ModerationNotes:   disp.Notes,
	}
}

func applyUpdate(d *domain.EventDraft, u domain.DraftUpdate) {
	d.Title = u.Title
	d.StartAt = u.StartAt
	d.EndAt = u.EndAt
	d.Timezone = u.Timezone
	d.City = u.City
	d.Venue = u.Venue
	d.Address = u.Address
	d.Description = u.Description
	d.TicketURL = u.TicketURL
	d.Tags = u.Tags
	d.SourceURL = u.SourceURL
	d.ConfidenceOverall = u.ConfidenceOverall
	d.Confidence = u.Confidence
	d.Evidence = u.Evidence
	d.AgeRestriction = u.AgeRestriction
	d.ContentFlags = u.ContentFlags
	d.ModerationStatus = u.ModerationStatus
	d.ModerationNotes = u.ModerationNotes
	d.Status = domain.StatusAfterModeration(d.Status, u.ModerationStatus)
}
