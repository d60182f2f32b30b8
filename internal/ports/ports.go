package ports

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"PosterIntake/internal/domain"
)

// ModelGateway sends one prompt (optionally with an image) to a vision/text model
// and returns the raw text of the first choice.
type ModelGateway interface {
	Complete(ctx context.Context, prompt string, imageURL string) (string, error)
}

// PageFetcher downloads a validated remote page and returns its readable text.
type PageFetcher interface {
	FetchText(ctx context.Context, target *url.URL) (string, error)
}

// PosterStore keeps uploaded poster images and exposes them publicly.
type PosterStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (publicURL string, err error)
}

// ScopedDraftReader reads drafts on behalf of a caller, honouring row ownership.
// A draft the caller does not own is indistinguishable from a missing one.
type ScopedDraftReader interface {
	FindOwned(ctx context.Context, ownerID, draftID uuid.UUID) (domain.EventDraft, error)
}

// ElevatedDraftStore performs unscoped reads and writes. Only use it after an
// authorization decision has been made.
type ElevatedDraftStore interface {
	Create(ctx context.Context, draft domain.EventDraft) (domain.EventDraft, error)
	Get(ctx context.Context, id uuid.UUID) (domain.EventDraft, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ApplyExtraction(ctx context.Context, id uuid.UUID, update domain.DraftUpdate) error
	SetModeration(ctx context.Context, id uuid.UUID, status domain.ModerationStatus, notes string) error
	Publish(ctx context.Context, id uuid.UUID, slug string, at time.Time) error
}

// CounterRepository persists deduplicated analytics counters.
type CounterRepository interface {
	DraftStatus(ctx context.Context, id uuid.UUID) (domain.DraftStatus, error)
	InsertCounter(ctx context.Context, counter domain.AnalyticsCounter) error
}

// AdminDirectory resolves reviewers from the identity/role store.
type AdminDirectory interface {
	AdminUserIDs(ctx context.Context) ([]uuid.UUID, error)
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}

// Mailer delivers one message to a list of recipients.
type Mailer interface {
	Send(ctx context.Context, msg domain.MailMessage) error
}

// RecencyStore remembers recently seen keys for a fixed window.
type RecencyStore interface {
	SeenWithin(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error)
	Mark(ctx context.Context, key string, now time.Time, window time.Duration) error
	Prune(ctx context.Context, now time.Time, window time.Duration) (int, error)
}

// Scheduler controls when background jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
