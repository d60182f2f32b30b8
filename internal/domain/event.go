package domain

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus is the publication lifecycle of an event.
type DraftStatus string

const (
	StatusDraft     DraftStatus = "draft"
	StatusPublished DraftStatus = "published"
)

// ModerationStatus gates public visibility of a draft.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Valid reports whether s is a known moderation state.
func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	}
	return false
}

// AgeRestriction is the audience classification of an event.
type AgeRestriction string

const (
	AllAges AgeRestriction = "all_ages"
	Age16   AgeRestriction = "16+"
	Age18   AgeRestriction = "18+"
	Age21   AgeRestriction = "21+"
)

// ParseAgeRestriction maps free text to a known restriction, defaulting to all ages.
func ParseAgeRestriction(v string) AgeRestriction {
	switch AgeRestriction(v) {
	case Age16, Age18, Age21:
		return AgeRestriction(v)
	}
	return AllAges
}

// Known content flags. Anything else the model returns is dropped.
var ContentFlags = map[string]struct{}{
	"nightclub": {},
	"alcohol":   {},
	"adult":     {},
	"cannabis":  {},
	"gambling":  {},
	"tobacco":   {},
}

const (
	DefaultTimezone = "Europe/Berlin"
	UntitledEvent   = "Untitled Event"
)

// EventDraft is the durable event record. Empty strings stand for NULL columns.
type EventDraft struct {
	ID                uuid.UUID
	OwnerID           *uuid.UUID
	EditToken         string
	Status            DraftStatus
	ModerationStatus  ModerationStatus
	ModerationNotes   string
	Title             string
	StartAt           time.Time
	EndAt             *time.Time
	Timezone          string
	City              string
	Venue             string
	Address           string
	Description       string
	TicketURL         string
	Tags              []string
	PosterPath        string
	PosterPublicURL   string
	SourceURL         string
	ConfidenceOverall float64
	Confidence        map[string]float64
	Evidence          map[string]string
	AgeRestriction    AgeRestriction
	ContentFlags      []string
	Slug              string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewAnonymousDraft builds the placeholder row inserted right after screening accepts a submission.
func NewAnonymousDraft(now time.Time, moderation ModerationStatus, notes string) EventDraft {
	return EventDraft{
		ID:               uuid.New(),
		EditToken:        uuid.NewString(),
		Status:           StatusDraft,
		ModerationStatus: moderation,
		ModerationNotes:  notes,
		Title:            UntitledEvent,
		StartAt:          now,
		Timezone:         DefaultTimezone,
		AgeRestriction:   AllAges,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// DraftUpdate carries the extracted fields persisted after extraction.
type DraftUpdate struct {
	Title             string
	StartAt           time.Time
	EndAt             *time.Time
	Timezone          string
	City              string
	Venue             string
	Address           string
	Description       string
	TicketURL         string
	Tags              []string
	SourceURL         string
	ConfidenceOverall float64
	Confidence        map[string]float64
	Evidence          map[string]string
	AgeRestriction    AgeRestriction
	ContentFlags      []string
	ModerationStatus  ModerationStatus
	ModerationNotes   string
}

// PosterContent is what the model gateway sees: an image reference or page text.
type PosterContent struct {
	// ImageURL is either a remote URL or a data: URI.
	ImageURL  string
	PageText  string
	SourceURL string
}

// HasImage reports whether the content is an image rather than page text.
func (c PosterContent) HasImage() bool { return c.ImageURL != "" }

// AnalyticsKind enumerates trackable interactions.
type AnalyticsKind string

const (
	KindView        AnalyticsKind = "view"
	KindTicketClick AnalyticsKind = "ticket_click"
)

// Valid reports whether k is a known counter kind.
func (k AnalyticsKind) Valid() bool {
	return k == KindView || k == KindTicketClick
}

// AnalyticsCounter is one persisted interaction. No viewer identity is stored.
type AnalyticsCounter struct {
	SubjectID  uuid.UUID
	Kind       AnalyticsKind
	RecordedAt time.Time
}

// AdminRole links a user to a role in the identity store.
type AdminRole struct {
	UserID uuid.UUID
	Role   string
}

const RoleAdmin = "admin"

// MailMessage is one outbound email.
type MailMessage struct {
	To      []string
	Subject string
	HTML    string
}
