package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PosterIntake/internal/domain"
)

func publishable(owner uuid.UUID) domain.EventDraft {
	d := ownedDraft(owner)
	d.Title = "Summer Jazz"
	d.City = "Leipzig"
	return d
}

func TestPublishRequiresApproval(t *testing.T) {
	drafts := newMemDrafts()
	owner := uuid.New()
	d := publishable(owner)
	d.ModerationStatus = domain.ModerationPending
	drafts.put(d)

	p := NewPublisher(NewOwnershipGuard(drafts, drafts), drafts, nil)
	_, err := p.Publish(context.Background(), domain.Authenticated{OwnerID: owner}, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotPublishable)
	assert.Zero(t, drafts.writeCount())
}

func TestPublishAssignsSlugOnce(t *testing.T) {
	drafts := newMemDrafts()
	owner := uuid.New()
	d := publishable(owner)
	drafts.put(d)
	p := NewPublisher(NewOwnershipGuard(drafts, drafts), drafts, nil)

	out, err := p.Publish(context.Background(), domain.Authenticated{OwnerID: owner}, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, out.Status)
	assert.Regexp(t, `^summer-jazz-[0-9a-f]{8}$`, out.Slug)

	again, err := p.Publish(context.Background(), domain.Authenticated{OwnerID: owner}, d.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Slug, again.Slug)
	assert.Equal(t, 1, drafts.writeCount())
}

func TestPublishWithEditToken(t *testing.T) {
	drafts := newMemDrafts()
	d := domain.NewAnonymousDraft(intakeNow, domain.ModerationApproved, "")
	d.Title, d.City = "Flea Market", "Köln"
	drafts.put(d)
	p := NewPublisher(NewOwnershipGuard(drafts, drafts), drafts, nil)

	_, err := p.Publish(context.Background(), domain.Anonymous{EditToken: "wrong"}, d.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = p.Publish(context.Background(), domain.Authenticated{OwnerID: uuid.New()}, d.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	out, err := p.Publish(context.Background(), domain.Anonymous{EditToken: d.EditToken}, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, out.Status)
}

func TestModerateRequiresAdmin(t *testing.T) {
	drafts := newMemDrafts()
	d := publishable(uuid.New())
	d.ModerationStatus = domain.ModerationPending
	drafts.put(d)
	p := NewPublisher(NewOwnershipGuard(drafts, drafts), drafts, nil)

	err := p.Moderate(context.Background(), domain.Authenticated{OwnerID: uuid.New()}, d.ID, domain.ModerationApproved, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	admin := domain.Authenticated{OwnerID: uuid.New(), Admin: true}
	err = p.Moderate(context.Background(), admin, d.ID, domain.ModerationPending, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = p.Moderate(context.Background(), admin, uuid.New(), domain.ModerationApproved, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, p.Moderate(context.Background(), admin, d.ID, domain.ModerationApproved, "looks fine"))
	stored, _ := drafts.Get(context.Background(), d.ID)
	assert.Equal(t, domain.ModerationApproved, stored.ModerationStatus)
	assert.Equal(t, "looks fine", stored.ModerationNotes)
}

func TestRejectingPublishedDraftUnpublishes(t *testing.T) {
	drafts := newMemDrafts()
	owner := uuid.New()
	d := publishable(owner)
	drafts.put(d)
	p := NewPublisher(NewOwnershipGuard(drafts, drafts), drafts, nil)

	_, err := p.Publish(context.Background(), domain.Authenticated{OwnerID: owner}, d.ID)
	require.NoError(t, err)

	admin := domain.Authenticated{OwnerID: uuid.New(), Admin: true}
	require.NoError(t, p.Moderate(context.Background(), admin, d.ID, domain.ModerationRejected, "spam"))

	stored, _ := drafts.Get(context.Background(), d.ID)
	assert.Equal(t, domain.StatusDraft, stored.Status)
	assert.Equal(t, domain.ModerationRejected, stored.ModerationStatus)
	assert.NotEmpty(t, stored.Slug, "slug is kept for a later re-publish")

	_, err = p.Publish(context.Background(), domain.Authenticated{OwnerID: owner}, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotPublishable)
}
