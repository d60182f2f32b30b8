package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/source"
)

var intakeNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type intakeFixture struct {
	intake  *Intake
	gateway *scriptedGateway
	drafts  *memDrafts
	posters *memPosters
	mailer  *recordingMailer
	notify  *AdminNotifier
}

func newIntakeFixture(answers ...string) *intakeFixture {
	admin := uuid.New()
	f := &intakeFixture{
		gateway: &scriptedGateway{answers: answers},
		drafts:  newMemDrafts(),
		posters: &memPosters{},
		mailer:  &recordingMailer{},
	}
	f.notify = NewAdminNotifier(staticDirectory{
		admins: []uuid.UUID{admin},
		emails: map[uuid.UUID]string{admin: "admin@example.com"},
	}, f.mailer, nil)
	f.intake = NewIntake(IntakeDeps{
		Sources:   source.NewDefaultRegistry(nil, 0),
		Screener:  NewScreener(f.gateway, nil),
		Extractor: NewExtractor(f.gateway, nil),
		Drafts:    f.drafts,
		Posters:   f.posters,
		Notifier:  f.notify,
		Now:       func() time.Time { return intakeNow },
	})
	return f
}

const goodExtraction = `{"title":"Jazz Brunch","start_at":"2026-05-10T11:00:00","city":"Hamburg","confidence":{"overall":0.85}}`

func TestSubmitRejectsWithoutCreatingDraft(t *testing.T) {
	for score := 1; score < 4; score++ {
		f := newIntakeFixture(`{"is_poster":false,"poster_score":` + string(rune('0'+score)) + `,"safety":"safe","reason":"selfie"}`)

		res, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "https://img.example.com/selfie.jpg"})
		require.NoError(t, err)
		assert.True(t, res.Rejected)
		assert.Equal(t, rejectNotPoster, res.Reason)
		assert.Zero(t, f.drafts.count())
		assert.Equal(t, 1, f.gateway.callCount(), "extraction must not run")
	}
}

func TestSubmitRejectsUnsafeRegardlessOfScore(t *testing.T) {
	f := newIntakeFixture(`{"is_poster":true,"poster_score":10,"safety":"unsafe","reason":"drug sale"}`)

	res, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "https://img.example.com/p.jpg"})
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Equal(t, rejectPolicy, res.Reason)
	assert.Zero(t, f.drafts.count())
}

func TestSubmitAcceptsAndExtracts(t *testing.T) {
	f := newIntakeFixture(`{"is_poster":true,"poster_score":9,"safety":"safe","reason":"flyer"}`, goodExtraction)

	res, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "https://img.example.com/p.jpg"})
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, messageAccepted, res.Message)

	stored, err := f.drafts.Get(context.Background(), res.Draft.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.OwnerID)
	assert.NotEmpty(t, stored.EditToken)
	assert.Equal(t, res.Draft.EditToken, stored.EditToken)
	assert.Equal(t, domain.ModerationApproved, stored.ModerationStatus)
	assert.Equal(t, "Jazz Brunch", stored.Title)
	assert.Equal(t, "Hamburg", stored.City)
	assert.Equal(t, 0.85, stored.ConfidenceOverall)
	assert.Equal(t, "https://img.example.com/p.jpg", stored.PosterPublicURL)

	f.notify.Wait()
	assert.Zero(t, f.mailer.count())
}

func TestSubmitWarningForcesPendingAndNotifiesOnce(t *testing.T) {
	warning := `{"title":"Party","start_at":"2026-05-20T22:00:00","moderation_warning":"Advertises illegal substances"}`
	f := newIntakeFixture(`{"is_poster":true,"poster_score":6,"safety":"safe","reason":"blurry flyer"}`, warning)

	res, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "https://img.example.com/p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, messagePending, res.Message)
	assert.Equal(t, domain.ModerationPending, res.Draft.ModerationStatus)
	assert.Equal(t, "Advertises illegal substances", res.Draft.ModerationNotes)

	f.notify.Wait()
	assert.Equal(t, 1, f.mailer.count())
}

func TestSubmitWarningOverridesApproval(t *testing.T) {
	warning := `{"title":"Party","start_at":"2026-05-20T22:00:00","moderation_warning":"Explicit content"}`
	f := newIntakeFixture(`{"is_poster":true,"poster_score":9,"safety":"safe","reason":"flyer"}`, warning)

	res, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "https://img.example.com/p.jpg"})
	require.NoError(t, err)

	stored, err := f.drafts.Get(context.Background(), res.Draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationPending, stored.ModerationStatus)
}

func TestSubmitUnparseableModelStillYieldsDraft(t *testing.T) {
	f := newIntakeFixture("I'm not sure what this is.")

	res, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "https://img.example.com/p.jpg"})
	require.NoError(t, err)
	require.False(t, res.Rejected)
	assert.Equal(t, domain.ModerationPending, res.Draft.ModerationStatus)
	assert.Equal(t, domain.UntitledEvent, res.Draft.Title)
	assert.Equal(t, placeholderConfidence, res.Draft.ConfidenceOverall)
	assert.Equal(t, 1, f.drafts.count())

	f.notify.Wait()
	assert.Equal(t, 1, f.mailer.count())
}

func TestSubmitUploadsInlineImage(t *testing.T) {
	f := newIntakeFixture(`{"is_poster":true,"poster_score":8,"safety":"safe","reason":"flyer"}`, goodExtraction)
	png := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

	res, err := f.intake.Submit(context.Background(), SubmitRequest{ImageBase64: png})
	require.NoError(t, err)
	require.Len(t, f.posters.keys, 1)
	assert.Regexp(t, regexp.MustCompile(`^anonymous/\d+-[0-9a-f]{8}\.png$`), f.posters.keys[0])
	assert.Equal(t, f.posters.keys[0], res.Draft.PosterPath)
	assert.Contains(t, res.Draft.PosterPublicURL, f.posters.keys[0])
	assert.Contains(t, f.gateway.calls[0].ImageURL, "data:image/png;base64,")
}

func TestSubmitFailsClosedWhenScreeningUnavailable(t *testing.T) {
	f := newIntakeFixture()
	f.gateway.errs = []error{domain.ErrUpstreamBusy}

	_, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "https://img.example.com/p.jpg"})
	assert.ErrorIs(t, err, domain.ErrUpstreamBusy)
	assert.Zero(t, f.drafts.count())
}

func TestSubmitRejectsForbiddenHostsBeforeScreening(t *testing.T) {
	f := newIntakeFixture()

	_, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "http://169.254.169.254/latest"})
	assert.ErrorIs(t, err, domain.ErrForbiddenHost)
	assert.Zero(t, f.gateway.callCount())
}

func TestSubmitKeepsDraftWhenExtractionWriteFails(t *testing.T) {
	f := newIntakeFixture(`{"is_poster":true,"poster_score":9,"safety":"safe","reason":"flyer"}`, goodExtraction)
	f.drafts.failApply = errors.New("deadlock")

	res, err := f.intake.Submit(context.Background(), SubmitRequest{ImageURL: "https://img.example.com/p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationApproved, res.Draft.ModerationStatus)
	assert.Equal(t, domain.UntitledEvent, res.Draft.Title)
	assert.Equal(t, 1, f.drafts.count())
}

func TestPosterKey(t *testing.T) {
	key := PosterKey(time.UnixMilli(1700000000123), "")
	assert.Regexp(t, `^anonymous/1700000000123-[0-9a-f]{8}\.jpg$`, key)
}
