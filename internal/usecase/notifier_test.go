package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySendsOneEmailToAllAdmins(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	dir := staticDirectory{
		admins: []uuid.UUID{a, b, c},
		emails: map[uuid.UUID]string{a: "a@example.com", b: "b@example.com"},
	}
	mailer := &recordingMailer{}
	n := NewAdminNotifier(dir, mailer, nil)

	alert := AdminAlert{EventID: uuid.New(), Title: "<b>Rave</b>", Reason: "AI screening: unclear"}
	count, err := n.Notify(context.Background(), alert)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.To)
	assert.Equal(t, "Event Pending Review: <b>Rave</b>", msg.Subject)
	assert.Contains(t, msg.HTML, alert.EventID.String())
	assert.Contains(t, msg.HTML, "&lt;b&gt;Rave&lt;/b&gt;")
	assert.Contains(t, msg.HTML, "AI screening: unclear")
}

func TestNotifyWithNobodyIsSuccess(t *testing.T) {
	mailer := &recordingMailer{}

	count, err := NewAdminNotifier(staticDirectory{}, mailer, nil).Notify(context.Background(), AdminAlert{EventID: uuid.New()})
	require.NoError(t, err)
	assert.Zero(t, count)

	dir := staticDirectory{admins: []uuid.UUID{uuid.New()}}
	count, err = NewAdminNotifier(dir, mailer, nil).Notify(context.Background(), AdminAlert{EventID: uuid.New()})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, mailer.count())

	count, err = NewAdminNotifier(nil, nil, nil).Notify(context.Background(), AdminAlert{EventID: uuid.New()})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotifyReportsDeliveryFailure(t *testing.T) {
	id := uuid.New()
	dir := staticDirectory{admins: []uuid.UUID{id}, emails: map[uuid.UUID]string{id: "ops@example.com"}}
	n := NewAdminNotifier(dir, &recordingMailer{err: errors.New("smtp down")}, nil)

	_, err := n.Notify(context.Background(), AdminAlert{EventID: uuid.New()})
	assert.Error(t, err)
}

func TestNotifyAsyncSurvivesCallerCancellation(t *testing.T) {
	id := uuid.New()
	dir := staticDirectory{admins: []uuid.UUID{id}, emails: map[uuid.UUID]string{id: "ops@example.com"}}
	mailer := &recordingMailer{}
	n := NewAdminNotifier(dir, mailer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.NotifyAsync(ctx, AdminAlert{EventID: uuid.New(), Title: "Late show"})
	n.Wait()

	assert.Equal(t, 1, mailer.count())
}

func TestConfigured(t *testing.T) {
	assert.True(t, NewAdminNotifier(staticDirectory{}, &recordingMailer{}, nil).Configured())
	assert.False(t, NewAdminNotifier(staticDirectory{}, nil, nil).Configured())
	assert.False(t, NewAdminNotifier(nil, &recordingMailer{}, nil).Configured())

	var n *AdminNotifier
	assert.False(t, n.Configured())
}
