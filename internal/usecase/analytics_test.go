package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PosterIntake/internal/domain"
)

func newLimiter(statuses map[uuid.UUID]domain.DraftStatus) (*AnalyticsLimiter, *memCounters, *mapRecency, *time.Time) {
	counters := &memCounters{statuses: statuses}
	recency := newMapRecency()
	clock := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	l := NewAnalyticsLimiter(counters, recency, 0, nil)
	l.now = func() time.Time { return clock }
	return l, counters, recency, &clock
}

func TestTrackDeduplicatesWithinWindow(t *testing.T) {
	event := uuid.New()
	l, counters, _, clock := newLimiter(map[uuid.UUID]domain.DraftStatus{event: domain.StatusPublished})
	req := TrackRequest{Source: "203.0.113.7", SubjectID: event, Kind: domain.KindView}

	first, err := l.Track(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)

	second, err := l.Track(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Len(t, counters.rows, 1)

	other := req
	other.Kind = domain.KindTicketClick
	_, err = l.Track(context.Background(), other)
	require.NoError(t, err)
	assert.Len(t, counters.rows, 2, "different kind is a different key")

	*clock = clock.Add(DefaultDedupWindow)
	_, err = l.Track(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, counters.rows, 3, "window elapsed")
}

func TestTrackRequiresPublishedSubject(t *testing.T) {
	draft, missing := uuid.New(), uuid.New()
	l, counters, recency, _ := newLimiter(map[uuid.UUID]domain.DraftStatus{draft: domain.StatusDraft})

	_, err := l.Track(context.Background(), TrackRequest{SubjectID: draft, Kind: domain.KindView})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = l.Track(context.Background(), TrackRequest{SubjectID: missing, Kind: domain.KindView})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, counters.rows)
	assert.Empty(t, recency.seen, "failed attempts must not mark the key")
}

func TestTrackValidatesInput(t *testing.T) {
	l, _, _, _ := newLimiter(nil)

	_, err := l.Track(context.Background(), TrackRequest{Kind: domain.KindView})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = l.Track(context.Background(), TrackRequest{SubjectID: uuid.New(), Kind: "share"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPruneDropsExpiredKeys(t *testing.T) {
	event := uuid.New()
	l, _, recency, clock := newLimiter(map[uuid.UUID]domain.DraftStatus{event: domain.StatusPublished})

	_, err := l.Track(context.Background(), TrackRequest{Source: "a", SubjectID: event, Kind: domain.KindView})
	require.NoError(t, err)

	n, err := l.Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	*clock = clock.Add(DefaultDedupWindow + time.Second)
	n, err = l.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, recency.seen)
}
