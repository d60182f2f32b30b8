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
)

// DefaultDedupWindow is how long a (source, subject, kind) key suppresses repeats.
const DefaultDedupWindow = 5 * time.Minute

// TrackRequest is one reported interaction.
type TrackRequest struct {
	Source    string
	SubjectID uuid.UUID
	Kind      domain.AnalyticsKind
}

// TrackResult tells whether the interaction was persisted or suppressed.
type TrackResult struct {
	Deduplicated bool
}

// AnalyticsLimiter deduplicates counters before they reach the store. The
// recency store is best effort: its failures never block tracking.
type AnalyticsLimiter struct {
	counters ports.CounterRepository
	recency  ports.RecencyStore
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewAnalyticsLimiter wires persistence and the recency store.
func NewAnalyticsLimiter(counters ports.CounterRepository, recency ports.RecencyStore, window time.Duration, logger *slog.Logger) *AnalyticsLimiter {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &AnalyticsLimiter{
		counters: counters,
		recency:  recency,
		window:   window,
		now:      time.Now,
		logger:   orDiscard(logger),
	}
}

// Track persists at most one counter per key and window. Only published drafts
// can be counted.
func (a *AnalyticsLimiter) Track(ctx context.Context, req TrackRequest) (TrackResult, error) {
	if req.SubjectID == uuid.Nil {
		return TrackResult{}, fmt.Errorf("invalid event_id: %w", domain.ErrInvalidInput)
	}
	if !req.Kind.Valid() {
		return TrackResult{}, fmt.Errorf("invalid type: %w", domain.ErrInvalidInput)
	}
	if req.Source == "" {
		req.Source = "unknown"
	}

	now := a.now()
	key := dedupKey(req)
	if a.recency != nil {
		seen, err := a.recency.SeenWithin(ctx, key, now, a.window)
		if err != nil {
			a.logger.Warn("recency lookup failed", "error", err)
		} else if seen {
			metrics.AnalyticsTotal.WithLabelValues(string(req.Kind), "deduplicated").Inc()
			return TrackResult{Deduplicated: true}, nil
		}
	}

	status, err := a.counters.DraftStatus(ctx, req.SubjectID)
	if err != nil {
		return TrackResult{}, fmt.Errorf("load event: %w", err)
	}
	if status != domain.StatusPublished {
		metrics.AnalyticsTotal.WithLabelValues(string(req.Kind), "unpublished").Inc()
		return TrackResult{}, fmt.Errorf("event not published: %w", domain.ErrInvalidInput)
	}

	err = a.counters.InsertCounter(ctx, domain.AnalyticsCounter{
		SubjectID:  req.SubjectID,
		Kind:       req.Kind,
		RecordedAt: now,
	})
	if err != nil {
		metrics.AnalyticsTotal.WithLabelValues(string(req.Kind), "error").Inc()
		return TrackResult{}, fmt.Errorf("insert counter: %w", err)
	}

	if a.recency != nil {
		if err := a.recency.Mark(ctx, key, now, a.window); err != nil {
			a.logger.Warn("recency mark failed", "error", err)
		}
	}
	metrics.AnalyticsTotal.WithLabelValues(string(req.Kind), "stored").Inc()
	return TrackResult{}, nil
}

// Prune drops expired keys from the recency store.
func (a *AnalyticsLimiter) Prune(ctx context.Context) (int, error) {
	if a.recency == nil {
		return 0, nil
	}
	n, err := a.recency.Prune(ctx, a.now(), a.window)
	if err != nil {
		return 0, fmt.Errorf("prune recency keys: %w", err)
	}
	metrics.RecencyKeysPruned.Add(float64(n))
	return n, nil
}

func dedupKey(req TrackRequest) string {
	return req.Source + "-" + req.SubjectID.String() + "-" + string(req.Kind)
}
