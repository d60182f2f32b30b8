package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"PosterIntake/internal/domain"
)

type gatewayCall struct {
	Prompt   string
	ImageURL string
}

// scriptedGateway answers calls in order; the last answer repeats.
type scriptedGateway struct {
	mu      sync.Mutex
	answers []string
	errs    []error
	calls   []gatewayCall
}

func (g *scriptedGateway) Complete(_ context.Context, prompt, imageURL string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.calls)
	g.calls = append(g.calls, gatewayCall{Prompt: prompt, ImageURL: imageURL})
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if len(g.answers) == 0 {
		return "", nil
	}
	if i >= len(g.answers) {
		i = len(g.answers) - 1
	}
	return g.answers[i], nil
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// memDrafts is an in-memory draft store serving both access modes.
type memDrafts struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]domain.EventDraft
	writes    int
	failApply error
}

func newMemDrafts() *memDrafts {
	return &memDrafts{rows: map[uuid.UUID]domain.EventDraft{}}
}

func (m *memDrafts) put(d domain.EventDraft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[d.ID] = d
}

func (m *memDrafts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memDrafts) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memDrafts) FindOwned(_ context.Context, ownerID, draftID uuid.UUID) (domain.EventDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[draftID]
	if !ok || d.OwnerID == nil || *d.OwnerID != ownerID {
		return domain.EventDraft{}, domain.ErrNotFound
	}
	return d, nil
}

func (m *memDrafts) Create(_ context.Context, d domain.EventDraft) (domain.EventDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.rows[d.ID] = d
	return d, nil
}

func (m *memDrafts) Get(_ context.Context, id uuid.UUID) (domain.EventDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return domain.EventDraft{}, domain.ErrNotFound
	}
	return d, nil
}

func (m *memDrafts) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memDrafts) ApplyExtraction(_ context.Context, id uuid.UUID, u domain.DraftUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failApply != nil {
		return m.failApply
	}
	d, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.writes++
	applyUpdate(&d, u)
	m.rows[id] = d
	return nil
}

func (m *memDrafts) SetModeration(_ context.Context, id uuid.UUID, status domain.ModerationStatus, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.writes++
	d.ModerationStatus, d.ModerationNotes = status, notes
	d.Status = domain.StatusAfterModeration(d.Status, status)
	m.rows[id] = d
	return nil
}

func (m *memDrafts) Publish(_ context.Context, id uuid.UUID, slug string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.writes++
	d.Status, d.Slug, d.UpdatedAt = domain.StatusPublished, slug, at
	m.rows[id] = d
	return nil
}

type memPosters struct {
	keys []string
	err  error
}

func (p *memPosters) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.keys = append(p.keys, key)
	return "https://cdn.example.com/posters/" + key, nil
}

type staticDirectory struct {
	admins []uuid.UUID
	emails map[uuid.UUID]string
	err    error
}

func (d staticDirectory) AdminUserIDs(context.Context) ([]uuid.UUID, error) {
	return d.admins, d.err
}

func (d staticDirectory) EmailFor(_ context.Context, id uuid.UUID) (string, error) {
	email, ok := d.emails[id]
	if !ok {
		return "", errors.New("no such user")
	}
	return email, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []domain.MailMessage
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg domain.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type memCounters struct {
	statuses map[uuid.UUID]domain.DraftStatus
	rows     []domain.AnalyticsCounter
}

func (c *memCounters) DraftStatus(_ context.Context, id uuid.UUID) (domain.DraftStatus, error) {
	s, ok := c.statuses[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return s, nil
}

func (c *memCounters) InsertCounter(_ context.Context, counter domain.AnalyticsCounter) error {
	c.rows = append(c.rows, counter)
	return nil
}

// mapRecency is a minimal recency store for use case tests.
type mapRecency struct {
	seen map[string]time.Time
}

func newMapRecency() *mapRecency { return &mapRecency{seen: map[string]time.Time{}} }

func (r *mapRecency) SeenWithin(_ context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	at, ok := r.seen[key]
	return ok && now.Sub(at) < window, nil
}

func (r *mapRecency) Mark(_ context.Context, key string, now time.Time, _ time.Duration) error {
	r.seen[key] = now
	return nil
}

func (r *mapRecency) Prune(_ context.Context, now time.Time, window time.Duration) (int, error) {
	n := 0
	for k, at := range r.seen {
		if now.Sub(at) >= window {
			delete(r.seen, k)
			n++
		}
	}
	return n, nil
}
