package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/ports"
)

const eventsTable = "events"

var draftColumns = []string{
	"id", "owner_id", "edit_token", "status", "moderation_status", "moderation_notes",
	"title", "start_at", "end_at", "timezone", "city", "venue", "address", "description",
	"ticket_url", "tags", "poster_path", "poster_public_url", "source_url",
	"confidence_overall", "confidence", "evidence", "age_restriction", "content_flags",
	"slug", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresRepository is the elevated draft store. It bypasses row-level
// policies and must only be reached after an authorization decision.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.ElevatedDraftStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB connected with the elevated role.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new draft row.
func (r *PostgresRepository) Create(ctx context.Context, d domain.EventDraft) (domain.EventDraft, error) {
	confidence, evidence, err := encodeMaps(d.Confidence, d.Evidence)
	if err != nil {
		return domain.EventDraft{}, err
	}
	var owner any
	if d.OwnerID != nil {
		owner = *d.OwnerID
	}

	query, args, err := psql.Insert(eventsTable).
		Columns(draftColumns...).
		Values(
			d.ID, owner, nullString(d.EditToken), string(d.Status), string(d.ModerationStatus), nullString(d.ModerationNotes),
			d.Title, d.StartAt, d.EndAt, d.Timezone, nullString(d.City), nullString(d.Venue), nullString(d.Address), nullString(d.Description),
			nullString(d.TicketURL), pq.StringArray(nonNil(d.Tags)), nullString(d.PosterPath), nullString(d.PosterPublicURL), nullString(d.SourceURL),
			d.ConfidenceOverall, confidence, evidence, string(d.AgeRestriction), pq.StringArray(nonNil(d.ContentFlags)),
			nullString(d.Slug), d.CreatedAt, d.UpdatedAt,
		).ToSql()
	if err != nil {
		return domain.EventDraft{}, fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.EventDraft{}, fmt.Errorf("insert draft: %w", err)
	}
	return d, nil
}

// Get loads a draft regardless of owner.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (domain.EventDraft, error) {
	query, args, err := psql.Select(draftColumns...).From(eventsTable).Where("id = ?", id).ToSql()
	if err != nil {
		return domain.EventDraft{}, fmt.Errorf("build select: %w", err)
	}
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.EventDraft{}, fmt.Errorf("get draft %s: %w", id, err)
	}
	return d, nil
}

// Exists probes for a row without returning it.
func (r *PostgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe draft: %w", err)
	}
	return exists, nil
}

// ApplyExtraction overwrites the extracted fields and moderation state.
func (r *PostgresRepository) ApplyExtraction(ctx context.Context, id uuid.UUID, u domain.DraftUpdate) error {
	confidence, evidence, err := encodeMaps(u.Confidence, u.Evidence)
	if err != nil {
		return err
	}
	return r.update(ctx, id, "apply extraction", withModeration(map[string]any{
		"title":              u.Title,
		"start_at":           u.StartAt,
		"end_at":             u.EndAt,
		"timezone":           u.Timezone,
		"city":               nullString(u.City),
		"venue":              nullString(u.Venue),
		"address":            nullString(u.Address),
		"description":        nullString(u.Description),
		"ticket_url":         nullString(u.TicketURL),
		"tags":               pq.StringArray(nonNil(u.Tags)),
		"source_url":         nullString(u.SourceURL),
		"confidence_overall": u.ConfidenceOverall,
		"confidence":         confidence,
		"evidence":           evidence,
		"age_restriction":    string(u.AgeRestriction),
		"content_flags":      pq.StringArray(nonNil(u.ContentFlags)),
	}, u.ModerationStatus, u.ModerationNotes))
}

// SetModeration stores a moderation decision.
func (r *PostgresRepository) SetModeration(ctx context.Context, id uuid.UUID, status domain.ModerationStatus, notes string) error {
	return r.update(ctx, id, "set moderation", withModeration(map[string]any{}, status, notes))
}

// withModeration adds the moderation columns. Leaving approved unpublishes a
// published row in the same statement.
func withModeration(fields map[string]any, status domain.ModerationStatus, notes string) map[string]any {
	fields["moderation_status"] = string(status)
	fields["moderation_notes"] = nullString(notes)
	if status != domain.ModerationApproved {
		fields["status"] = sq.Expr("CASE WHEN status = ? THEN ? ELSE status END",
			string(domain.StatusPublished), string(domain.StatusDraft))
	}
	return fields
}

// Publish flips the draft to published with its slug.
func (r *PostgresRepository) Publish(ctx context.Context, id uuid.UUID, slug string, at time.Time) error {
	return r.update(ctx, id, "publish", map[string]any{
		"status": string(domain.StatusPublished),
		"slug":   slug,
	}, at)
}

func (r *PostgresRepository) update(ctx context.Context, id uuid.UUID, op string, fields map[string]any, at ...time.Time) error {
	b := psql.Update(eventsTable).SetMap(fields)
	if len(at) > 0 {
		b = b.Set("updated_at", at[0])
	} else {
		b = b.Set("updated_at", sq.Expr("NOW()"))
	}
	query, args, err := b.Where("id = ?", id).ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
	}
	return nil
}

// ScopedRepository reads drafts through the connection whose role is subject
// to row-level policies. The caller's id is bound per transaction.
type ScopedRepository struct {
	db *sql.DB
}

var _ ports.ScopedDraftReader = (*ScopedRepository)(nil)

// NewScopedRepository wires a sql.DB connected with the restricted role.
func NewScopedRepository(db *sql.DB) *ScopedRepository {
	return &ScopedRepository{db: db}
}

// FindOwned returns the draft only when ownerID owns it.
func (r *ScopedRepository) FindOwned(ctx context.Context, ownerID, draftID uuid.UUID) (domain.EventDraft, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return domain.EventDraft{}, fmt.Errorf("begin scoped read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.user_id', $1, true)`, ownerID.String()); err != nil {
		return domain.EventDraft{}, fmt.Errorf("bind caller: %w", err)
	}

	query, args, err := psql.Select(draftColumns...).From(eventsTable).
		Where("id = ? AND owner_id = ?", draftID, ownerID).ToSql()
	if err != nil {
		return domain.EventDraft{}, fmt.Errorf("build select: %w", err)
	}
	d, err := scanDraft(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.EventDraft{}, fmt.Errorf("find owned draft %s: %w", draftID, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.EventDraft{}, fmt.Errorf("commit scoped read: %w", err)
	}
	return d, nil
}

func scanDraft(row rowScanner) (domain.EventDraft, error) {
	var (
		d                                     domain.EventDraft
		owner                                 uuid.NullUUID
		editToken, notes, city, venue, addr   sql.NullString
		desc, ticket, path, public, src, slug sql.NullString
		status, moderation, age               string
		endAt                                 sql.NullTime
		confidence, evidence                  []byte
		tags, flags                           pq.StringArray
	)
	err := row.Scan(
		&d.ID, &owner, &editToken, &status, &moderation, &notes,
		&d.Title, &d.StartAt, &endAt, &d.Timezone, &city, &venue, &addr, &desc,
		&ticket, &tags, &path, &public, &src,
		&d.ConfidenceOverall, &confidence, &evidence, &age, &flags,
		&slug, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EventDraft{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.EventDraft{}, fmt.Errorf("scan draft: %w", err)
	}

	if owner.Valid {
		id := owner.UUID
		d.OwnerID = &id
	}
	if endAt.Valid {
		t := endAt.Time
		d.EndAt = &t
	}
	d.EditToken, d.ModerationNotes = editToken.String, notes.String
	d.City, d.Venue, d.Address, d.Description = city.String, venue.String, addr.String, desc.String
	d.TicketURL, d.PosterPath, d.PosterPublicURL = ticket.String, path.String, public.String
	d.SourceURL, d.Slug = src.String, slug.String
	d.Status = domain.DraftStatus(status)
	d.ModerationStatus = domain.ModerationStatus(moderation)
	d.AgeRestriction = domain.ParseAgeRestriction(age)
	d.Tags, d.ContentFlags = []string(tags), []string(flags)

	if len(confidence) > 0 {
		if err := json.Unmarshal(confidence, &d.Confidence); err != nil {
			return domain.EventDraft{}, fmt.Errorf("decode confidence: %w", err)
		}
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &d.Evidence); err != nil {
			return domain.EventDraft{}, fmt.Errorf("decode evidence: %w", err)
		}
	}
	return d, nil
}

func encodeMaps(confidence map[string]float64, evidence map[string]string) ([]byte, []byte, error) {
	if confidence == nil {
		confidence = map[string]float64{}
	}
	if evidence == nil {
		evidence = map[string]string{}
	}
	c, err := json.Marshal(confidence)
	if err != nil {
		return nil, nil, fmt.Errorf("encode confidence: %w", err)
	}
	e, err := json.Marshal(evidence)
	if err != nil {
		return nil, nil, fmt.Errorf("encode evidence: %w", err)
	}
	return c, e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
