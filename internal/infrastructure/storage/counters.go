package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/ports"
)

// CounterRepository stores analytics rows. Viewer identity is never persisted.
type CounterRepository struct {
	db *sql.DB
}

var _ ports.CounterRepository = (*CounterRepository)(nil)

// NewCounterRepository wires the elevated connection.
func NewCounterRepository(db *sql.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// DraftStatus returns the lifecycle status of an event.
func (r *CounterRepository) DraftStatus(ctx context.Context, id uuid.UUID) (domain.DraftStatus, error) {
	query, args, err := psql.Select("status").From(eventsTable).Where("id = ?", id).ToSql()
	if err != nil {
		return "", fmt.Errorf("build select: %w", err)
	}

	var status string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query event status: %w", err)
	}
	return domain.DraftStatus(status), nil
}

// InsertCounter appends one interaction row.
func (r *CounterRepository) InsertCounter(ctx context.Context, c domain.AnalyticsCounter) error {
	query, args, err := psql.Insert("event_analytics").
		Columns("event_id", "kind", "created_at").
		Values(c.SubjectID, string(c.Kind), c.RecordedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert counter: %w", err)
	}
	return nil
}
