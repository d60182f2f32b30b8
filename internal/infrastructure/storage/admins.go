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

// AdminDirectory resolves reviewers from user_roles and their addresses from users.
type AdminDirectory struct {
	db *sql.DB
}

var _ ports.AdminDirectory = (*AdminDirectory)(nil)

// NewAdminDirectory wires the elevated connection.
func NewAdminDirectory(db *sql.DB) *AdminDirectory {
	return &AdminDirectory{db: db}
}

// AdminUserIDs lists every user holding the admin role.
func (r *AdminDirectory) AdminUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	query, args, err := psql.Select("user_id").From("user_roles").
		Where("role = ?", domain.RoleAdmin).OrderBy("user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan admin id: %w", err)
		}
		ids = append(ids, id)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return ids, nil
}

// EmailFor returns the user's address, empty when the user or address is missing.
func (r *AdminDirectory) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query email: %w", err)
	}
	return email.String, nil
}
