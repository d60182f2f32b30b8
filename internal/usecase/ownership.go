package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/ports"
)

// OwnershipGuard decides whether a caller may act on a draft. Lookups for
// authenticated callers go through the identity-scoped reader; the elevated
// store is only consulted to tell Forbidden apart from NotFound.
type OwnershipGuard struct {
	scoped   ports.ScopedDraftReader
	elevated ports.ElevatedDraftStore
}

// NewOwnershipGuard wires both access modes.
func NewOwnershipGuard(scoped ports.ScopedDraftReader, elevated ports.ElevatedDraftStore) *OwnershipGuard {
	return &OwnershipGuard{scoped: scoped, elevated: elevated}
}

// AuthorizeOwner returns the draft when sc is an authenticated caller who owns it.
func (g *OwnershipGuard) AuthorizeOwner(ctx context.Context, sc domain.SubmissionContext, draftID uuid.UUID) (domain.EventDraft, error) {
	caller, ok := sc.(domain.Authenticated)
	if !ok || caller.OwnerID == uuid.Nil {
		return domain.EventDraft{}, domain.ErrUnauthenticated
	}

	draft, err := g.scoped.FindOwned(ctx, caller.OwnerID, draftID)
	if err == nil {
		return draft, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.EventDraft{}, fmt.Errorf("scoped lookup: %w", err)
	}

	exists, err := g.elevated.Exists(ctx, draftID)
	if err != nil {
		return domain.EventDraft{}, fmt.Errorf("existence probe: %w", err)
	}
	if exists {
		return domain.EventDraft{}, domain.ErrForbidden
	}
	return domain.EventDraft{}, domain.ErrNotFound
}

// AuthorizeEditor accepts either the owning account or the edit token issued
// to an anonymous submitter.
func (g *OwnershipGuard) AuthorizeEditor(ctx context.Context, sc domain.SubmissionContext, draftID uuid.UUID) (domain.EventDraft, error) {
	switch c := sc.(type) {
	case domain.Authenticated:
		return g.AuthorizeOwner(ctx, c, draftID)
	case domain.Anonymous:
		if c.EditToken == "" {
			return domain.EventDraft{}, domain.ErrUnauthenticated
		}
		draft, err := g.elevated.Get(ctx, draftID)
		if err != nil {
			return domain.EventDraft{}, fmt.Errorf("load draft: %w", err)
		}
		if !draft.OwnedBy(c) {
			return domain.EventDraft{}, domain.ErrForbidden
		}
		return draft, nil
	}
	return domain.EventDraft{}, domain.ErrUnauthenticated
}

// AuthorizeAdmin only checks the role claim carried by the caller.
func AuthorizeAdmin(sc domain.SubmissionContext) error {
	caller, ok := sc.(domain.Authenticated)
	if !ok {
		return domain.ErrUnauthenticated
	}
	if !caller.Admin {
		return domain.ErrForbidden
	}
	return nil
}
