package domain

import (
	"crypto/subtle"

	"github.com/google/uuid"
)

// SubmissionContext identifies who is acting on a draft. It is either
// Anonymous (edit token holder) or Authenticated (account owner).
type SubmissionContext interface {
	submissionContext()
}

// Anonymous callers prove ownership with the edit token issued at intake.
type Anonymous struct {
	EditToken string
}

// Authenticated callers carry a verified user identity.
type Authenticated struct {
	OwnerID uuid.UUID
	Admin   bool
}

func (Anonymous) submissionContext()     {}
func (Authenticated) submissionContext() {}

// OwnedBy reports whether the draft belongs to the given context.
func (d EventDraft) OwnedBy(sc SubmissionContext) bool {
	switch c := sc.(type) {
	case Authenticated:
		return d.OwnerID != nil && *d.OwnerID == c.OwnerID
	case Anonymous:
		if d.OwnerID != nil || c.EditToken == "" || d.EditToken == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(d.EditToken), []byte(c.EditToken)) == 1
	}
	return false
}
