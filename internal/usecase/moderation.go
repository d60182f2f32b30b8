package usecase

import "PosterIntake/internal/domain"

// Disposition is the arbitrated moderation state of a draft.
type Disposition struct {
	Status domain.ModerationStatus
	Notes  string
	// Notify is set exactly when the draft transitions into pending.
	Notify bool
}

// Arbitrate merges the proposed moderation state with the extractor's warning.
// previous is the persisted state before this step, empty for a new submission.
// A warning forces pending; a rejected draft stays rejected.
func Arbitrate(previous, proposed domain.ModerationStatus, notes, warning string) Disposition {
	if previous == domain.ModerationRejected {
		return Disposition{Status: domain.ModerationRejected, Notes: notes}
	}

	d := Disposition{Status: proposed, Notes: notes}
	if warning != "" {
		d.Status = domain.ModerationPending
		d.Notes = warning
	}
	d.Notify = d.Status == domain.ModerationPending && previous != domain.ModerationPending
	return d
}
