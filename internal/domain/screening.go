package domain

// Safety is the screener's content-policy classification.
type Safety string

const (
	SafetySafe    Safety = "safe"
	SafetyUnsafe  Safety = "unsafe"
	SafetyUnclear Safety = "unclear"
)

// ScreeningVerdict is the screener's raw opinion. It is never persisted verbatim.
// PosterScore is kept unrounded within [1, 10].
type ScreeningVerdict struct {
	IsPoster    bool    `json:"is_poster"`
	PosterScore float64 `json:"poster_score"`
	Safety      Safety  `json:"safety"`
	Reason      string  `json:"reason"`
}

// ConservativeVerdict routes unreadable screening output to human review.
func ConservativeVerdict() ScreeningVerdict {
	return ScreeningVerdict{
		IsPoster:    true,
		PosterScore: 5,
		Safety:      SafetyUnclear,
		Reason:      "Could not determine content type",
	}
}

// ScreeningDecision is the accept/reject outcome derived from a verdict.
type ScreeningDecision struct {
	Accepted     bool
	RejectReason string
	Moderation   ModerationStatus
	Notes        string
}
