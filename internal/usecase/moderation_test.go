package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"PosterIntake/internal/domain"
)

func TestArbitrate(t *testing.T) {
	cases := []struct {
		name     string
		previous domain.ModerationStatus
		proposed domain.ModerationStatus
		notes    string
		warning  string
		want     Disposition
	}{
		{
			name:     "approved stays approved",
			proposed: domain.ModerationApproved,
			want:     Disposition{Status: domain.ModerationApproved},
		},
		{
			name:     "warning overrides approval",
			proposed: domain.ModerationApproved,
			warning:  "Promotes drug sales",
			want:     Disposition{Status: domain.ModerationPending, Notes: "Promotes drug sales", Notify: true},
		},
		{
			name:     "screening pending notifies once",
			proposed: domain.ModerationPending,
			notes:    "AI screening: unclear",
			want:     Disposition{Status: domain.ModerationPending, Notes: "AI screening: unclear", Notify: true},
		},
		{
			name:     "already pending does not notify again",
			previous: domain.ModerationPending,
			proposed: domain.ModerationPending,
			warning:  "still risky",
			want:     Disposition{Status: domain.ModerationPending, Notes: "still risky"},
		},
		{
			name:     "rejected is terminal",
			previous: domain.ModerationRejected,
			proposed: domain.ModerationRejected,
			notes:    "spam",
			warning:  "anything",
			want:     Disposition{Status: domain.ModerationRejected, Notes: "spam"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Arbitrate(tc.previous, tc.proposed, tc.notes, tc.warning))
		})
	}
}
