package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	slugStrip = regexp.MustCompile(`[^\w\s-]`)
	slugSpace = regexp.MustCompile(`\s+`)
	slugDash  = regexp.MustCompile(`-+`)
)

const maxSlugBase = 60

// Slugify derives a URL slug from the title plus a uniqueness token.
func Slugify(title, token string) string {
	base := strings.ToLower(strings.TrimSpace(title))
	base = slugStrip.ReplaceAllString(base, "")
	base = slugSpace.ReplaceAllString(base, "-")
	base = slugDash.ReplaceAllString(base, "-")
	if len(base) > maxSlugBase {
		base = base[:maxSlugBase]
	}
	if base == "" {
		base = "event"
	}
	return base + "-" + token
}

// CheckPublishable enforces the publish preconditions. Moderation approval is
// mandatory: a pending or rejected draft never becomes public.
func (d EventDraft) CheckPublishable() error {
	if d.ModerationStatus != ModerationApproved {
		return fmt.Errorf("%w: moderation status is %s", ErrNotPublishable, d.ModerationStatus)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrNotPublishable)
	}
	if strings.TrimSpace(d.City) == "" {
		return fmt.Errorf("%w: city is required", ErrNotPublishable)
	}
	if d.StartAt.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrNotPublishable)
	}
	if d.TicketURL != "" {
		u, err := url.Parse(d.TicketURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: ticket url is invalid", ErrNotPublishable)
		}
	}
	return nil
}

// StatusAfterModeration returns the publication status once the moderation
// status becomes m. Published drafts must stay approved, so any other
// moderation outcome takes them back to draft.
func StatusAfterModeration(current DraftStatus, m ModerationStatus) DraftStatus {
	if current == StatusPublished && m != ModerationApproved {
		return StatusDraft
	}
	return current
}
