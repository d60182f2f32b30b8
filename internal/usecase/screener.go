package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/metrics"
	"PosterIntake/internal/ports"
)

const (
	rejectNotPoster = "This doesn't appear to be an event poster. Please upload a photo of an event poster or flyer."
	rejectPolicy    = "This content can't be posted as it appears to violate our content guidelines."

	minPosterScore       = 4
	maxAmbiguousScore    = 6
	screeningNotesPrefix = "AI screening: "
)

const screeningPrompt = `Analyze this %s for content screening. Return ONLY valid JSON:
{
  "is_poster": true/false,
  "poster_score": 1-10,
  "safety": "safe" | "unsafe" | "unclear",
  "reason": "brief explanation"
}

RULES:
- is_poster: Is this an event poster, flyer, announcement, or promotional material for an event? Score 1-10.
  - Score 7-10: Clearly an event poster/flyer
  - Score 4-6: Could be a poster but unclear (e.g. photo of a venue, partial poster)
  - Score 1-3: Not a poster (selfie, random photo, meme, screenshot, etc.)
- safety:
  - "safe": Normal event content
  - "unsafe": Contains illegal activity promotion, extreme violence, hate speech, explicit sexual content, drug sales
  - "unclear": Borderline content that needs human review (e.g. adult entertainment venue, cannabis event in unclear jurisdiction)
- reason: One sentence explaining your assessment`

// Screener classifies submitted content as poster-like and safe. It is advisory
// and persists nothing.
type Screener struct {
	gateway ports.ModelGateway
	logger  *slog.Logger
}

// NewScreener wires the model gateway. A nil gateway makes every call fail with ErrNotConfigured.
func NewScreener(gateway ports.ModelGateway, logger *slog.Logger) *Screener {
	return &Screener{gateway: gateway, logger: orDiscard(logger)}
}

// Screen asks the model for a verdict. Gateway failures are returned because
// there is no safe default for screening; unreadable answers are not.
func (s *Screener) Screen(ctx context.Context, content domain.PosterContent) (domain.ScreeningVerdict, error) {
	if s.gateway == nil {
		return domain.ScreeningVerdict{}, fmt.Errorf("screening: %w", domain.ErrGatewayNotConfigured)
	}

	subject := "image"
	prompt := fmt.Sprintf(screeningPrompt, subject)
	if !content.HasImage() {
		subject = "event web page"
		prompt = fmt.Sprintf(screeningPrompt, subject) + "\n\nPage content:\n" + content.PageText
	}

	raw, err := s.gateway.Complete(ctx, prompt, content.ImageURL)
	if errors.Is(err, domain.ErrParseFailure) {
		s.logger.Warn("screening response undecodable, routing to review", "error", err)
		metrics.ScreeningsTotal.WithLabelValues("unparseable").Inc()
		return domain.ConservativeVerdict(), nil
	}
	if err != nil {
		metrics.ScreeningsTotal.WithLabelValues("error").Inc()
		return domain.ScreeningVerdict{}, fmt.Errorf("screening: %w", err)
	}

	verdict, ok := parseVerdict(raw)
	if !ok {
		s.logger.Warn("screening response unparseable, routing to review", "response_len", len(raw))
		metrics.ScreeningsTotal.WithLabelValues("unparseable").Inc()
		return domain.ConservativeVerdict(), nil
	}

	metrics.ScreeningsTotal.WithLabelValues(string(verdict.Safety)).Inc()
	s.logger.Debug("screening verdict", "score", verdict.PosterScore, "safety", verdict.Safety)
	return verdict, nil
}

func parseVerdict(text string) (domain.ScreeningVerdict, bool) {
	obj, ok := firstJSONObject(text)
	if !ok {
		return domain.ScreeningVerdict{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return domain.ScreeningVerdict{}, false
	}

	score, ok := asFloat(fields["poster_score"])
	if !ok || math.IsNaN(score) || math.IsInf(score, 0) {
		return domain.ScreeningVerdict{}, false
	}
	verdict := domain.ScreeningVerdict{
		IsPoster:    true,
		PosterScore: math.Max(1, math.Min(10, score)),
		Safety:      domain.SafetyUnclear,
		Reason:      asString(fields["reason"]),
	}
	if b, ok := asBool(fields["is_poster"]); ok {
		verdict.IsPoster = b
	}
	switch domain.Safety(strings.ToLower(asString(fields["safety"]))) {
	case domain.SafetySafe:
		verdict.Safety = domain.SafetySafe
	case domain.SafetyUnsafe:
		verdict.Safety = domain.SafetyUnsafe
	}
	return verdict, true
}

// Decide turns a verdict into the intake decision. Scores are compared
// unrounded: 3.5 is not a poster and 6.4 is past the ambiguous band.
func Decide(v domain.ScreeningVerdict) domain.ScreeningDecision {
	if v.PosterScore < minPosterScore {
		return domain.ScreeningDecision{RejectReason: rejectNotPoster, Moderation: domain.ModerationRejected}
	}
	if v.Safety == domain.SafetyUnsafe {
		return domain.ScreeningDecision{RejectReason: rejectPolicy, Moderation: domain.ModerationRejected}
	}
	if v.Safety == domain.SafetyUnclear || v.PosterScore <= maxAmbiguousScore {
		return domain.ScreeningDecision{
			Accepted:   true,
			Moderation: domain.ModerationPending,
			Notes:      screeningNotesPrefix + v.Reason,
		}
	}
	return domain.ScreeningDecision{Accepted: true, Moderation: domain.ModerationApproved}
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
