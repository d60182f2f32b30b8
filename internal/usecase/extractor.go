package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PosterIntake/internal/domain"
	"PosterIntake/internal/metrics"
	"PosterIntake/internal/ports"
)

const (
	placeholderConfidence = 0.3
	placeholderEvidence   = "Placeholder - please verify"
	placeholderLead       = 7 * 24 * time.Hour
)

// Fields the extractor reports confidence for, besides "overall".
var confidenceFields = []string{"title", "start_at", "city", "venue", "ticket_url", "description"}

const extractionSchema = `Return ONLY valid JSON matching this schema:
{
  "title": "event title",
  "start_at": "ISO datetime string",
  "end_at": "ISO datetime string or null",
  "timezone": "Europe/Berlin",
  "city": "city name",
  "venue": "venue name or null",
  "address": "full address or null",
  "description": "event description or null",
  "ticket_url": "ticket URL or null",
  "tags": ["tag1", "tag2"] or null,
  "confidence": { "overall": 0.0-1.0, "title": 0.0-1.0, "start_at": 0.0-1.0, "city": 0.0-1.0, "venue": 0.0-1.0, "ticket_url": 0.0-1.0, "description": 0.0-1.0 },
  "evidence": { "fieldName": "exact text from the source that supports this field" },
  "age_restriction": "all_ages" | "16+" | "18+" | "21+",
  "content_flags": ["nightclub", "alcohol", "adult", "cannabis", "gambling", "tobacco"] or [],
  "moderation_warning": "string if illegal/harmful content detected, otherwise null"
}

IMPORTANT: The current year is %d. If no year is visible, assume %d. Do not move dates that look past into another year; report what the source says.
Always use Europe/Berlin timezone unless clearly indicated otherwise.`

// ExtractionOutcome is either Parsed or Unparseable. Resolve collapses it into a
// record that can always be persisted.
type ExtractionOutcome interface {
	extractionOutcome()
}

// Parsed carries a structurally valid model answer.
type Parsed struct {
	Result domain.ExtractionResult
}

// Unparseable records why no usable answer was obtained.
type Unparseable struct {
	Reason string
}

func (Parsed) extractionOutcome()      {}
func (Unparseable) extractionOutcome() {}

// Resolve returns the parsed result or a placeholder record for human review.
func Resolve(o ExtractionOutcome, now time.Time) domain.ExtractionResult {
	if p, ok := o.(Parsed); ok {
		return p.Result
	}
	return Placeholder(now)
}

// Placeholder is the low-confidence record used whenever extraction yields nothing.
func Placeholder(now time.Time) domain.ExtractionResult {
	conf := map[string]float64{"overall": placeholderConfidence}
	for _, f := range confidenceFields {
		conf[f] = placeholderConfidence
	}
	return domain.ExtractionResult{
		Title:          domain.UntitledEvent,
		StartAt:        now.Add(placeholderLead).UTC().Format(time.RFC3339),
		Timezone:       domain.DefaultTimezone,
		Description:    "Event details could not be extracted automatically. Please verify and edit.",
		Confidence:     conf,
		AgeRestriction: domain.AllAges,
		ContentFlags:   []string{},
		Evidence: map[string]string{
			"title":    placeholderEvidence,
			"start_at": placeholderEvidence,
			"city":     placeholderEvidence,
		},
	}
}

// Extractor derives structured event fields from poster content.
type Extractor struct {
	gateway ports.ModelGateway
	logger  *slog.Logger
}

// NewExtractor wires the model gateway; nil degrades to placeholder extraction.
func NewExtractor(gateway ports.ModelGateway, logger *slog.Logger) *Extractor {
	return &Extractor{gateway: gateway, logger: orDiscard(logger)}
}

// Extract never fails: gateway and parse problems become Unparseable.
func (e *Extractor) Extract(ctx context.Context, content domain.PosterContent, currentYear int) ExtractionOutcome {
	if e.gateway == nil {
		metrics.ExtractionsTotal.WithLabelValues("unconfigured").Inc()
		return Unparseable{Reason: "model gateway not configured"}
	}

	raw, err := e.gateway.Complete(ctx, buildExtractionPrompt(content, currentYear), content.ImageURL)
	if err != nil {
		e.logger.Error("extraction gateway call failed, using placeholder", "error", err)
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		return Unparseable{Reason: err.Error()}
	}

	outcome := parseExtraction(raw)
	if u, ok := outcome.(Unparseable); ok {
		e.logger.Warn("extraction response unparseable, using placeholder", "reason", u.Reason)
		metrics.ExtractionsTotal.WithLabelValues("unparseable").Inc()
		return outcome
	}
	metrics.ExtractionsTotal.WithLabelValues("parsed").Inc()
	return outcome
}

func buildExtractionPrompt(content domain.PosterContent, year int) string {
	schema := fmt.Sprintf(extractionSchema, year, year)
	if content.HasImage() {
		return "Extract event details from this poster image. " + schema
	}
	return "Extract event details from this webpage content. " + schema + "\n\nPage content:\n" + content.PageText
}

func parseExtraction(text string) ExtractionOutcome {
	obj, ok := firstJSONObject(text)
	if !ok {
		return Unparseable{Reason: "no JSON object in response"}
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return Unparseable{Reason: fmt.Sprintf("decode: %v", err)}
	}
	if _, hasTitle := fields["title"]; !hasTitle {
		if _, hasStart := fields["start_at"]; !hasStart {
			return Unparseable{Reason: "response is missing title and start_at"}
		}
	}

	res := domain.ExtractionResult{
		Title:             asString(fields["title"]),
		StartAt:           asString(fields["start_at"]),
		EndAt:             asString(fields["end_at"]),
		Timezone:          asString(fields["timezone"]),
		City:              asString(fields["city"]),
		Venue:             asString(fields["venue"]),
		Address:           asString(fields["address"]),
		Description:       asString(fields["description"]),
		TicketURL:         asString(fields["ticket_url"]),
		Tags:              asStrings(fields["tags"]),
		Confidence:        map[string]float64{},
		Evidence:          map[string]string{},
		AgeRestriction:    domain.ParseAgeRestriction(asString(fields["age_restriction"])),
		ModerationWarning: asString(fields["moderation_warning"]),
	}
	if res.Title == "" {
		res.Title = domain.UntitledEvent
	}
	if res.Timezone == "" {
		res.Timezone = domain.DefaultTimezone
	}

	if conf, ok := fields["confidence"].(map[string]any); ok {
		for k, v := range conf {
			if f, ok := asFloat(v); ok {
				res.Confidence[k] = domain.ClampConfidence(f)
			}
		}
	}
	if _, ok := res.Confidence["overall"]; !ok {
		res.Confidence["overall"] = meanConfidence(res.Confidence)
	}

	if ev, ok := fields["evidence"].(map[string]any); ok {
		for k, v := range ev {
			if s := asString(v); s != "" {
				res.Evidence[k] = s
			}
		}
	}

	res.ContentFlags = knownFlags(asStrings(fields["content_flags"]))
	return Parsed{Result: res}
}

func meanConfidence(conf map[string]float64) float64 {
	if len(conf) == 0 {
		return 0
	}
	var sum float64
	for _, v := range conf {
		sum += v
	}
	return sum / float64(len(conf))
}

func knownFlags(flags []string) []string {
	out := make([]string, 0, len(flags))
	seen := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		f = strings.ToLower(strings.TrimSpace(f))
		if _, ok := domain.ContentFlags[f]; !ok {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
