package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PosterIntake/internal/domain"
)

const fullExtraction = "```json\n" + `{
  "title": "Techno Night",
  "start_at": "2026-11-20T23:00:00",
  "end_at": "null",
  "timezone": null,
  "city": "Berlin",
  "venue": "Tresor",
  "tags": ["techno", "club"],
  "confidence": {"overall": 0.9, "title": 1.4, "start_at": "0.8"},
  "evidence": {"title": "TECHNO NIGHT", "city": null},
  "age_restriction": "18+",
  "content_flags": ["nightclub", "Alcohol", "nightclub", "weapons"],
  "moderation_warning": null
}` + "\n```"

func TestExtractParsesDefensively(t *testing.T) {
	e := NewExtractor(&scriptedGateway{answers: []string{fullExtraction}}, nil)

	out := e.Extract(context.Background(), domain.PosterContent{ImageURL: "https://x.test/p.jpg"}, 2026)
	parsed, ok := out.(Parsed)
	require.True(t, ok, "expected Parsed, got %#v", out)

	r := parsed.Result
	assert.Equal(t, "Techno Night", r.Title)
	assert.Equal(t, "2026-11-20T23:00:00", r.StartAt)
	assert.Empty(t, r.EndAt)
	assert.Equal(t, domain.DefaultTimezone, r.Timezone)
	assert.Equal(t, 1.0, r.Confidence["title"])
	assert.Equal(t, 0.8, r.Confidence["start_at"])
	assert.Equal(t, 0.9, r.Overall())
	assert.Equal(t, map[string]string{"title": "TECHNO NIGHT"}, r.Evidence)
	assert.Equal(t, domain.Age18, r.AgeRestriction)
	assert.Equal(t, []string{"nightclub", "alcohol"}, r.ContentFlags)
	assert.Empty(t, r.ModerationWarning)
}

func TestExtractFallsBackToPlaceholder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := map[string]*Extractor{
		"gateway error":  NewExtractor(&scriptedGateway{errs: []error{errors.New("502")}}, nil),
		"prose":          NewExtractor(&scriptedGateway{answers: []string{"Sorry, I can't read this poster."}}, nil),
		"missing fields": NewExtractor(&scriptedGateway{answers: []string{`{"city":"Berlin"}`}}, nil),
		"not configured": NewExtractor(nil, nil),
		"truncated json": NewExtractor(&scriptedGateway{answers: []string{`{"title": "Jazz", "start_at": "2026-`}}, nil),
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			out := e.Extract(context.Background(), domain.PosterContent{ImageURL: "x"}, 2026)
			_, ok := out.(Unparseable)
			require.True(t, ok)

			r := Resolve(out, now)
			assert.Equal(t, domain.UntitledEvent, r.Title)
			assert.Equal(t, "2026-03-08T12:00:00Z", r.StartAt)
			assert.Equal(t, placeholderConfidence, r.Overall())
			for _, f := range confidenceFields {
				assert.Equal(t, placeholderConfidence, r.Confidence[f], f)
			}
			assert.Equal(t, placeholderEvidence, r.Evidence["start_at"])
			assert.Equal(t, domain.AllAges, r.AgeRestriction)
		})
	}
}

func TestExtractOverallDefaultsToMean(t *testing.T) {
	out := parseExtraction(`{"title":"Fair","confidence":{"title":0.8,"city":0.4}}`)
	p, ok := out.(Parsed)
	require.True(t, ok)
	assert.InDelta(t, 0.6, p.Result.Overall(), 1e-9)
}

func TestExtractionPromptCarriesYearAndPage(t *testing.T) {
	gw := &scriptedGateway{answers: []string{`{"title":"x"}`}}
	NewExtractor(gw, nil).Extract(context.Background(), domain.PosterContent{PageText: "Doors 8pm"}, 2031)

	require.Equal(t, 1, gw.callCount())
	assert.Contains(t, gw.calls[0].Prompt, "The current year is 2031")
	assert.Contains(t, gw.calls[0].Prompt, "Page content:\nDoors 8pm")
}
