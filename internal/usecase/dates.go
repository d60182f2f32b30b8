package usecase

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"PosterIntake/internal/domain"
)

const (
	unparseableDateConfidence = 0.2
	pastDateConfidenceCap     = 0.4
	unparseableDateEvidence   = "Could not parse date - please verify"
)

const dateOnlyLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dateOnlyLayout,
}

// NormalizedDates are the timestamps to persist after normalization.
type NormalizedDates struct {
	StartAt     time.Time
	EndAt       *time.Time
	StartParsed bool
	StartInPast bool
}

// NormalizeDates repairs or flags the extractor's start/end candidates. It never
// moves a past date into the future; it lowers confidence and leaves a note so a
// human makes the call. The input is not modified.
func NormalizeDates(in domain.ExtractionResult, now time.Time) (domain.ExtractionResult, NormalizedDates) {
	res := in.Clone()
	loc := locationOrUTC(res.Timezone)

	var out NormalizedDates
	start, layout, ok := parseTimestamp(res.StartAt, loc)
	switch {
	case !ok:
		start = now.Add(placeholderLead)
		res.StartAt = start.UTC().Format(time.RFC3339)
		res.Confidence["start_at"] = unparseableDateConfidence
		res.Evidence["start_at"] = unparseableDateEvidence
	case inPast(start, layout, now, loc):
		out.StartParsed = true
		out.StartInPast = true
		res.Confidence["start_at"] = capAt(res.Confidence, "start_at", pastDateConfidenceCap)
		res.Confidence["overall"] = capAt(res.Confidence, "overall", pastDateConfidenceCap)
		note := fmt.Sprintf("(date appears to be in the past: %d - please verify)", start.Year())
		res.Evidence["start_at"] = strings.TrimSpace(res.Evidence["start_at"] + " " + note)
	default:
		out.StartParsed = true
	}
	out.StartAt = start

	if res.EndAt != "" {
		if end, _, ok := parseTimestamp(res.EndAt, loc); ok {
			out.EndAt = &end
		} else {
			res.EndAt = ""
		}
	}

	return res, out
}

// inPast compares date-only values by calendar day in the event's zone, so an
// event dated today is not in the past.
func inPast(start time.Time, layout string, now time.Time, loc *time.Location) bool {
	if layout != dateOnlyLayout {
		return start.Before(now)
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.Before(today)
}

func parseTimestamp(v string, loc *time.Location) (time.Time, string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}

func capAt(conf map[string]float64, key string, limit float64) float64 {
	if v, ok := conf[key]; ok && v < limit {
		return v
	}
	return limit
}

func locationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
