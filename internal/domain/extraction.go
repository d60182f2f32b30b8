package domain

// ExtractionResult is the candidate record produced by the field extractor.
// Start and end are kept as the model's strings until the date normalizer runs.
type ExtractionResult struct {
	Title             string             `json:"title"`
	StartAt           string             `json:"start_at"`
	EndAt             string             `json:"end_at,omitempty"`
	Timezone          string             `json:"timezone"`
	City              string             `json:"city"`
	Venue             string             `json:"venue,omitempty"`
	Address           string             `json:"address,omitempty"`
	Description       string             `json:"description,omitempty"`
	TicketURL         string             `json:"ticket_url,omitempty"`
	Tags              []string           `json:"tags,omitempty"`
	Confidence        map[string]float64 `json:"confidence"`
	Evidence          map[string]string  `json:"evidence"`
	AgeRestriction    AgeRestriction     `json:"age_restriction"`
	ContentFlags      []string           `json:"content_flags"`
	ModerationWarning string             `json:"moderation_warning,omitempty"`
}

// Overall returns the overall confidence, zero when absent.
func (r ExtractionResult) Overall() float64 {
	return r.Confidence["overall"]
}

// Clone deep-copies the maps and slices so callers can mutate safely.
func (r ExtractionResult) Clone() ExtractionResult {
	out := r
	out.Confidence = make(map[string]float64, len(r.Confidence))
	for k, v := range r.Confidence {
		out.Confidence[k] = v
	}
	out.Evidence = make(map[string]string, len(r.Evidence))
	for k, v := range r.Evidence {
		out.Evidence[k] = v
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.ContentFlags != nil {
		out.ContentFlags = append([]string(nil), r.ContentFlags...)
	}
	return out
}

// ClampConfidence bounds a model-reported confidence to [0,1].
func ClampConfidence(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
