package models

import (
	"strings"
	"time"
)

// Judgment is the structured verdict from the judgment service for one
// (headline, market) pair.
type Judgment struct {
	Relevant bool `json:"relevant"`
	// Direction is "YES" or "NO"; empty when the judge saw no directional bias.
	Direction  string  `json:"direction,omitempty"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// MatchResult records one candidate pairing from the match engine. Judgment
// is nil when the judgment call failed or no credential was configured; the
// result is persisted either way.
type MatchResult struct {
	Headline       Headline  `json:"headline"`
	Market         Market    `json:"market"`
	EmbeddingScore float64   `json:"embedding_score"`
	Judgment       *Judgment `json:"judgment"`
	MatchedAt      time.Time `json:"matched_at"`
}

// Actionable reports whether a match clears the confidence gate for trade
// creation.
func (r MatchResult) Actionable(confidenceThreshold float64) bool {
	if r.Judgment == nil || !r.Judgment.Relevant {
		return false
	}
	if r.Judgment.Confidence < confidenceThreshold {
		return false
	}
	d := strings.ToUpper(strings.TrimSpace(r.Judgment.Direction))
	return d == "YES" || d == "NO"
}
