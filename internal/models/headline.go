package models

import (
	"sort"
	"time"
)

// Headline is a single ingested news item. URL is the unique key; headlines
// are immutable once fetched.
type Headline struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
	Summary   string    `json:"summary,omitempty"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// MostRecentHeadlines returns the n most recently published headlines,
// newest first.
func MostRecentHeadlines(headlines []Headline, n int) []Headline {
	out := make([]Headline, len(headlines))
	copy(out, headlines)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Published.After(out[j].Published)
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}
