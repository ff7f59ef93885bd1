// Package store owns the JSON document caches the pipeline reads and
// writes. Every store is single-writer: one batch invocation at a time.
package store

import (
	"polysignal/internal/models"
)

type MarketStore interface {
	Load() ([]models.Market, error)
	Save(markets []models.Market) error
}

type HeadlineStore interface {
	Load() ([]models.Headline, error)
	Save(headlines []models.Headline) error
}

// MatchStore holds the match log. Save overwrites: the log is a full-run
// snapshot, not an append log.
type MatchStore interface {
	Load() ([]models.MatchResult, error)
	Save(matches []models.MatchResult) error
}

// TradeLog is the full content of the trade store: trades and skipped
// entries accumulate indefinitely and share one dedup key space.
type TradeLog struct {
	Trades  []models.Trade
	Skipped []models.SkippedEntry
}

// Keys returns the set of consumed dedup keys across trades and skips.
func (l TradeLog) Keys() map[models.TradeKey]struct{} {
	keys := make(map[models.TradeKey]struct{}, len(l.Trades)+len(l.Skipped))
	for _, t := range l.Trades {
		keys[t.Key()] = struct{}{}
	}
	for _, s := range l.Skipped {
		keys[s.Key()] = struct{}{}
	}
	return keys
}

type TradeStore interface {
	Load() (TradeLog, error)
	Save(log TradeLog) error
}

// VectorEntry pairs a market id with its embedding vector.
type VectorEntry struct {
	MarketID string    `json:"market_id"`
	Vector   []float32 `json:"vector"`
}

// VectorSet is the persisted similarity-index cache.
type VectorSet struct {
	Model   string        `json:"model,omitempty"`
	Entries []VectorEntry `json:"entries"`
}

type VectorStore interface {
	Load() (VectorSet, error)
	Save(set VectorSet) error
}
