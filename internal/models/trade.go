package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeStatusOpen   = "open"
	TradeStatusClosed = "closed"
)

const (
	ExitReasonStopLoss    = "stop_loss"
	ExitReasonTakeProfit  = "take_profit"
	ExitReasonTimeExpired = "time_expired"
)

// TradeKey identifies one trading opportunity: at most one Trade or
// SkippedEntry may ever exist per key.
type TradeKey struct {
	MarketID string
	Headline string
}

// Trade is a simulated position. It is created once, mutated exactly once
// (open -> closed), and never deleted.
type Trade struct {
	TradeID            string          `json:"trade_id"`
	Timestamp          time.Time       `json:"timestamp"`
	MarketID           string          `json:"market_id"`
	MarketTitle        string          `json:"market_title"`
	Headline           string          `json:"headline"`
	Direction          string          `json:"direction"`
	EntryPrice         decimal.Decimal `json:"entry_price"`
	PositionSizeUSD    decimal.Decimal `json:"position_size_usd"`
	Shares             decimal.Decimal `json:"shares"`
	EmbeddingScore     float64         `json:"embedding_score"`
	JudgmentConfidence float64         `json:"judgment_confidence"`
	JudgmentReasoning  string          `json:"judgment_reasoning,omitempty"`
	TokenID            string          `json:"token_id,omitempty"`
	Status             string          `json:"status"`

	// Exit snapshot, set once when the trade closes.
	ExitPrice           *decimal.Decimal `json:"exit_price,omitempty"`
	ExitTimestamp       *time.Time       `json:"exit_timestamp,omitempty"`
	ExitReason          string           `json:"exit_reason,omitempty"`
	FinalPnLUSD         *decimal.Decimal `json:"final_pnl_usd,omitempty"`
	FinalPnLPct         *decimal.Decimal `json:"final_pnl_pct,omitempty"`
	HoldDurationSeconds int64            `json:"hold_duration_seconds,omitempty"`
}

func (t Trade) Key() TradeKey {
	return TradeKey{MarketID: t.MarketID, Headline: t.Headline}
}

func (t Trade) Closed() bool {
	return t.Status == TradeStatusClosed
}

const SkipReasonInsufficientLiquidity = "insufficient_liquidity"

// SkippedEntry records a high-confidence match that could not be priced
// within the liquidity band. It consumes the same dedup key as a Trade, so
// the pair is never retried.
type SkippedEntry struct {
	Timestamp          time.Time `json:"timestamp"`
	MarketID           string    `json:"market_id"`
	MarketTitle        string    `json:"market_title,omitempty"`
	Headline           string    `json:"headline"`
	Direction          string    `json:"direction"`
	Reason             string    `json:"reason"`
	EmbeddingScore     float64   `json:"embedding_score"`
	JudgmentConfidence float64   `json:"judgment_confidence"`
}

func (s SkippedEntry) Key() TradeKey {
	return TradeKey{MarketID: s.MarketID, Headline: s.Headline}
}
