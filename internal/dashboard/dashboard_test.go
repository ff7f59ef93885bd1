package dashboard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"polysignal/internal/models"
	"polysignal/internal/paper"
	"polysignal/internal/store"
)

type fixedChecker struct {
	statuses []paper.TradeStatus
}

func (f *fixedChecker) CheckTrades(_ context.Context) ([]paper.TradeStatus, error) {
	return f.statuses, nil
}

func TestCollectStats(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	market := models.Market{ID: "m1", Question: "q1"}

	openTrade := models.Trade{
		TradeID: "t-open", Timestamp: now.Add(-time.Hour),
		MarketID: "m1", Headline: "matched headline",
		Status: models.TradeStatusOpen,
		EntryPrice: decimal.NewFromFloat(0.4),
	}
	closedTrade := models.Trade{
		TradeID: "t-closed", Timestamp: now.Add(-26 * time.Hour),
		MarketID: "m1", Headline: "older headline",
		Status: models.TradeStatusClosed, ExitReason: models.ExitReasonStopLoss,
		EntryPrice: decimal.NewFromFloat(0.5),
	}

	d := &Dashboard{
		Markets: &store.MemoryMarketStore{Markets: []models.Market{market}},
		Headlines: &store.MemoryHeadlineStore{Headlines: []models.Headline{
			{Title: "recent", URL: "u1", FetchedAt: now.Add(-2 * time.Hour)},
			{Title: "stale", URL: "u2", FetchedAt: now.Add(-48 * time.Hour)},
			{Title: "published only", URL: "u3", Published: now.Add(-3 * time.Hour)},
		}},
		Matches: &store.MemoryMatchStore{Matches: []models.MatchResult{
			{ // actionable and traded
				Headline: models.Headline{Title: "matched headline"}, Market: market,
				Judgment: &models.Judgment{Relevant: true, Direction: "YES", Confidence: 0.9},
			},
			{ // actionable but never traded
				Headline: models.Headline{Title: "untraded headline"}, Market: market,
				Judgment: &models.Judgment{Relevant: true, Direction: "NO", Confidence: 0.8},
			},
			{ // below the gate
				Headline: models.Headline{Title: "weak headline"}, Market: market,
				Judgment: &models.Judgment{Relevant: true, Direction: "YES", Confidence: 0.3},
			},
		}},
		Trades: &store.MemoryTradeStore{Log: store.TradeLog{
			Trades:  []models.Trade{openTrade, closedTrade},
			Skipped: []models.SkippedEntry{{MarketID: "m1", Headline: "thin book"}},
		}},
		Checker: &fixedChecker{statuses: []paper.TradeStatus{
			{Trade: openTrade, CurrentPrice: decimal.NewFromFloat(0.42),
				PnLUSD: decimal.NewFromFloat(1.25), PnLPct: decimal.NewFromInt(5), TimeHeld: time.Hour},
			{Trade: closedTrade, CurrentPrice: decimal.NewFromFloat(0.45),
				PnLUSD: decimal.NewFromFloat(-2.5), PnLPct: decimal.NewFromInt(-10), TimeHeld: 2 * time.Hour},
		}},
		ConfidenceThreshold: 0.6,
		Now:                 func() time.Time { return now },
	}

	stats, err := d.Collect(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, stats.ActiveMarkets)
	require.Equal(t, 3, stats.HeadlinesTotal)
	require.Equal(t, 2, stats.Headlines24h, "one fetched and one published inside 24h")

	require.Equal(t, 3, stats.TotalMatches)
	require.Equal(t, 1, stats.MatchesWithTrade)
	require.Equal(t, 2, stats.MatchesNoTrade)

	require.Equal(t, 2, stats.TotalTrades)
	require.Equal(t, 1, stats.SkippedCount)
	require.Equal(t, 1, stats.OpenTrades)
	require.Equal(t, 1, stats.ClosedTrades)
	require.Equal(t, 1, stats.Wins)
	require.Equal(t, 1, stats.Losses)
	require.Equal(t, 0, stats.Flat)
	require.InDelta(t, 50.0, stats.WinRate, 0.001)
	require.True(t, stats.TotalPnLUSD.Equal(decimal.NewFromFloat(-1.25)), "total pnl = %s", stats.TotalPnLUSD)
	require.True(t, stats.AvgReturnPct.Equal(decimal.NewFromFloat(-2.5)), "avg return = %s", stats.AvgReturnPct)
	require.Equal(t, 90*time.Minute, stats.AvgTimeHeld)
	require.Equal(t, map[string]int{models.ExitReasonStopLoss: 1}, stats.ExitReasons)

	// Recent trades are newest first.
	require.Len(t, stats.Recent, 2)
	require.Equal(t, "t-open", stats.Recent[0].Trade.TradeID)
}

func TestRenderSections(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	trade := models.Trade{
		TradeID: "abc123", Timestamp: now.Add(-time.Hour),
		MarketTitle: "Will it chart?", Headline: "Big news",
		Direction: "YES", EntryPrice: decimal.NewFromFloat(0.4),
		Status: models.TradeStatusOpen, JudgmentConfidence: 0.9,
	}
	stats := Stats{
		ActiveMarkets:  3,
		HeadlinesTotal: 10,
		TotalTrades:    1,
		OpenTrades:     1,
		Wins:           1,
		WinRate:        100,
		AvgReturnPct:   decimal.NewFromInt(5),
		TotalPnLUSD:    decimal.NewFromFloat(1.25),
		ExitReasons:    map[string]int{},
		Recent: []paper.TradeStatus{{
			Trade:        trade,
			CurrentPrice: decimal.NewFromFloat(0.42),
			PnLUSD:       decimal.NewFromFloat(1.25),
			PnLPct:       decimal.NewFromInt(5),
			TimeHeld:     time.Hour,
		}},
	}

	var buf strings.Builder
	Render(&buf, stats)
	out := buf.String()

	for _, fragment := range []string{
		"Pipeline Overview",
		"Active markets:          3",
		"Paper Trade Performance",
		"Win rate:        100.0%",
		"Total P&L:       $+1.25",
		"abc123 — OPEN",
		"Current:    $0.4200",
	} {
		require.Contains(t, out, fragment)
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf strings.Builder
	Render(&buf, Stats{ExitReasons: map[string]int{}})
	out := buf.String()
	require.Contains(t, out, "No trades yet.")
	require.Contains(t, out, "No paper trades to display.")
}
