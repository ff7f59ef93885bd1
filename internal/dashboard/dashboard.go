// Package dashboard renders a terminal overview of the whole pipeline:
// cache sizes, the match funnel, and paper-trade performance.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"polysignal/internal/export"
	"polysignal/internal/models"
	"polysignal/internal/paper"
	"polysignal/internal/store"
)

type TradeChecker interface {
	CheckTrades(ctx context.Context) ([]paper.TradeStatus, error)
}

type Dashboard struct {
	Markets   store.MarketStore
	Headlines store.HeadlineStore
	Matches   store.MatchStore
	Trades    store.TradeStore
	Checker   TradeChecker

	ConfidenceThreshold float64

	Now func() time.Time
}

func (d *Dashboard) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// Stats is everything the dashboard prints, separated from rendering so it
// can be asserted on directly.
type Stats struct {
	ActiveMarkets    int
	Headlines24h     int
	HeadlinesTotal   int
	TotalMatches     int
	MatchesWithTrade int
	MatchesNoTrade   int
	TotalTrades      int
	SkippedCount     int

	OpenTrades   int
	ClosedTrades int
	Wins         int
	Losses       int
	Flat         int
	WinRate      float64
	AvgReturnPct decimal.Decimal
	TotalPnLUSD  decimal.Decimal
	AvgTimeHeld  time.Duration
	ExitReasons  map[string]int

	Recent []paper.TradeStatus
}

// Collect loads every cache, re-prices trades, and computes the funnel and
// performance stats.
func (d *Dashboard) Collect(ctx context.Context) (Stats, error) {
	var stats Stats
	stats.ExitReasons = map[string]int{}

	markets, err := d.Markets.Load()
	if err != nil {
		return stats, fmt.Errorf("load markets: %w", err)
	}
	headlines, err := d.Headlines.Load()
	if err != nil {
		return stats, fmt.Errorf("load headlines: %w", err)
	}
	matches, err := d.Matches.Load()
	if err != nil {
		return stats, fmt.Errorf("load match log: %w", err)
	}
	log, err := d.Trades.Load()
	if err != nil {
		return stats, fmt.Errorf("load trade log: %w", err)
	}
	statuses, err := d.Checker.CheckTrades(ctx)
	if err != nil {
		return stats, fmt.Errorf("check trades: %w", err)
	}

	stats.ActiveMarkets = len(markets)
	stats.HeadlinesTotal = len(headlines)

	cutoff := d.now().Add(-24 * time.Hour)
	for _, h := range headlines {
		ts := h.FetchedAt
		if ts.IsZero() {
			ts = h.Published
		}
		if !ts.IsZero() && !ts.Before(cutoff) {
			stats.Headlines24h++
		}
	}

	tradeKeys := make(map[models.TradeKey]struct{}, len(log.Trades))
	for _, t := range log.Trades {
		tradeKeys[t.Key()] = struct{}{}
	}
	stats.TotalMatches = len(matches)
	for _, m := range matches {
		j := m.Judgment
		if j == nil || !j.Relevant || j.Confidence < d.ConfidenceThreshold {
			stats.MatchesNoTrade++
			continue
		}
		key := models.TradeKey{MarketID: m.Market.ID, Headline: m.Headline.Title}
		if _, ok := tradeKeys[key]; ok {
			stats.MatchesWithTrade++
		} else {
			stats.MatchesNoTrade++
		}
	}

	stats.TotalTrades = len(log.Trades)
	stats.SkippedCount = len(log.Skipped)

	var sumReturn, sumPnL decimal.Decimal
	var sumHeld time.Duration
	for _, s := range statuses {
		if s.Trade.Closed() {
			stats.ClosedTrades++
			reason := s.Trade.ExitReason
			if reason == "" {
				reason = "unknown"
			}
			stats.ExitReasons[reason]++
		} else {
			stats.OpenTrades++
		}
		switch {
		case s.PnLUSD.IsPositive():
			stats.Wins++
		case s.PnLUSD.IsNegative():
			stats.Losses++
		default:
			stats.Flat++
		}
		sumReturn = sumReturn.Add(s.PnLPct)
		sumPnL = sumPnL.Add(s.PnLUSD)
		sumHeld += s.TimeHeld
	}
	if len(statuses) > 0 {
		n := decimal.NewFromInt(int64(len(statuses)))
		stats.WinRate = float64(stats.Wins) / float64(len(statuses)) * 100
		stats.AvgReturnPct = sumReturn.Div(n).Round(2)
		stats.AvgTimeHeld = sumHeld / time.Duration(len(statuses))
	}
	stats.TotalPnLUSD = sumPnL.Round(2)

	recent := make([]paper.TradeStatus, len(statuses))
	copy(recent, statuses)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Trade.Timestamp.After(recent[j].Trade.Timestamp)
	})
	if len(recent) > 5 {
		recent = recent[:5]
	}
	stats.Recent = recent

	return stats, nil
}

// Render prints the stats in the fixed terminal layout.
func Render(w io.Writer, stats Stats) {
	rule := strings.Repeat("=", 60)
	sub := strings.Repeat("-", 40)

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  Polymarket Signal Chaser — Dashboard")
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Pipeline Overview")
	fmt.Fprintln(w, "  "+sub)
	fmt.Fprintf(w, "  Active markets:          %d\n", stats.ActiveMarkets)
	fmt.Fprintf(w, "  Headlines (last 24h):    %d\n", stats.Headlines24h)
	fmt.Fprintf(w, "  Headlines (total):       %d\n", stats.HeadlinesTotal)
	fmt.Fprintf(w, "  Matches found:           %d\n", stats.TotalMatches)
	fmt.Fprintf(w, "    -> became trades:      %d\n", stats.MatchesWithTrade)
	fmt.Fprintf(w, "    -> no trade:           %d\n", stats.MatchesNoTrade)
	fmt.Fprintf(w, "  Paper trades logged:     %d\n", stats.TotalTrades)
	fmt.Fprintf(w, "  Skipped (low liquidity): %d\n", stats.SkippedCount)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Paper Trade Performance")
	fmt.Fprintln(w, "  "+sub)
	if stats.TotalTrades == 0 {
		fmt.Fprintln(w, "  No trades yet.")
	} else {
		fmt.Fprintf(w, "  Open trades:     %d\n", stats.OpenTrades)
		fmt.Fprintf(w, "  Closed trades:   %d\n", stats.ClosedTrades)
		if len(stats.ExitReasons) > 0 {
			reasons := make([]string, 0, len(stats.ExitReasons))
			for reason := range stats.ExitReasons {
				reasons = append(reasons, reason)
			}
			sort.Strings(reasons)
			parts := make([]string, 0, len(reasons))
			for _, reason := range reasons {
				parts = append(parts, fmt.Sprintf("%d %s", stats.ExitReasons[reason], reason))
			}
			fmt.Fprintf(w, "  Exit reasons:    %s\n", strings.Join(parts, ", "))
		}
		fmt.Fprintf(w, "  Wins / Losses:   %dW / %dL / %dF\n", stats.Wins, stats.Losses, stats.Flat)
		fmt.Fprintf(w, "  Win rate:        %.1f%%\n", stats.WinRate)
		fmt.Fprintf(w, "  Avg return:      %s%%\n", signed(stats.AvgReturnPct, 2))
		fmt.Fprintf(w, "  Total P&L:       $%s\n", signed(stats.TotalPnLUSD, 2))
		fmt.Fprintf(w, "  Avg time held:   %s\n", export.FormatDuration(stats.AvgTimeHeld))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  5 Most Recent Paper Trades")
	fmt.Fprintln(w, rule)

	if len(stats.Recent) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  No paper trades to display.")
		fmt.Fprintln(w, "  Run `polysignal trade` to log trades.")
		fmt.Fprintln(w)
		return
	}

	for i, s := range stats.Recent {
		t := s.Trade
		label := "OPEN"
		if t.Closed() {
			outcome := "FLAT"
			if s.PnLUSD.IsPositive() {
				outcome = "WIN"
			} else if s.PnLUSD.IsNegative() {
				outcome = "LOSS"
			}
			label = fmt.Sprintf("CLOSED — %s — %s", t.ExitReason, outcome)
		}

		fmt.Fprintf(w, "\n  [%d] %s — %s\n", i+1, t.TradeID, label)
		fmt.Fprintf(w, "      Market:     %s\n", t.MarketTitle)
		fmt.Fprintf(w, "      Headline:   %s\n", t.Headline)
		fmt.Fprintf(w, "      Direction:  %s\n", t.Direction)
		fmt.Fprintf(w, "      Entry:      $%s\n", t.EntryPrice.StringFixed(4))
		if t.Closed() && t.ExitPrice != nil {
			fmt.Fprintf(w, "      Exit:       $%s\n", t.ExitPrice.StringFixed(4))
		} else {
			fmt.Fprintf(w, "      Current:    $%s\n", s.CurrentPrice.StringFixed(4))
		}
		fmt.Fprintf(w, "      P&L:        $%s (%s%%)\n", signed(s.PnLUSD, 2), signed(s.PnLPct, 2))
		fmt.Fprintf(w, "      Held:       %s\n", export.FormatDuration(s.TimeHeld))
		fmt.Fprintf(w, "      Confidence: %.2f\n", t.JudgmentConfidence)
		if t.JudgmentReasoning != "" {
			fmt.Fprintf(w, "      Reasoning:  %s\n", t.JudgmentReasoning)
		}
	}
	fmt.Fprintln(w)
}

func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}
