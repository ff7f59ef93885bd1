// Package export writes the pipeline's caches out as CSV files for
// spreadsheet review: markets, headlines, matches, and trades.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"polysignal/internal/models"
	"polysignal/internal/paper"
	"polysignal/internal/store"
)

// TradeChecker evaluates every trade's current state. Satisfied by
// *paper.Trader.
type TradeChecker interface {
	CheckTrades(ctx context.Context) ([]paper.TradeStatus, error)
}

type Exporter struct {
	Markets   store.MarketStore
	Headlines store.HeadlineStore
	Matches   store.MatchStore
	Trades    store.TradeStore
	Checker   TradeChecker
	Logger    *zap.Logger

	// ConfidenceThreshold mirrors the trade-creation gate, so became_trade
	// in matches.csv reflects the same rule.
	ConfidenceThreshold float64
}

// Run writes all four CSVs into dir and returns their paths.
func (e *Exporter) Run(ctx context.Context, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var paths []string
	steps := []struct {
		name string
		fn   func(string) (string, error)
	}{
		{"markets", e.exportMarkets},
		{"signals", e.exportSignals},
		{"matches", e.exportMatches},
		{"trades", func(d string) (string, error) { return e.exportTrades(ctx, d) }},
	}
	for _, step := range steps {
		path, err := step.fn(dir)
		if err != nil {
			return paths, fmt.Errorf("export %s: %w", step.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (e *Exporter) exportMarkets(dir string) (string, error) {
	markets, err := e.Markets.Load()
	if err != nil {
		return "", err
	}

	rows := make([][]string, 0, len(markets))
	for _, m := range markets {
		prices := make([]string, len(m.OutcomePrices))
		for i, p := range m.OutcomePrices {
			prices[i] = p.String()
		}
		rows = append(rows, []string{
			m.ID,
			m.Question,
			strings.Join(m.Outcomes, " / "),
			strings.Join(prices, " / "),
			m.Volume.String(),
			m.Liquidity.String(),
			fmtTimePtr(m.StartDate),
			fmtTimePtr(m.EndDate),
		})
	}

	path := filepath.Join(dir, "markets.csv")
	header := []string{"market_id", "question", "outcomes", "outcome_prices", "volume", "liquidity", "start_date", "end_date"}
	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}
	e.Logger.Info("wrote markets.csv", zap.Int("rows", len(rows)))
	return path, nil
}

func (e *Exporter) exportSignals(dir string) (string, error) {
	headlines, err := e.Headlines.Load()
	if err != nil {
		return "", err
	}

	rows := make([][]string, 0, len(headlines))
	for _, h := range headlines {
		rows = append(rows, []string{
			h.Title,
			h.URL,
			h.Source,
			fmtTime(h.Published),
			fmtTime(h.FetchedAt),
		})
	}

	path := filepath.Join(dir, "signals.csv")
	header := []string{"title", "url", "source", "published", "fetched_at"}
	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}
	e.Logger.Info("wrote signals.csv", zap.Int("rows", len(rows)))
	return path, nil
}

func (e *Exporter) exportMatches(dir string) (string, error) {
	matches, err := e.Matches.Load()
	if err != nil {
		return "", err
	}
	log, err := e.Trades.Load()
	if err != nil {
		return "", err
	}
	tradeKeys := make(map[models.TradeKey]struct{}, len(log.Trades))
	for _, t := range log.Trades {
		tradeKeys[t.Key()] = struct{}{}
	}

	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		relevant, direction, confidence, reasoning := "", "", "", ""
		becameTrade := false
		if j := m.Judgment; j != nil {
			relevant = strconv.FormatBool(j.Relevant)
			direction = j.Direction
			confidence = strconv.FormatFloat(j.Confidence, 'f', -1, 64)
			reasoning = j.Reasoning
			if j.Relevant && j.Confidence >= e.ConfidenceThreshold {
				key := models.TradeKey{MarketID: m.Market.ID, Headline: m.Headline.Title}
				_, becameTrade = tradeKeys[key]
			}
		}
		rows = append(rows, []string{
			m.Headline.Title,
			m.Market.ID,
			m.Market.Question,
			strconv.FormatFloat(m.EmbeddingScore, 'f', -1, 64),
			relevant,
			direction,
			confidence,
			reasoning,
			strconv.FormatBool(becameTrade),
			fmtTime(m.MatchedAt),
		})
	}

	path := filepath.Join(dir, "matches.csv")
	header := []string{
		"headline", "market_id", "market_question", "embedding_score",
		"judge_relevant", "judge_direction", "judge_confidence", "judge_reasoning",
		"became_trade", "matched_at",
	}
	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}
	e.Logger.Info("wrote matches.csv", zap.Int("rows", len(rows)))
	return path, nil
}

func (e *Exporter) exportTrades(ctx context.Context, dir string) (string, error) {
	statuses, err := e.Checker.CheckTrades(ctx)
	if err != nil {
		return "", err
	}

	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		t := s.Trade
		outcome := "FLAT"
		if s.PnLUSD.IsPositive() {
			outcome = "WIN"
		} else if s.PnLUSD.IsNegative() {
			outcome = "LOSS"
		}
		rows = append(rows, []string{
			t.TradeID,
			fmtTime(t.Timestamp),
			t.MarketID,
			t.MarketTitle,
			t.Headline,
			t.Direction,
			t.EntryPrice.String(),
			s.CurrentPrice.String(),
			t.Shares.String(),
			s.PnLUSD.String(),
			s.PnLPct.StringFixed(2) + "%",
			FormatDuration(s.TimeHeld),
			strconv.FormatFloat(t.EmbeddingScore, 'f', -1, 64),
			strconv.FormatFloat(t.JudgmentConfidence, 'f', -1, 64),
			t.JudgmentReasoning,
			outcome,
		})
	}

	path := filepath.Join(dir, "trades.csv")
	header := []string{
		"trade_id", "timestamp", "market_id", "market_title", "headline",
		"direction", "entry_price", "current_price", "shares",
		"pnl_usd", "pnl_pct", "time_held",
		"embedding_score", "judge_confidence", "judge_reasoning", "outcome",
	}
	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}
	e.Logger.Info("wrote trades.csv", zap.Int("rows", len(rows)))
	return path, nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmtTime(*t)
}

// FormatDuration renders a hold duration the way the dashboard shows it:
// "2d 3h 15m", "3h 15m", or "15m".
func FormatDuration(d time.Duration) string {
	total := int64(d.Seconds())
	if total < 0 {
		total = 0
	}
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
