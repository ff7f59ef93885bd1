package paper

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysignal/internal/models"
)

// ExitRules parameterize the exit state machine. Percentages are positive
// magnitudes: StopLossPct 5 closes at -5%.
type ExitRules struct {
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal
	MinHoldForTP  time.Duration
	MaxHoldTime   time.Duration
}

// EvaluateExit applies the exit conditions in strict priority order and
// returns the first that fires, or "".
//
// Stop loss is checked regardless of hold duration. Take profit requires the
// minimum hold so noise-driven spikes don't close positions early.
func EvaluateExit(pnlPct decimal.Decimal, held time.Duration, r ExitRules) string {
	if pnlPct.LessThanOrEqual(r.StopLossPct.Neg()) {
		return models.ExitReasonStopLoss
	}
	if pnlPct.GreaterThanOrEqual(r.TakeProfitPct) && held >= r.MinHoldForTP {
		return models.ExitReasonTakeProfit
	}
	if held >= r.MaxHoldTime {
		return models.ExitReasonTimeExpired
	}
	return ""
}

// TradeStatus is the evaluated state of one trade, open or closed.
type TradeStatus struct {
	Trade        models.Trade
	CurrentPrice decimal.Decimal
	PnLUSD       decimal.Decimal
	PnLPct       decimal.Decimal
	TimeHeld     time.Duration
}

// CheckTrades re-prices every open trade, closes those meeting an exit
// condition, and returns the status of all trades. Closed trades are
// reported from their stored exit snapshot and never re-priced. The log is
// persisted only when at least one trade changed state.
func (t *Trader) CheckTrades(ctx context.Context) ([]TradeStatus, error) {
	log, err := t.Trades.Load()
	if err != nil {
		return nil, fmt.Errorf("load trade log: %w", err)
	}
	markets, err := t.Markets.Load()
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	marketByID := make(map[string]models.Market, len(markets))
	for _, m := range markets {
		if m.ID != "" {
			marketByID[m.ID] = m
		}
	}

	now := t.Now()
	statuses := make([]TradeStatus, 0, len(log.Trades))
	changed := false

	for i := range log.Trades {
		trade := &log.Trades[i]

		if trade.Closed() {
			statuses = append(statuses, closedStatus(*trade))
			continue
		}

		currentPrice := t.currentPrice(ctx, *trade, marketByID)
		entry := trade.EntryPrice
		pnlUSD := currentPrice.Sub(entry).Mul(trade.Shares)
		pnlPct := decimal.Zero
		if entry.GreaterThan(decimal.Zero) {
			pnlPct = currentPrice.Sub(entry).Div(entry).Mul(decimal.NewFromInt(100))
		}
		held := now.Sub(trade.Timestamp)

		if reason := EvaluateExit(pnlPct, held, t.exitRules); reason != "" {
			exitPrice := currentPrice.Round(4)
			finalUSD := pnlUSD.Round(2)
			finalPct := pnlPct.Round(2)
			exitAt := now

			trade.Status = models.TradeStatusClosed
			trade.ExitPrice = &exitPrice
			trade.ExitTimestamp = &exitAt
			trade.ExitReason = reason
			trade.FinalPnLUSD = &finalUSD
			trade.FinalPnLPct = &finalPct
			trade.HoldDurationSeconds = int64(held.Seconds())
			changed = true

			t.Logger.Info("closed paper trade",
				zap.String("trade_id", trade.TradeID),
				zap.String("exit_reason", reason),
				zap.String("pnl_usd", finalUSD.String()),
				zap.String("pnl_pct", finalPct.String()),
			)
		}

		statuses = append(statuses, TradeStatus{
			Trade:        *trade,
			CurrentPrice: currentPrice.Round(4),
			PnLUSD:       pnlUSD.Round(2),
			PnLPct:       pnlPct.Round(2),
			TimeHeld:     held,
		})
	}

	if changed {
		if err := t.Trades.Save(log); err != nil {
			return statuses, fmt.Errorf("save trade log: %w", err)
		}
	}
	return statuses, nil
}

func closedStatus(trade models.Trade) TradeStatus {
	status := TradeStatus{
		Trade:        trade,
		CurrentPrice: trade.EntryPrice,
		TimeHeld:     time.Duration(trade.HoldDurationSeconds) * time.Second,
	}
	if trade.ExitPrice != nil {
		status.CurrentPrice = *trade.ExitPrice
	}
	if trade.FinalPnLUSD != nil {
		status.PnLUSD = *trade.FinalPnLUSD
	}
	if trade.FinalPnLPct != nil {
		status.PnLPct = *trade.FinalPnLPct
	}
	return status
}

// currentPrice resolves an open trade's mark in fallback order: cached
// outcome price, live midpoint, then flat at entry when nothing is usable.
func (t *Trader) currentPrice(ctx context.Context, trade models.Trade, marketByID map[string]models.Market) decimal.Decimal {
	if market, ok := marketByID[trade.MarketID]; ok {
		if price, ok := market.OutcomePrice(trade.Direction); ok && price.GreaterThan(decimal.Zero) {
			return price
		}
	}
	if trade.TokenID != "" {
		mid, err := t.Books.GetMidpoint(ctx, trade.TokenID)
		if err == nil && mid.GreaterThan(decimal.Zero) {
			return mid
		}
		if err != nil {
			t.Logger.Warn("midpoint fetch failed",
				zap.String("trade_id", trade.TradeID),
				zap.String("token_id", trade.TokenID),
				zap.Error(err),
			)
		}
	}
	// No pricing source: assume flat rather than erroring.
	return trade.EntryPrice
}
