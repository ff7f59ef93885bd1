package paper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysignal/internal/config"
	"polysignal/internal/models"
	"polysignal/internal/store"
)

// MatchRunner produces match results; nil headlines selects the default
// recent set.
type MatchRunner interface {
	Run(ctx context.Context, headlines []models.Headline) ([]models.MatchResult, error)
}

// Trader owns the trade log: it is the only writer of Trade status and exit
// fields.
type Trader struct {
	Engine  MatchRunner
	Markets store.MarketStore
	Trades  store.TradeStore
	Books   BookClient
	Logger  *zap.Logger

	positionSize        decimal.Decimal
	confidenceThreshold float64
	exitRules           ExitRules
	pricers             []entryPricer

	Now   func() time.Time
	NewID func() string
}

func NewTrader(engine MatchRunner, markets store.MarketStore, trades store.TradeStore, books BookClient, cfg config.TradingConfig, logger *zap.Logger) *Trader {
	sim := &FillSimulator{
		Books:       books,
		BudgetUSD:   decimal.NewFromFloat(cfg.PositionSizeUSD),
		SpreadLimit: decimal.NewFromFloat(cfg.SpreadLimit),
		Logger:      logger,
	}
	return &Trader{
		Engine:              engine,
		Markets:             markets,
		Trades:              trades,
		Books:               books,
		Logger:              logger,
		positionSize:        decimal.NewFromFloat(cfg.PositionSizeUSD),
		confidenceThreshold: cfg.ConfidenceThreshold,
		exitRules: ExitRules{
			StopLossPct:   decimal.NewFromFloat(cfg.StopLossPct),
			TakeProfitPct: decimal.NewFromFloat(cfg.TakeProfitPct),
			MinHoldForTP:  cfg.MinHoldForTP,
			MaxHoldTime:   cfg.MaxHoldTime,
		},
		pricers: []entryPricer{
			&bookVWAPPricer{sim: sim},
			&cachedPricePricer{},
		},
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return uuid.NewString()[:8] },
	}
}

// entryPrice walks the pricing chain in order. It stops at the first success
// or at a terminal failure; liquidity skips deliberately suppress the cached
// price fallback.
func (t *Trader) entryPrice(ctx context.Context, market models.Market, direction, tokenID string) (decimal.Decimal, SkipReason, string) {
	for _, p := range t.pricers {
		q := p.Quote(ctx, market, direction, tokenID)
		if q.Reason == ReasonNone && q.Price.GreaterThan(decimal.Zero) {
			return q.Price, ReasonNone, p.Name()
		}
		if q.Reason.Terminal() {
			return decimal.Zero, q.Reason, p.Name()
		}
	}
	return decimal.Zero, ReasonNoEntryPrice, ""
}

// LogTrades runs the match engine and materializes a trade for every
// actionable match whose (market, headline) key is unconsumed. Liquidity
// failures become skip entries that permanently consume the key. The log is
// persisted only when something new was created.
func (t *Trader) LogTrades(ctx context.Context) ([]models.Trade, []models.SkippedEntry, error) {
	log, err := t.Trades.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load trade log: %w", err)
	}

	results, err := t.Engine.Run(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("run match engine: %w", err)
	}

	consumed := log.Keys()
	var newTrades []models.Trade
	var newSkipped []models.SkippedEntry

	for _, result := range results {
		if !result.Actionable(t.confidenceThreshold) {
			continue
		}
		direction := strings.ToUpper(strings.TrimSpace(result.Judgment.Direction))
		market := result.Market
		key := models.TradeKey{MarketID: market.ID, Headline: result.Headline.Title}
		if _, ok := consumed[key]; ok {
			continue
		}

		tokenID, _ := market.TokenID(direction)
		price, reason, source := t.entryPrice(ctx, market, direction, tokenID)

		if reason == ReasonInsufficientLiquidity {
			skip := models.SkippedEntry{
				Timestamp:          t.Now(),
				MarketID:           market.ID,
				MarketTitle:        market.Question,
				Headline:           result.Headline.Title,
				Direction:          direction,
				Reason:             models.SkipReasonInsufficientLiquidity,
				EmbeddingScore:     result.EmbeddingScore,
				JudgmentConfidence: result.Judgment.Confidence,
			}
			log.Skipped = append(log.Skipped, skip)
			newSkipped = append(newSkipped, skip)
			consumed[key] = struct{}{}
			t.Logger.Info("skipped trade, insufficient liquidity",
				zap.String("market", market.Question),
				zap.String("headline", result.Headline.Title),
			)
			continue
		}

		if reason != ReasonNone || price.LessThanOrEqual(decimal.Zero) {
			// Not persisted: the pair may be retried on a later run.
			t.Logger.Warn("could not determine entry price",
				zap.String("market_id", market.ID),
				zap.String("headline", result.Headline.Title),
				zap.String("reason", string(reason)),
			)
			continue
		}

		entry := price.Round(4)
		trade := models.Trade{
			TradeID:            t.NewID(),
			Timestamp:          t.Now(),
			MarketID:           market.ID,
			MarketTitle:        market.Question,
			Headline:           result.Headline.Title,
			Direction:          direction,
			EntryPrice:         entry,
			PositionSizeUSD:    t.positionSize,
			Shares:             t.positionSize.Div(entry).Round(4),
			EmbeddingScore:     result.EmbeddingScore,
			JudgmentConfidence: result.Judgment.Confidence,
			JudgmentReasoning:  result.Judgment.Reasoning,
			TokenID:            tokenID,
			Status:             models.TradeStatusOpen,
		}
		log.Trades = append(log.Trades, trade)
		newTrades = append(newTrades, trade)
		consumed[key] = struct{}{}

		t.Logger.Info("logged paper trade",
			zap.String("trade_id", trade.TradeID),
			zap.String("market", market.Question),
			zap.String("direction", direction),
			zap.String("entry_price", entry.String()),
			zap.String("price_source", source),
		)
	}

	if len(newTrades) > 0 || len(newSkipped) > 0 {
		if err := t.Trades.Save(log); err != nil {
			return newTrades, newSkipped, fmt.Errorf("save trade log: %w", err)
		}
	}
	return newTrades, newSkipped, nil
}
