// Package paper simulates positions against live order books: entry fills
// via VWAP over a liquidity band, and a rule-based exit state machine.
package paper

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysignal/internal/client/polymarket/clob"
	"polysignal/internal/models"
)

// SkipReason tags why an entry could not be priced. Only
// ReasonInsufficientLiquidity is terminal: it consumes the dedup key and the
// pair is never retried.
type SkipReason string

const (
	ReasonNone                  SkipReason = ""
	ReasonNoTokenID             SkipReason = "no_token_id"
	ReasonBookError             SkipReason = "order_book_error"
	ReasonNoAsks                SkipReason = "no_asks"
	ReasonNoMidpoint            SkipReason = "no_midpoint"
	ReasonInsufficientLiquidity SkipReason = models.SkipReasonInsufficientLiquidity
	ReasonNoEntryPrice          SkipReason = "no_entry_price"
)

func (r SkipReason) Terminal() bool {
	return r == ReasonInsufficientLiquidity
}

// BookClient supplies order-book snapshots and midpoint quotes. Failures are
// soft: the caller falls back or skips.
type BookClient interface {
	GetBook(ctx context.Context, tokenID string) (*clob.OrderBook, error)
	GetMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error)
}

// FillSimulator computes the fill price of a fixed-notional market order by
// walking ask levels, constrained to a band above the midpoint.
type FillSimulator struct {
	Books BookClient
	// BudgetUSD is the notional to fill, all-or-nothing.
	BudgetUSD decimal.Decimal
	// SpreadLimit bounds acceptable asks at midpoint*(1+SpreadLimit).
	SpreadLimit decimal.Decimal
	Logger      *zap.Logger
}

// EntryPrice simulates filling the full budget against the token's ask side.
// On success the returned price is total cost over total shares (true VWAP).
// A budget that cannot be filled inside the liquidity band fails with
// ReasonInsufficientLiquidity even if some levels were affordable.
func (s *FillSimulator) EntryPrice(ctx context.Context, tokenID string) (decimal.Decimal, SkipReason) {
	if tokenID == "" {
		return decimal.Zero, ReasonNoTokenID
	}

	book, err := s.Books.GetBook(ctx, tokenID)
	if err != nil {
		s.Logger.Warn("order book fetch failed",
			zap.String("token_id", tokenID),
			zap.Error(err),
		)
		return decimal.Zero, ReasonBookError
	}
	asks := book.AsksAscending()
	if len(asks) == 0 {
		return decimal.Zero, ReasonNoAsks
	}

	midpoint := s.midpoint(ctx, tokenID, book)
	if midpoint.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ReasonNoMidpoint
	}
	ceiling := midpoint.Mul(decimal.NewFromInt(1).Add(s.SpreadLimit))

	totalCost := decimal.Zero
	totalShares := decimal.Zero
	remaining := s.BudgetUSD

	for _, ask := range asks {
		if ask.Price.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if ask.Price.GreaterThan(ceiling) {
			break
		}
		levelCost := ask.Price.Mul(ask.Size)
		if levelCost.LessThanOrEqual(remaining) {
			totalCost = totalCost.Add(levelCost)
			totalShares = totalShares.Add(ask.Size)
			remaining = remaining.Sub(levelCost)
		} else {
			shares := remaining.Div(ask.Price)
			totalCost = totalCost.Add(remaining)
			totalShares = totalShares.Add(shares)
			remaining = decimal.Zero
			break
		}
	}

	if totalShares.IsZero() {
		return decimal.Zero, ReasonInsufficientLiquidity
	}
	if remaining.GreaterThan(decimal.Zero) {
		// Partial fills would distort the fixed-notional P&L model.
		return decimal.Zero, ReasonInsufficientLiquidity
	}
	return totalCost.Div(totalShares), ReasonNone
}

// midpoint prefers the CLOB's own quote, then (best bid + best ask)/2, then
// the best ask alone.
func (s *FillSimulator) midpoint(ctx context.Context, tokenID string, book *clob.OrderBook) decimal.Decimal {
	mid, err := s.Books.GetMidpoint(ctx, tokenID)
	if err == nil && mid.GreaterThan(decimal.Zero) {
		return mid
	}
	bestAsk, haveAsk := book.BestAsk()
	bestBid, haveBid := book.BestBid()
	if haveAsk && haveBid {
		return bestAsk.Add(bestBid).Div(decimal.NewFromInt(2))
	}
	if haveAsk {
		return bestAsk
	}
	return decimal.Zero
}

// entryQuote is the tagged outcome of one pricing source.
type entryQuote struct {
	Price  decimal.Decimal
	Reason SkipReason
}

// entryPricer is one link in the ordered entry-pricing chain. The chain
// stops at the first success or the first terminal failure.
type entryPricer interface {
	Name() string
	Quote(ctx context.Context, market models.Market, direction, tokenID string) entryQuote
}

// bookVWAPPricer simulates the fill against the live order book.
type bookVWAPPricer struct {
	sim *FillSimulator
}

func (p *bookVWAPPricer) Name() string { return "order_book_vwap" }

func (p *bookVWAPPricer) Quote(ctx context.Context, _ models.Market, _ string, tokenID string) entryQuote {
	price, reason := p.sim.EntryPrice(ctx, tokenID)
	return entryQuote{Price: price, Reason: reason}
}

// cachedPricePricer falls back to the market's cached outcome price.
type cachedPricePricer struct{}

func (p *cachedPricePricer) Name() string { return "cached_outcome_price" }

func (p *cachedPricePricer) Quote(_ context.Context, market models.Market, direction, _ string) entryQuote {
	price, ok := market.OutcomePrice(direction)
	if !ok || price.LessThanOrEqual(decimal.Zero) {
		return entryQuote{Reason: ReasonNoEntryPrice}
	}
	return entryQuote{Price: price}
}
