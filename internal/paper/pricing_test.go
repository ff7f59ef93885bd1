package paper

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysignal/internal/client/polymarket/clob"
)

type fakeBooks struct {
	books   map[string]*clob.OrderBook
	mids    map[string]decimal.Decimal
	bookErr error
	midErr  error
}

func (f *fakeBooks) GetBook(_ context.Context, tokenID string) (*clob.OrderBook, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	book, ok := f.books[tokenID]
	if !ok {
		return &clob.OrderBook{}, nil
	}
	return book, nil
}

func (f *fakeBooks) GetMidpoint(_ context.Context, tokenID string) (decimal.Decimal, error) {
	if f.midErr != nil {
		return decimal.Zero, f.midErr
	}
	mid, ok := f.mids[tokenID]
	if !ok {
		return decimal.Zero, fmt.Errorf("no midpoint for %s", tokenID)
	}
	return mid, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func asks(levels ...[2]string) []clob.Order {
	out := make([]clob.Order, 0, len(levels))
	for _, l := range levels {
		out = append(out, clob.Order{Price: dec(l[0]), Size: dec(l[1])})
	}
	return out
}

func newSimulator(books BookClient) *FillSimulator {
	return &FillSimulator{
		Books:       books,
		BudgetUSD:   dec("25"),
		SpreadLimit: dec("0.05"),
		Logger:      zap.NewNop(),
	}
}

func TestEntryPriceVWAPAcrossLevels(t *testing.T) {
	books := &fakeBooks{
		books: map[string]*clob.OrderBook{
			"tok": {Asks: asks([2]string{"0.10", "100"}, [2]string{"0.12", "200"})},
		},
		mids: map[string]decimal.Decimal{"tok": dec("0.115")},
	}
	sim := newSimulator(books)

	price, reason := sim.EntryPrice(context.Background(), "tok")
	if reason != ReasonNone {
		t.Fatalf("expected fill, got reason %q", reason)
	}
	// $10 at 0.10 (100 shares) + $15 at 0.12 (125 shares) = $25 / 225 shares.
	want := dec("25").Div(dec("225"))
	if !price.Equal(want) {
		t.Fatalf("vwap = %s, want %s", price, want)
	}
	if price.LessThanOrEqual(dec("0.10")) || price.GreaterThanOrEqual(dec("0.12")) {
		t.Fatalf("vwap %s outside consumed level range", price)
	}
}

func TestEntryPriceInsufficientDepth(t *testing.T) {
	books := &fakeBooks{
		books: map[string]*clob.OrderBook{
			"tok": {Asks: asks([2]string{"0.10", "50"})},
		},
		mids: map[string]decimal.Decimal{"tok": dec("0.10")},
	}
	sim := newSimulator(books)

	// Only $5 of depth against a $25 budget: all-or-nothing fails.
	_, reason := sim.EntryPrice(context.Background(), "tok")
	if reason != ReasonInsufficientLiquidity {
		t.Fatalf("reason = %q, want %q", reason, ReasonInsufficientLiquidity)
	}
}

func TestEntryPriceCeilingExcludesWideAsks(t *testing.T) {
	books := &fakeBooks{
		books: map[string]*clob.OrderBook{
			"tok": {Asks: asks([2]string{"0.10", "100"}, [2]string{"0.50", "1000"})},
		},
		mids: map[string]decimal.Decimal{"tok": dec("0.10")},
	}
	sim := newSimulator(books)

	// The 0.50 level is far above midpoint*1.05 and must not be consumed,
	// leaving the budget unfillable.
	_, reason := sim.EntryPrice(context.Background(), "tok")
	if reason != ReasonInsufficientLiquidity {
		t.Fatalf("reason = %q, want %q", reason, ReasonInsufficientLiquidity)
	}
}

func TestEntryPricePartialLastLevel(t *testing.T) {
	books := &fakeBooks{
		books: map[string]*clob.OrderBook{
			"tok": {Asks: asks([2]string{"0.20", "1000"})},
		},
		mids: map[string]decimal.Decimal{"tok": dec("0.20")},
	}
	sim := newSimulator(books)

	price, reason := sim.EntryPrice(context.Background(), "tok")
	if reason != ReasonNone {
		t.Fatalf("expected fill, got reason %q", reason)
	}
	if !price.Equal(dec("0.2")) {
		t.Fatalf("single-level vwap = %s, want 0.2", price)
	}
}

func TestEntryPriceFailureModes(t *testing.T) {
	ctx := context.Background()

	sim := newSimulator(&fakeBooks{})
	if _, reason := sim.EntryPrice(ctx, ""); reason != ReasonNoTokenID {
		t.Fatalf("empty token: reason = %q", reason)
	}
	if _, reason := sim.EntryPrice(ctx, "missing"); reason != ReasonNoAsks {
		t.Fatalf("empty book: reason = %q", reason)
	}

	sim = newSimulator(&fakeBooks{bookErr: fmt.Errorf("boom")})
	if _, reason := sim.EntryPrice(ctx, "tok"); reason != ReasonBookError {
		t.Fatalf("book error: reason = %q", reason)
	}
}

func TestMidpointFallsBackToBook(t *testing.T) {
	books := &fakeBooks{
		books: map[string]*clob.OrderBook{
			"tok": {
				Bids: asks([2]string{"0.08", "10"}),
				Asks: asks([2]string{"0.12", "10"}),
			},
		},
	}
	sim := newSimulator(books)

	book, _ := books.GetBook(context.Background(), "tok")
	mid := sim.midpoint(context.Background(), "tok", book)
	if !mid.Equal(dec("0.1")) {
		t.Fatalf("midpoint = %s, want 0.1", mid)
	}
}

func TestSkipReasonTerminal(t *testing.T) {
	if !ReasonInsufficientLiquidity.Terminal() {
		t.Fatal("insufficient_liquidity must be terminal")
	}
	for _, r := range []SkipReason{ReasonNone, ReasonNoTokenID, ReasonBookError, ReasonNoAsks, ReasonNoMidpoint, ReasonNoEntryPrice} {
		if r.Terminal() {
			t.Fatalf("%q must not be terminal", r)
		}
	}
}
