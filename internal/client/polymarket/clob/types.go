package clob

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Decimal accepts CLOB numeric fields that arrive as either JSON strings or
// numbers.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.Decimal = decimal.Zero
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		val, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		d.Decimal = val
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		d.Decimal = decimal.NewFromFloat(f)
		return nil
	}
	return fmt.Errorf("invalid decimal: %s", string(b))
}

// Order is one price level. The API serves levels both as [price, size]
// arrays and as {price, size} objects depending on endpoint.
type Order struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

func (o *Order) UnmarshalJSON(b []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err == nil && len(arr) >= 2 {
		price, err := parseDecimalRaw(arr[0])
		if err != nil {
			return err
		}
		size, err := parseDecimalRaw(arr[1])
		if err != nil {
			return err
		}
		o.Price = price
		o.Size = size
		return nil
	}
	var obj struct {
		Price json.RawMessage `json:"price"`
		Size  json.RawMessage `json:"size"`
		Qty   json.RawMessage `json:"qty"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		price, err := parseDecimalRaw(obj.Price)
		if err != nil {
			return err
		}
		sizeRaw := obj.Size
		if len(sizeRaw) == 0 {
			sizeRaw = obj.Qty
		}
		size, err := parseDecimalRaw(sizeRaw)
		if err != nil {
			return err
		}
		o.Price = price
		o.Size = size
		return nil
	}
	return fmt.Errorf("invalid order: %s", string(b))
}

type OrderBook struct {
	Bids []Order `json:"bids"`
	Asks []Order `json:"asks"`
}

// AsksAscending returns the ask levels sorted cheapest-first.
func (b *OrderBook) AsksAscending() []Order {
	asks := make([]Order, len(b.Asks))
	copy(asks, b.Asks)
	sort.SliceStable(asks, func(i, j int) bool {
		return asks[i].Price.LessThan(asks[j].Price)
	})
	return asks
}

// BestAsk returns the lowest ask price, if any.
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	best := decimal.Zero
	found := false
	for _, a := range b.Asks {
		if a.Price.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if !found || a.Price.LessThan(best) {
			best = a.Price
			found = true
		}
	}
	return best, found
}

// BestBid returns the highest bid price, if any.
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	best := decimal.Zero
	found := false
	for _, bid := range b.Bids {
		if bid.Price.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if !found || bid.Price.GreaterThan(best) {
			best = bid.Price
			found = true
		}
	}
	return best, found
}

func parseOrderBook(body []byte) (*OrderBook, error) {
	var book OrderBook
	if err := json.Unmarshal(body, &book); err == nil {
		return &book, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if bidsRaw, ok := raw["bids"]; ok {
		_ = json.Unmarshal(bidsRaw, &book.Bids)
	}
	if asksRaw, ok := raw["asks"]; ok {
		_ = json.Unmarshal(asksRaw, &book.Asks)
	}
	return &book, nil
}

func parseKeyedDecimal(body []byte, key string) (decimal.Decimal, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return decimal.Zero, err
	}
	v, ok := raw[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s not found in response", key)
	}
	return parseDecimalRaw(v)
}

func parseDecimalRaw(b json.RawMessage) (decimal.Decimal, error) {
	var d Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return decimal.Zero, err
	}
	return d.Decimal, nil
}
