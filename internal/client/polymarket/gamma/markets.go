package gamma

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polysignal/internal/models"
)

// rawMarket mirrors the Gamma wire format. The outcome lists arrive as
// stringified JSON arrays ("[\"Yes\", \"No\"]"), occasionally as real arrays.
type rawMarket struct {
	ID            string          `json:"id"`
	ConditionID   string          `json:"conditionId"`
	Question      string          `json:"question"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Outcomes      json.RawMessage `json:"outcomes"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	ClobTokenIDs  json.RawMessage `json:"clobTokenIds"`
	VolumeNum     json.RawMessage `json:"volumeNum"`
	LiquidityNum  json.RawMessage `json:"liquidityNum"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
}

func parseMarkets(body []byte) ([]models.Market, error) {
	var raws []rawMarket
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("invalid markets response: %w", err)
	}
	out := make([]models.Market, 0, len(raws))
	for _, r := range raws {
		m, err := normalizeMarket(r)
		if err != nil {
			// Boundary validation: a single malformed market is dropped,
			// not fatal for the page.
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func normalizeMarket(r rawMarket) (models.Market, error) {
	m := models.Market{
		ID:          firstNonEmpty(r.ID, r.ConditionID),
		Question:    firstNonEmpty(r.Question, r.Title),
		Description: r.Description,
	}
	if m.ID == "" {
		return models.Market{}, fmt.Errorf("market without id")
	}

	m.Outcomes = parseStringList(r.Outcomes)
	m.ClobTokenIDs = parseStringList(r.ClobTokenIDs)
	m.OutcomePrices = parseDecimalList(r.OutcomePrices)
	m.Volume = parseLooseDecimal(r.VolumeNum)
	m.Liquidity = parseLooseDecimal(r.LiquidityNum)
	m.StartDate = parseDate(r.StartDate)
	m.EndDate = parseDate(r.EndDate)

	if err := m.Validate(); err != nil {
		// Misaligned lists are unusable for token resolution; blank them
		// rather than carrying a broken invariant into the caches.
		m.Outcomes = nil
		m.OutcomePrices = nil
		m.ClobTokenIDs = nil
	}
	return m, nil
}

// parseStringList accepts either a JSON array of strings or a stringified
// JSON array.
func parseStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return list
		}
	}
	return nil
}

func parseDecimalList(raw json.RawMessage) []decimal.Decimal {
	strs := parseStringList(raw)
	if strs == nil {
		// Prices may also arrive as a numeric array.
		var nums []float64
		if err := json.Unmarshal(raw, &nums); err == nil {
			out := make([]decimal.Decimal, 0, len(nums))
			for _, n := range nums {
				out = append(out, decimal.NewFromFloat(n))
			}
			return out
		}
		return nil
	}
	out := make([]decimal.Decimal, 0, len(strs))
	for _, s := range strs {
		d, err := decimal.NewFromString(s)
		if err != nil {
			d = decimal.Zero
		}
		out = append(out, d)
	}
	return out
}

func parseLooseDecimal(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return decimal.NewFromFloat(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
