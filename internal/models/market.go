package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market is a tradable Polymarket market as cached from the Gamma API.
// Outcomes, OutcomePrices and ClobTokenIDs are positionally aligned: index i
// of each list describes the same outcome.
type Market struct {
	ID            string            `json:"id"`
	Question      string            `json:"question"`
	Description   string            `json:"description,omitempty"`
	Outcomes      []string          `json:"outcomes"`
	OutcomePrices []decimal.Decimal `json:"outcome_prices"`
	ClobTokenIDs  []string          `json:"clob_token_ids"`
	Volume        decimal.Decimal   `json:"volume"`
	Liquidity     decimal.Decimal   `json:"liquidity"`
	StartDate     *time.Time        `json:"start_date,omitempty"`
	EndDate       *time.Time        `json:"end_date,omitempty"`
}

// Validate checks the positional-alignment invariant: the three outcome lists
// must have equal length, or all be empty.
func (m Market) Validate() error {
	if len(m.Outcomes) == 0 && len(m.OutcomePrices) == 0 && len(m.ClobTokenIDs) == 0 {
		return nil
	}
	if len(m.Outcomes) != len(m.OutcomePrices) || len(m.Outcomes) != len(m.ClobTokenIDs) {
		return fmt.Errorf("market %s: misaligned outcome lists (%d outcomes, %d prices, %d tokens)",
			m.ID, len(m.Outcomes), len(m.OutcomePrices), len(m.ClobTokenIDs))
	}
	return nil
}

// OutcomePrice returns the cached price for a direction ("YES"/"NO"),
// matching outcome names case-insensitively.
func (m Market) OutcomePrice(direction string) (decimal.Decimal, bool) {
	for i, outcome := range m.Outcomes {
		if strings.EqualFold(outcome, direction) && i < len(m.OutcomePrices) {
			return m.OutcomePrices[i], true
		}
	}
	return decimal.Zero, false
}

// TokenID returns the CLOB token id for a direction, matching outcome names
// case-insensitively.
func (m Market) TokenID(direction string) (string, bool) {
	for i, outcome := range m.Outcomes {
		if strings.EqualFold(outcome, direction) && i < len(m.ClobTokenIDs) {
			return m.ClobTokenIDs[i], true
		}
	}
	return "", false
}

// EmbedText is the text a market is embedded under: question plus description.
func (m Market) EmbedText() string {
	return strings.TrimSpace(m.Question + " " + m.Description)
}

// TopByVolume returns the n highest-volume markets, descending.
func TopByVolume(markets []Market, n int) []Market {
	out := make([]Market, len(markets))
	copy(out, markets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Volume.GreaterThan(out[j].Volume)
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}
