package maturity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// RATE TABLE - Contract currency -> target currency conversion
// =============================================================================

// RateTable resolves the multiplier that converts a contract-currency amount
// into the target currency.
//
// Resolution order for a row:
//  1. contract currency equals target currency -> 1
//  2. explicit per-currency rate
//  3. scalar fallback rate, when one was configured
//  4. 1 (conversion silently degrades to identity)
type RateTable struct {
	rates       map[string]decimal.Decimal
	fallback    decimal.Decimal
	hasFallback bool
}

// NewRateTable builds a per-currency table. Currency codes are case-insensitive.
func NewRateTable(rates map[string]decimal.Decimal) RateTable {
	t := RateTable{rates: make(map[string]decimal.Decimal, len(rates)), fallback: decimal.Zero}
	for ccy, r := range rates {
		t.rates[normalizeCurrency(ccy)] = r
	}
	return t
}

// ScalarRate applies one rate to every contract currency.
func ScalarRate(r decimal.Decimal) RateTable {
	return RateTable{fallback: r, hasFallback: true}
}

// WithFallback returns a copy with a scalar rate for currencies not in the table.
func (t RateTable) WithFallback(r decimal.Decimal) RateTable {
	t.fallback = r
	t.hasFallback = true
	return t
}

// Rate returns the multiplier from a contract currency to the target currency.
func (t RateTable) Rate(from, to string) decimal.Decimal {
	from = normalizeCurrency(from)
	if from != "" && from == normalizeCurrency(to) {
		return decimal.NewFromInt(1)
	}
	if r, ok := t.rates[from]; ok {
		return r
	}
	if t.hasFallback {
		return t.fallback
	}
	return decimal.NewFromInt(1)
}

// Validate rejects non-positive rates.
func (t RateTable) Validate() error {
	for ccy, r := range t.rates {
		if !r.IsPositive() {
			return &table.ConfigError{Field: "rates", Reason: fmt.Sprintf("rate for %s must be positive, got %s", ccy, r)}
		}
	}
	if t.hasFallback && !t.fallback.IsPositive() {
		return &table.ConfigError{Field: "exchange_rate", Reason: fmt.Sprintf("must be positive, got %s", t.fallback)}
	}
	return nil
}

func normalizeCurrency(ccy string) string {
	return strings.ToUpper(strings.TrimSpace(ccy))
}
