// Package fx normalizes multi-currency amounts into a single settlement
// currency. A calculation run consumes a frozen, immutable rate Table;
// rates are never re-read mid-calculation. Conversion rounds to the
// nearest minor unit with round-half-to-even (banker's rounding) so
// repeated conversions carry no systematic bias.
package fx

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitpool/settlement-engine/internal/money"
)

// ErrRateUnavailable is returned when the table has no rate for a
// required currency pair. The converter never guesses or substitutes a
// default rate.
var ErrRateUnavailable = errors.New("fx: rate unavailable")

// Rate is one exchange-rate fact: one unit of From buys Rate units of
// To, as observed at AsOf. Read-only for the duration of a run.
type Rate struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
	AsOf time.Time       `json:"as_of"`
}

// Table is an immutable rate table with a base currency. Lookups
// resolve a direct pair, then the inverse pair, then cross through the
// base currency.
type Table struct {
	base  string
	asOf  time.Time
	rates map[string]decimal.Decimal // "FROM/TO"
}

func pairKey(from, to string) string { return from + "/" + to }

// NewTable builds a frozen table from a set of rates. The input slice
// is copied; later mutations of it do not affect the table.
func NewTable(base string, asOf time.Time, rates []Rate) *Table {
	m := make(map[string]decimal.Decimal, len(rates))
	for _, r := range rates {
		m[pairKey(r.From, r.To)] = r.Rate
	}
	return &Table{base: base, asOf: asOf, rates: m}
}

// Base returns the table's base (settlement) currency.
func (t *Table) Base() string { return t.base }

// AsOf returns the timestamp the rates were observed at.
func (t *Table) AsOf() time.Time { return t.asOf }

// Rate resolves the conversion rate from one currency to another.
// Same-currency lookups return 1 exactly.
func (t *Table) Rate(from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if r, ok := t.rates[pairKey(from, to)]; ok {
		return r, nil
	}
	if r, ok := t.rates[pairKey(to, from)]; ok && r.IsPositive() {
		return decimal.NewFromInt(1).Div(r), nil
	}
	// Cross through the base currency: from → base → to.
	if from != t.base && to != t.base {
		toBase, err := t.Rate(from, t.base)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrRateUnavailable, from, to)
		}
		fromBase, err := t.Rate(t.base, to)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrRateUnavailable, from, to)
		}
		return toBase.Mul(fromBase), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrRateUnavailable, from, to)
}

// Convert turns an amount into the target currency. Identity when the
// currencies already match. The major-unit value is scaled by the rate
// and rounded half-to-even back onto the target currency's minor unit
// grid, respecting differing minor-unit exponents (USD→JPY lands on
// whole yen).
func (t *Table) Convert(m money.Money, target string) (money.Money, error) {
	if m.Currency == target {
		return m, nil
	}
	rate, err := t.Rate(m.Currency, target)
	if err != nil {
		return money.Money{}, err
	}

	converted := m.Decimal().Mul(rate)
	minor := converted.Shift(money.Exponent(target)).RoundBank(0)
	return money.New(minor.IntPart(), target), nil
}
