// Package money provides a fixed-precision monetary amount: an integer
// count of minor units (cents, satang, fils) tagged with an ISO 4217
// currency code. All monetary values use integer minor units — never
// float64 for money. Fractional math at the boundaries (parsing,
// formatting, rate application) goes through shopspring/decimal.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyMismatch is returned when arithmetic is attempted
	// between two amounts of different currencies.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")

	// ErrPrecision is returned when a decimal amount carries more
	// fractional digits than the currency's minor unit supports.
	ErrPrecision = errors.New("money: amount exceeds currency precision")
)

// exponents maps currency codes with a non-default minor unit exponent.
// Everything absent defaults to 2 (cents).
var exponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}

// Exponent returns the number of fractional digits of a currency's
// minor unit (2 for USD/EUR, 0 for JPY, 3 for BHD).
func Exponent(currency string) int32 {
	if e, ok := exponents[currency]; ok {
		return e
	}
	return 2
}

// Money is an exact amount of one currency, held as minor units.
// The zero value is zero units of the empty currency.
type Money struct {
	Amount   int64  `json:"amount" db:"amount"` // signed minor units
	Currency string `json:"currency" db:"currency"`
}

// New creates a Money from minor units.
func New(minorUnits int64, currency string) Money {
	return Money{Amount: minorUnits, Currency: currency}
}

// FromDecimal converts a major-unit decimal ("12.34") into Money.
// Amounts with more precision than the currency's minor unit are
// rejected rather than rounded: silent rounding of user input is how
// units get lost.
func FromDecimal(d decimal.Decimal, currency string) (Money, error) {
	shifted := d.Shift(Exponent(currency))
	if !shifted.IsInteger() {
		return Money{}, fmt.Errorf("%w: %s %s", ErrPrecision, d, currency)
	}
	return Money{Amount: shifted.IntPart(), Currency: currency}, nil
}

// Parse parses a major-unit decimal string into Money.
func Parse(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d, currency)
}

// Decimal returns the amount in major units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -Exponent(m.Currency))
}

// String renders the amount with its currency code, e.g. "12.34 USD".
func (m Money) String() string {
	return m.Decimal().StringFixed(Exponent(m.Currency)) + " " + m.Currency
}

// Add returns m + o. The currencies must match.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

// Sub returns m − o. The currencies must match.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}, nil
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Neg()
	}
	return m
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }
