package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse_MajorUnitsToMinor(t *testing.T) {
	m, err := Parse("12.34", "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Amount != 1234 || m.Currency != "USD" {
		t.Errorf("expected 1234 USD minor units, got %d %s", m.Amount, m.Currency)
	}
}

func TestParse_ZeroExponentCurrency(t *testing.T) {
	m, err := Parse("1500", "JPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Amount != 1500 {
		t.Errorf("expected 1500 JPY minor units, got %d", m.Amount)
	}
}

func TestParse_ThreeExponentCurrency(t *testing.T) {
	m, err := Parse("1.234", "BHD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Amount != 1234 {
		t.Errorf("expected 1234 BHD minor units, got %d", m.Amount)
	}
}

func TestParse_ExcessPrecisionRejected(t *testing.T) {
	_, err := Parse("12.345", "USD")
	if !errors.Is(err, ErrPrecision) {
		t.Errorf("expected ErrPrecision for sub-cent USD amount, got %v", err)
	}

	_, err = Parse("10.5", "JPY")
	if !errors.Is(err, ErrPrecision) {
		t.Errorf("expected ErrPrecision for fractional yen, got %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("not-a-number", "USD"); err == nil {
		t.Error("expected error for unparseable amount")
	}
}

func TestString_RendersMinorUnits(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     string
	}{
		{1234, "USD", "12.34 USD"},
		{-50, "EUR", "-0.50 EUR"},
		{0, "USD", "0.00 USD"},
		{1500, "JPY", "1500 JPY"},
		{1234, "BHD", "1.234 BHD"},
	}
	for _, tt := range tests {
		got := New(tt.amount, tt.currency).String()
		if got != tt.want {
			t.Errorf("New(%d, %s).String() = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestAdd_SameCurrency(t *testing.T) {
	sum, err := New(100, "USD").Add(New(-30, "USD"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Amount != 70 {
		t.Errorf("expected 70, got %d", sum.Amount)
	}
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	_, err := New(100, "USD").Add(New(100, "EUR"))
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("expected ErrCurrencyMismatch, got %v", err)
	}

	_, err = New(100, "USD").Sub(New(100, "EUR"))
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("expected ErrCurrencyMismatch from Sub, got %v", err)
	}
}

func TestDecimal_RoundTrip(t *testing.T) {
	m := New(1234, "USD")
	if !m.Decimal().Equal(decimal.NewFromFloat(12.34)) {
		t.Errorf("expected 12.34, got %s", m.Decimal())
	}

	back, err := FromDecimal(m.Decimal(), "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != m {
		t.Errorf("round trip mismatch: %+v != %+v", back, m)
	}
}

func TestSignHelpers(t *testing.T) {
	if !New(1, "USD").IsPositive() || New(1, "USD").IsZero() || New(1, "USD").IsNegative() {
		t.Error("sign helpers wrong for positive amount")
	}
	if !New(-1, "USD").IsNegative() || !New(0, "USD").IsZero() {
		t.Error("sign helpers wrong for negative/zero amounts")
	}
	if New(-5, "USD").Abs().Amount != 5 || New(5, "USD").Neg().Amount != -5 {
		t.Error("Abs/Neg wrong")
	}
}
