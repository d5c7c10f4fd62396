package split

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/splitpool/settlement-engine/internal/money"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func usd(minor int64) money.Money {
	return money.New(minor, "USD")
}

// sumShares totals the returned shares in minor units.
func sumShares(shares map[string]money.Money) int64 {
	var sum int64
	for _, s := range shares {
		sum += s.Amount
	}
	return sum
}

// --- Equal split ---

func TestCalculate_EqualThreeWay(t *testing.T) {
	// X pays 90 split equally among X, Y, Z.
	shares, err := Calculate(Expense{
		Total:        usd(90),
		PaidBy:       "x",
		Participants: []string{"x", "y", "z"},
		Method:       MethodEqual,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range []string{"x", "y", "z"} {
		if shares[p].Amount != 30 {
			t.Errorf("expected 30 for %s, got %d", p, shares[p].Amount)
		}
	}
}

func TestCalculate_EqualRemainderToFirstParticipants(t *testing.T) {
	// 100 across 3: remainder unit goes to the first participant.
	shares, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b", "c"},
		Method:       MethodEqual,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]int64{"a": 34, "b": 33, "c": 33}
	for p, amt := range want {
		if shares[p].Amount != amt {
			t.Errorf("expected %d for %s, got %d", amt, p, shares[p].Amount)
		}
	}
}

func TestCalculate_EqualSingleParticipant(t *testing.T) {
	shares, err := Calculate(Expense{
		Total:        usd(777),
		PaidBy:       "a",
		Participants: []string{"b"},
		Method:       MethodEqual,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares["b"].Amount != 777 {
		t.Errorf("sole participant should owe full total, got %d", shares["b"].Amount)
	}
}

func TestCalculate_EqualSumInvariant(t *testing.T) {
	// No total/participant-count combination may lose or gain a unit.
	participants := []string{"a", "b", "c", "d", "e", "f", "g"}
	for n := 1; n <= len(participants); n++ {
		for total := int64(0); total <= 500; total++ {
			shares, err := Calculate(Expense{
				Total:        usd(total),
				PaidBy:       "a",
				Participants: participants[:n],
				Method:       MethodEqual,
			})
			if err != nil {
				t.Fatalf("unexpected error at n=%d total=%d: %v", n, total, err)
			}
			if got := sumShares(shares); got != total {
				t.Fatalf("sum mismatch at n=%d total=%d: got %d", n, total, got)
			}
		}
	}
}

// --- Percentage split ---

func TestCalculate_PercentageExact(t *testing.T) {
	// 100 split 33/33/34: shares {33, 33, 34}, sum exactly 100.
	shares, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b", "c"},
		Method:       MethodPercentage,
		Percentages:  map[string]decimal.Decimal{"a": d(33), "b": d(33), "c": d(34)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]int64{"a": 33, "b": 33, "c": 34}
	for p, amt := range want {
		if shares[p].Amount != amt {
			t.Errorf("expected %d for %s, got %d", amt, p, shares[p].Amount)
		}
	}
	if sumShares(shares) != 100 {
		t.Errorf("shares must sum to 100, got %d", sumShares(shares))
	}
}

func TestCalculate_PercentageLargestRemainderFirst(t *testing.T) {
	// 101 at 50/50: both floors are 50, one leftover unit. Equal
	// fractional remainders fall back to input order.
	shares, err := Calculate(Expense{
		Total:        usd(101),
		PaidBy:       "a",
		Participants: []string{"a", "b"},
		Method:       MethodPercentage,
		Percentages:  map[string]decimal.Decimal{"a": d(50), "b": d(50)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares["a"].Amount != 51 || shares["b"].Amount != 50 {
		t.Errorf("expected {a:51, b:50}, got {a:%d, b:%d}", shares["a"].Amount, shares["b"].Amount)
	}
}

func TestCalculate_PercentageSumInvariant(t *testing.T) {
	// Awkward percentages across a sweep of totals still sum exactly.
	pcts := map[string]decimal.Decimal{"a": d(33.33), "b": d(33.33), "c": d(33.34)}
	for total := int64(0); total <= 2000; total++ {
		shares, err := Calculate(Expense{
			Total:        usd(total),
			PaidBy:       "a",
			Participants: []string{"a", "b", "c"},
			Method:       MethodPercentage,
			Percentages:  pcts,
		})
		if err != nil {
			t.Fatalf("unexpected error at total=%d: %v", total, err)
		}
		if got := sumShares(shares); got != total {
			t.Fatalf("sum mismatch at total=%d: got %d", total, got)
		}
	}
}

func TestCalculate_PercentageNotSummingTo100(t *testing.T) {
	_, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b"},
		Method:       MethodPercentage,
		Percentages:  map[string]decimal.Decimal{"a": d(60), "b": d(50)},
	})
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense for 110%%, got %v", err)
	}
}

func TestCalculate_PercentageWithinTolerance(t *testing.T) {
	// 33.33 + 33.33 + 33.33 = 99.99, inside the 0.01 tolerance.
	_, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b", "c"},
		Method:       MethodPercentage,
		Percentages:  map[string]decimal.Decimal{"a": d(33.33), "b": d(33.33), "c": d(33.33)},
	})
	if err != nil {
		t.Errorf("99.99%% should be within tolerance, got %v", err)
	}
}

func TestCalculate_PercentageToleranceEdgesSumExactly(t *testing.T) {
	// Percentage sums at the edges of the tolerance window must still
	// allocate exactly the expense total, never a unit more or less.
	cases := []struct {
		name         string
		total        int64
		participants []string
		pcts         map[string]decimal.Decimal
	}{
		{"single above 100", 10000, []string{"a"},
			map[string]decimal.Decimal{"a": d(100.01)}},
		{"split above 100", 1000000, []string{"a", "b"},
			map[string]decimal.Decimal{"a": d(50.005), "b": d(50.005)}},
		{"single below 100", 10000, []string{"a"},
			map[string]decimal.Decimal{"a": d(99.99)}},
		{"split below 100", 100, []string{"a", "b", "c"},
			map[string]decimal.Decimal{"a": d(33.33), "b": d(33.33), "c": d(33.33)}},
	}
	for _, tc := range cases {
		shares, err := Calculate(Expense{
			Total:        usd(tc.total),
			PaidBy:       "a",
			Participants: tc.participants,
			Method:       MethodPercentage,
			Percentages:  tc.pcts,
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got := sumShares(shares); got != tc.total {
			t.Errorf("%s: sum mismatch: got %d, want %d", tc.name, got, tc.total)
		}
	}
}

func TestCalculate_PercentageMissingEntry(t *testing.T) {
	_, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b"},
		Method:       MethodPercentage,
		Percentages:  map[string]decimal.Decimal{"a": d(100)},
	})
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense for missing percentage, got %v", err)
	}
}

func TestCalculate_PercentageForeignEntry(t *testing.T) {
	_, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a"},
		Method:       MethodPercentage,
		Percentages:  map[string]decimal.Decimal{"a": d(100), "ghost": d(0)},
	})
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense for non-participant entry, got %v", err)
	}
}

// --- Shares split ---

func TestCalculate_SharesWeighted(t *testing.T) {
	// 100 at weights 1:2:1 → 25/50/25.
	shares, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b", "c"},
		Method:       MethodShares,
		Weights:      map[string]decimal.Decimal{"a": d(1), "b": d(2), "c": d(1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]int64{"a": 25, "b": 50, "c": 25}
	for p, amt := range want {
		if shares[p].Amount != amt {
			t.Errorf("expected %d for %s, got %d", amt, p, shares[p].Amount)
		}
	}
}

func TestCalculate_SharesSumInvariant(t *testing.T) {
	// Weights that do not divide evenly (1:1:1 thirds) across totals.
	weights := map[string]decimal.Decimal{"a": d(1), "b": d(1), "c": d(1)}
	for total := int64(0); total <= 1000; total++ {
		shares, err := Calculate(Expense{
			Total:        usd(total),
			PaidBy:       "a",
			Participants: []string{"a", "b", "c"},
			Method:       MethodShares,
			Weights:      weights,
		})
		if err != nil {
			t.Fatalf("unexpected error at total=%d: %v", total, err)
		}
		if got := sumShares(shares); got != total {
			t.Fatalf("sum mismatch at total=%d: got %d", total, got)
		}
	}
}

func TestCalculate_SharesFractionalWeights(t *testing.T) {
	shares, err := Calculate(Expense{
		Total:        usd(90),
		PaidBy:       "a",
		Participants: []string{"a", "b"},
		Method:       MethodShares,
		Weights:      map[string]decimal.Decimal{"a": d(0.5), "b": d(1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares["a"].Amount != 30 || shares["b"].Amount != 60 {
		t.Errorf("expected {a:30, b:60}, got {a:%d, b:%d}", shares["a"].Amount, shares["b"].Amount)
	}
}

func TestCalculate_SharesNonPositiveWeight(t *testing.T) {
	for _, w := range []decimal.Decimal{d(0), d(-1)} {
		_, err := Calculate(Expense{
			Total:        usd(100),
			PaidBy:       "a",
			Participants: []string{"a", "b"},
			Method:       MethodShares,
			Weights:      map[string]decimal.Decimal{"a": d(1), "b": w},
		})
		if !errors.Is(err, ErrInvalidExpense) {
			t.Errorf("expected ErrInvalidExpense for weight %s, got %v", w, err)
		}
	}
}

// --- Custom split ---

func TestCalculate_CustomExactSum(t *testing.T) {
	shares, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b"},
		Method:       MethodCustom,
		Amounts:      map[string]int64{"a": 70, "b": 30},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Custom amounts come back unchanged.
	if shares["a"].Amount != 70 || shares["b"].Amount != 30 {
		t.Errorf("expected {a:70, b:30}, got {a:%d, b:%d}", shares["a"].Amount, shares["b"].Amount)
	}
}

func TestCalculate_CustomMismatch(t *testing.T) {
	_, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b"},
		Method:       MethodCustom,
		Amounts:      map[string]int64{"a": 70, "b": 29},
	})
	if !errors.Is(err, ErrSplitMismatch) {
		t.Errorf("expected ErrSplitMismatch, got %v", err)
	}
}

func TestCalculate_CustomMissingAmount(t *testing.T) {
	_, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "b"},
		Method:       MethodCustom,
		Amounts:      map[string]int64{"a": 100},
	})
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense for missing amount, got %v", err)
	}
}

// --- Shared validation ---

func TestCalculate_NoParticipants(t *testing.T) {
	_, err := Calculate(Expense{
		Total:  usd(100),
		PaidBy: "a",
		Method: MethodEqual,
	})
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense for empty participants, got %v", err)
	}
}

func TestCalculate_DuplicateParticipant(t *testing.T) {
	_, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a", "a"},
		Method:       MethodEqual,
	})
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense for duplicate participant, got %v", err)
	}
}

func TestCalculate_NegativeTotal(t *testing.T) {
	_, err := Calculate(Expense{
		Total:        usd(-1),
		PaidBy:       "a",
		Participants: []string{"a"},
		Method:       MethodEqual,
	})
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense for negative total, got %v", err)
	}
}

func TestCalculate_UnknownMethod(t *testing.T) {
	_, err := Calculate(Expense{
		Total:        usd(100),
		PaidBy:       "a",
		Participants: []string{"a"},
		Method:       Method("VIBES"),
	})
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense for unknown method, got %v", err)
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	exp := Expense{
		Total:        usd(1003),
		PaidBy:       "a",
		Participants: []string{"a", "b", "c"},
		Method:       MethodPercentage,
		Percentages:  map[string]decimal.Decimal{"a": d(20), "b": d(30), "c": d(50)},
	}
	first, err := Calculate(exp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Calculate(exp)
		if err != nil {
			t.Fatalf("unexpected error on rerun: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("split is not deterministic: %v != %v", first, again)
		}
	}
}

// --- Rescale ---

func TestRescale_KeepsProportionsAndExactSum(t *testing.T) {
	shares := map[string]money.Money{
		"a": money.New(70, "EUR"),
		"b": money.New(30, "EUR"),
	}
	out, err := Rescale(usd(110), []string{"a", "b"}, shares)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["a"].Amount != 77 || out["b"].Amount != 33 {
		t.Errorf("expected {a:77, b:33}, got {a:%d, b:%d}", out["a"].Amount, out["b"].Amount)
	}
	if sumShares(out) != 110 {
		t.Errorf("rescaled shares must sum to 110, got %d", sumShares(out))
	}
}

func TestRescale_UnevenTargetStillExact(t *testing.T) {
	shares := map[string]money.Money{
		"a": money.New(1, "EUR"),
		"b": money.New(1, "EUR"),
		"c": money.New(1, "EUR"),
	}
	out, err := Rescale(usd(100), []string{"a", "b", "c"}, shares)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sumShares(out) != 100 {
		t.Errorf("rescaled shares must sum to 100, got %d", sumShares(out))
	}
}

func TestRescale_ZeroSharesZeroTotal(t *testing.T) {
	shares := map[string]money.Money{"a": money.New(0, "EUR")}
	out, err := Rescale(usd(0), []string{"a"}, shares)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["a"].Amount != 0 {
		t.Errorf("expected zero share, got %d", out["a"].Amount)
	}
}

func TestRescale_ZeroSharesNonzeroTotal(t *testing.T) {
	shares := map[string]money.Money{"a": money.New(0, "EUR")}
	_, err := Rescale(usd(5), []string{"a"}, shares)
	if !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("expected ErrInvalidExpense, got %v", err)
	}
}
