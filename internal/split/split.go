// Package split implements the expense-splitting engine. An expense
// (total amount, payer, ordered participant list, split method) is
// turned into one owed share per participant, with the guarantee that
// the shares always sum exactly to the total: minor units lost to
// integer division are handed back one at a time, never dropped.
//
// The engine is a pure function of its inputs. The method set is closed
// (Equal, Percentage, Shares, Custom) and dispatched exhaustively.
//
// All monetary values use integer minor units — never float64 for money.
package split

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/splitpool/settlement-engine/internal/money"
)

// Method selects how an expense total is allocated across participants.
type Method string

// Supported split methods.
const (
	MethodEqual      Method = "EQUAL"
	MethodPercentage Method = "PERCENTAGE"
	MethodShares     Method = "SHARES"
	MethodCustom     Method = "CUSTOM"
)

var (
	// ErrInvalidExpense is returned for malformed input: no
	// participants, a negative total, an unknown method, or method
	// parameters that are missing, foreign, or out of range.
	ErrInvalidExpense = errors.New("split: invalid expense")

	// ErrSplitMismatch is returned when Custom amounts do not sum
	// exactly to the expense total. This is the only method that can
	// fail on otherwise well-formed input.
	ErrSplitMismatch = errors.New("split: custom amounts do not sum to expense total")
)

// percentTolerance is how far the percentage sum may drift from 100
// before the expense is rejected.
var percentTolerance = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// Expense is the input to Calculate. Participants is an ordered list of
// member IDs; the order is the deterministic tie-break for remainder
// distribution. The payer need not be a participant.
type Expense struct {
	Total        money.Money
	PaidBy       string
	Participants []string

	Method Method

	// Exactly one of the following is consulted, per Method.
	Percentages map[string]decimal.Decimal // member → percentage of total
	Weights     map[string]decimal.Decimal // member → positive share weight
	Amounts     map[string]int64           // member → exact minor units
}

// Calculate returns the owed share per participant. The shares sum
// exactly to exp.Total for every method; Custom additionally requires
// the caller-supplied amounts to already sum exactly.
func Calculate(exp Expense) (map[string]money.Money, error) {
	if err := validate(exp); err != nil {
		return nil, err
	}

	var units []int64
	switch exp.Method {
	case MethodEqual:
		units = splitEqual(exp.Total.Amount, len(exp.Participants))
	case MethodPercentage:
		// Normalize by the actual percentage sum, not a fixed 100:
		// validation tolerates sums slightly off 100, and dividing by
		// 100 there would over- or under-allocate minor units.
		weights := make([]decimal.Decimal, len(exp.Participants))
		sum := decimal.Zero
		for i, p := range exp.Participants {
			weights[i] = exp.Percentages[p]
			sum = sum.Add(weights[i])
		}
		units = splitWeighted(exp.Total.Amount, weights, sum)
	case MethodShares:
		weights := make([]decimal.Decimal, len(exp.Participants))
		sum := decimal.Zero
		for i, p := range exp.Participants {
			weights[i] = exp.Weights[p]
			sum = sum.Add(exp.Weights[p])
		}
		units = splitWeighted(exp.Total.Amount, weights, sum)
	case MethodCustom:
		units = make([]int64, len(exp.Participants))
		for i, p := range exp.Participants {
			units[i] = exp.Amounts[p]
		}
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidExpense, exp.Method)
	}

	shares := make(map[string]money.Money, len(exp.Participants))
	for i, p := range exp.Participants {
		shares[p] = money.New(units[i], exp.Total.Currency)
	}
	return shares, nil
}

// Rescale re-denominates an exact allocation onto a new total, keeping
// each participant's proportions and the exact-sum guarantee. Used when
// a custom-split expense is converted into the settlement currency: the
// converted total is redistributed in proportion to the original
// shares, so the base-currency shares still sum exactly to the
// converted total.
func Rescale(total money.Money, order []string, shares map[string]money.Money) (map[string]money.Money, error) {
	weights := make([]decimal.Decimal, len(order))
	sum := decimal.Zero
	for i, p := range order {
		share, ok := shares[p]
		if !ok {
			return nil, fmt.Errorf("%w: missing share for %s", ErrInvalidExpense, p)
		}
		weights[i] = decimal.NewFromInt(share.Amount)
		sum = sum.Add(weights[i])
	}

	out := make(map[string]money.Money, len(order))
	if sum.IsZero() {
		// All-zero shares only rescale onto a zero total.
		if total.Amount != 0 {
			return nil, fmt.Errorf("%w: cannot rescale zero shares onto %s", ErrInvalidExpense, total)
		}
		for _, p := range order {
			out[p] = money.New(0, total.Currency)
		}
		return out, nil
	}

	units := splitWeighted(total.Amount, weights, sum)
	for i, p := range order {
		out[p] = money.New(units[i], total.Currency)
	}
	return out, nil
}

// validate rejects malformed expenses before any allocation runs.
func validate(exp Expense) error {
	if len(exp.Participants) == 0 {
		return fmt.Errorf("%w: no participants", ErrInvalidExpense)
	}
	if exp.Total.Amount < 0 {
		return fmt.Errorf("%w: negative total %s", ErrInvalidExpense, exp.Total)
	}
	seen := make(map[string]bool, len(exp.Participants))
	for _, p := range exp.Participants {
		if p == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidExpense)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate participant %s", ErrInvalidExpense, p)
		}
		seen[p] = true
	}

	switch exp.Method {
	case MethodEqual:
		return nil

	case MethodPercentage:
		sum := decimal.Zero
		for _, p := range exp.Participants {
			pct, ok := exp.Percentages[p]
			if !ok {
				return fmt.Errorf("%w: missing percentage for %s", ErrInvalidExpense, p)
			}
			if pct.IsNegative() {
				return fmt.Errorf("%w: negative percentage for %s", ErrInvalidExpense, p)
			}
			sum = sum.Add(pct)
		}
		for p := range exp.Percentages {
			if !seen[p] {
				return fmt.Errorf("%w: percentage for non-participant %s", ErrInvalidExpense, p)
			}
		}
		if sum.Sub(oneHundred).Abs().GreaterThan(percentTolerance) {
			return fmt.Errorf("%w: percentages sum to %s, want 100", ErrInvalidExpense, sum)
		}
		return nil

	case MethodShares:
		for _, p := range exp.Participants {
			w, ok := exp.Weights[p]
			if !ok {
				return fmt.Errorf("%w: missing share weight for %s", ErrInvalidExpense, p)
			}
			if !w.IsPositive() {
				return fmt.Errorf("%w: share weight for %s must be positive", ErrInvalidExpense, p)
			}
		}
		for p := range exp.Weights {
			if !seen[p] {
				return fmt.Errorf("%w: share weight for non-participant %s", ErrInvalidExpense, p)
			}
		}
		return nil

	case MethodCustom:
		var sum int64
		for _, p := range exp.Participants {
			amt, ok := exp.Amounts[p]
			if !ok {
				return fmt.Errorf("%w: missing amount for %s", ErrInvalidExpense, p)
			}
			if amt < 0 {
				return fmt.Errorf("%w: negative amount for %s", ErrInvalidExpense, p)
			}
			sum += amt
		}
		for p := range exp.Amounts {
			if !seen[p] {
				return fmt.Errorf("%w: amount for non-participant %s", ErrInvalidExpense, p)
			}
		}
		if sum != exp.Total.Amount {
			return fmt.Errorf("%w: got %d, want %d minor units", ErrSplitMismatch, sum, exp.Total.Amount)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidExpense, exp.Method)
	}
}

// splitEqual divides total minor units evenly across n participants.
// The remainder (total mod n) goes one unit at a time to the first
// participants in input order.
func splitEqual(total int64, n int) []int64 {
	base := total / int64(n)
	rem := total % int64(n)

	units := make([]int64, n)
	for i := range units {
		units[i] = base
		if int64(i) < rem {
			units[i]++
		}
	}
	return units
}

// splitWeighted allocates floor(total × weight / denom) minor units to
// each participant, then distributes the leftover units one by one to
// the participants with the largest fractional remainder, ties broken
// by input order. The result always sums exactly to total.
func splitWeighted(total int64, weights []decimal.Decimal, denom decimal.Decimal) []int64 {
	n := len(weights)
	totalDec := decimal.NewFromInt(total)

	units := make([]int64, n)
	fracs := make([]decimal.Decimal, n)
	var allocated int64

	for i, w := range weights {
		exact := totalDec.Mul(w).Div(denom)
		floor := exact.Floor()
		units[i] = floor.IntPart()
		fracs[i] = exact.Sub(floor)
		allocated += units[i]
	}

	// Order by largest fractional remainder; SliceStable keeps input
	// order for equal remainders.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fracs[order[a]].GreaterThan(fracs[order[b]])
	})

	for i := 0; allocated < total; i++ {
		units[order[i%n]]++
		allocated++
	}
	return units
}
