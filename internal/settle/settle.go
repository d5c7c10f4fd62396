// Package settle reduces a set of net balances into a transfer plan
// that zeroes every balance, using greedy largest-magnitude matching:
// repeatedly pay the largest outstanding creditor from the largest
// outstanding debtor. Every step zeroes at least one side, so the plan
// never exceeds N−1 transfers for N members with nonzero balances.
//
// The greedy rule achieves the N−1 bound and is optimal for the common
// single-pool case, but it is not guaranteed to hit the strict
// graph-theoretic minimum for every balance partition; an exact
// minimum-transfer solver is NP-hard and deliberately out of scope.
package settle

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/splitpool/settlement-engine/internal/ledger"
	"github.com/splitpool/settlement-engine/internal/model"
)

// ErrInternalConsistency is returned when the balances violate the
// zero-sum invariant. That indicates a defect in the splitting or
// aggregation pipeline upstream, not bad user input, and must never be
// silently swallowed.
var ErrInternalConsistency = errors.New("settle: balances violate zero-sum invariant")

// entry is one side of the matching: a member and the positive
// magnitude still outstanding.
type entry struct {
	member string
	amount int64
}

// magnitudeHeap orders entries by amount descending, ties broken by
// member ID ascending so equal magnitudes settle deterministically.
type magnitudeHeap []entry

func (h magnitudeHeap) Len() int { return len(h) }
func (h magnitudeHeap) Less(i, j int) bool {
	if h[i].amount != h[j].amount {
		return h[i].amount > h[j].amount
	}
	return h[i].member < h[j].member
}
func (h magnitudeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *magnitudeHeap) Push(x interface{}) { *h = append(*h, x.(entry)) }
func (h *magnitudeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Optimize computes the transfer plan for a net balance. All-zero
// balances yield an empty plan. Balances that do not sum to zero, or a
// single nonzero balance (impossible under conservation of money),
// return ErrInternalConsistency.
func Optimize(nb ledger.NetBalance) ([]model.Transfer, error) {
	var (
		sum     int64
		nonzero int
	)
	creditors := &magnitudeHeap{}
	debtors := &magnitudeHeap{}

	// Iterate in sorted order so heap construction is deterministic.
	for _, member := range nb.Members() {
		amt := nb.Amounts[member]
		sum += amt
		switch {
		case amt > 0:
			nonzero++
			*creditors = append(*creditors, entry{member: member, amount: amt})
		case amt < 0:
			nonzero++
			*debtors = append(*debtors, entry{member: member, amount: -amt})
		}
	}

	if sum != 0 {
		return nil, fmt.Errorf("%w: balances sum to %d minor units", ErrInternalConsistency, sum)
	}
	if nonzero == 1 {
		return nil, fmt.Errorf("%w: single nonzero balance", ErrInternalConsistency)
	}
	if nonzero == 0 {
		return []model.Transfer{}, nil
	}

	heap.Init(creditors)
	heap.Init(debtors)

	plan := make([]model.Transfer, 0, nonzero-1)
	for debtors.Len() > 0 && creditors.Len() > 0 {
		d := heap.Pop(debtors).(entry)
		c := heap.Pop(creditors).(entry)

		amount := d.amount
		if c.amount < amount {
			amount = c.amount
		}

		plan = append(plan, model.Transfer{
			From:     d.member,
			To:       c.member,
			Amount:   amount,
			Currency: nb.Currency,
		})

		if rest := d.amount - amount; rest > 0 {
			heap.Push(debtors, entry{member: d.member, amount: rest})
		}
		if rest := c.amount - amount; rest > 0 {
			heap.Push(creditors, entry{member: c.member, amount: rest})
		}
	}

	// Both heaps drain together when the zero-sum invariant holds.
	if debtors.Len() > 0 || creditors.Len() > 0 {
		return nil, fmt.Errorf("%w: unmatched balances after settlement", ErrInternalConsistency)
	}
	return plan, nil
}

// Apply plays a transfer plan against a balance and returns the
// resulting balance. Used to verify that a plan settles everything;
// the input is not mutated.
func Apply(nb ledger.NetBalance, plan []model.Transfer) ledger.NetBalance {
	out := nb.Clone()
	for _, t := range plan {
		out.Amounts[t.From] += t.Amount
		out.Amounts[t.To] -= t.Amount
	}
	return out
}
