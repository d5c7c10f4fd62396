// Package ledger folds split expenses into one net balance per member.
// A positive balance means the group owes the member money (net
// creditor); negative means the member owes the group (net debtor).
// The sum of all balances is exactly zero at all times — a violation is
// a programming error upstream, never user input.
package ledger

import (
	"fmt"
	"sort"

	"github.com/splitpool/settlement-engine/internal/money"
)

// Obligation is the atomic output of splitting one expense: the debtor
// owes the creditor the amount. Self-obligations (payer participating
// in their own expense) are never emitted; they net to zero.
type Obligation struct {
	Debtor   string
	Creditor string
	Amount   money.Money
}

// Obligations turns per-participant shares into obligations against the
// payer. Participants are visited in the given order so the output is
// deterministic. Zero shares and the payer's own share are dropped.
func Obligations(paidBy string, order []string, shares map[string]money.Money) []Obligation {
	obs := make([]Obligation, 0, len(order))
	for _, p := range order {
		share, ok := shares[p]
		if !ok || share.IsZero() || p == paidBy {
			continue
		}
		obs = append(obs, Obligation{Debtor: p, Creditor: paidBy, Amount: share})
	}
	return obs
}

// NetBalance maps every member to a signed balance in one settlement
// currency. Members who broke even are present with a zero balance.
type NetBalance struct {
	Currency string
	Amounts  map[string]int64 // member → signed minor units
}

// Aggregate folds obligations into a net balance per member. Every
// listed member appears in the result, including members with a final
// balance of exactly zero, and members who only ever appear inside the
// obligations themselves. Obligations in a different currency are
// rejected: balances are never mixed-currency.
func Aggregate(currency string, members []string, obs []Obligation) (NetBalance, error) {
	nb := NetBalance{
		Currency: currency,
		Amounts:  make(map[string]int64, len(members)),
	}
	for _, m := range members {
		nb.Amounts[m] = 0
	}

	for _, o := range obs {
		if o.Amount.Currency != currency {
			return NetBalance{}, fmt.Errorf("%w: obligation in %s, ledger in %s",
				money.ErrCurrencyMismatch, o.Amount.Currency, currency)
		}
		nb.Amounts[o.Creditor] += o.Amount.Amount
		nb.Amounts[o.Debtor] -= o.Amount.Amount
	}
	return nb, nil
}

// Sum returns the total of all balances in minor units. Zero for any
// correctly aggregated ledger.
func (nb NetBalance) Sum() int64 {
	var sum int64
	for _, amt := range nb.Amounts {
		sum += amt
	}
	return sum
}

// Get returns one member's balance as Money.
func (nb NetBalance) Get(member string) money.Money {
	return money.New(nb.Amounts[member], nb.Currency)
}

// Members returns all member IDs in sorted order, for deterministic
// reporting.
func (nb NetBalance) Members() []string {
	ids := make([]string, 0, len(nb.Amounts))
	for id := range nb.Amounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy. Settlement simulation mutates balances;
// callers keep their original.
func (nb NetBalance) Clone() NetBalance {
	amounts := make(map[string]int64, len(nb.Amounts))
	for id, amt := range nb.Amounts {
		amounts[id] = amt
	}
	return NetBalance{Currency: nb.Currency, Amounts: amounts}
}
