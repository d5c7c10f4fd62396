package ledger

import (
	"errors"
	"reflect"
	"testing"

	"github.com/splitpool/settlement-engine/internal/money"
)

func usd(cents int64) money.Money { return money.New(cents, "USD") }

func TestObligations_DropsPayerAndZeroShares(t *testing.T) {
	shares := map[string]money.Money{
		"alice": usd(1400),
		"bob":   usd(1400),
		"carol": usd(0),
	}
	obs := Obligations("alice", []string{"alice", "bob", "carol"}, shares)
	want := []Obligation{
		{Debtor: "bob", Creditor: "alice", Amount: usd(1400)},
	}
	if !reflect.DeepEqual(obs, want) {
		t.Errorf("obligations mismatch:\n got %+v\nwant %+v", obs, want)
	}
}

func TestObligations_OrderIsDeterministic(t *testing.T) {
	shares := map[string]money.Money{
		"x": usd(10),
		"y": usd(20),
		"z": usd(30),
	}
	obs := Obligations("w", []string{"z", "x", "y"}, shares)
	if len(obs) != 3 {
		t.Fatalf("expected 3 obligations, got %d", len(obs))
	}
	if obs[0].Debtor != "z" || obs[1].Debtor != "x" || obs[2].Debtor != "y" {
		t.Errorf("obligations must follow input order, got %+v", obs)
	}
}

func TestAggregate_TwoExpenses(t *testing.T) {
	// Dinner 42.00 paid by alice, split equally three ways; coffee 8.00
	// paid by bob, split equally between alice and bob.
	members := []string{"alice", "bob", "carol"}
	var obs []Obligation
	obs = append(obs, Obligations("alice", members, map[string]money.Money{
		"alice": usd(1400), "bob": usd(1400), "carol": usd(1400),
	})...)
	obs = append(obs, Obligations("bob", []string{"alice", "bob"}, map[string]money.Money{
		"alice": usd(400), "bob": usd(400),
	})...)

	nb, err := Aggregate("USD", members, obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int64{"alice": 2400, "bob": -1000, "carol": -1400}
	if !reflect.DeepEqual(nb.Amounts, want) {
		t.Errorf("balances mismatch:\n got %v\nwant %v", nb.Amounts, want)
	}
	if nb.Sum() != 0 {
		t.Errorf("balances must sum to zero, got %d", nb.Sum())
	}
}

func TestAggregate_ZeroBalanceMemberIncluded(t *testing.T) {
	nb, err := Aggregate("USD", []string{"a", "b", "idle"}, []Obligation{
		{Debtor: "b", Creditor: "a", Amount: usd(500)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	amt, ok := nb.Amounts["idle"]
	if !ok || amt != 0 {
		t.Errorf("member with no expenses must appear with zero balance, got %v", nb.Amounts)
	}
}

func TestAggregate_RejectsCurrencyMismatch(t *testing.T) {
	_, err := Aggregate("USD", []string{"a", "b"}, []Obligation{
		{Debtor: "b", Creditor: "a", Amount: money.New(500, "EUR")},
	})
	if !errors.Is(err, money.ErrCurrencyMismatch) {
		t.Errorf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestNetBalance_MembersSorted(t *testing.T) {
	nb, err := Aggregate("USD", []string{"zoe", "amy", "mia"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"amy", "mia", "zoe"}
	if !reflect.DeepEqual(nb.Members(), want) {
		t.Errorf("expected sorted members %v, got %v", want, nb.Members())
	}
}

func TestNetBalance_CloneIsIndependent(t *testing.T) {
	nb, _ := Aggregate("USD", []string{"a", "b"}, []Obligation{
		{Debtor: "b", Creditor: "a", Amount: usd(100)},
	})
	cp := nb.Clone()
	cp.Amounts["a"] = 0
	if nb.Amounts["a"] != 100 {
		t.Errorf("mutating the clone must not touch the original")
	}
	if got := nb.Get("a"); got != usd(100) {
		t.Errorf("Get should return 100 USD minor units, got %+v", got)
	}
}
