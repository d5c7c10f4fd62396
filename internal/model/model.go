// Package model defines the core domain types shared across the
// settlement engine. All monetary values use integer minor units —
// never float64 for money.
package model

import (
	"time"
)

// Group is a set of members sharing expenses. Balances and settlement
// plans are always expressed in the group's base currency.
type Group struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	BaseCurrency string    `json:"base_currency" db:"base_currency"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Member is one person in a group. Immutable once created within a
// settlement run.
type Member struct {
	ID        string    `json:"id" db:"id"`
	GroupID   string    `json:"group_id" db:"group_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expense is an immutable record of one shared expense. Amount is the
// paid total in the original currency; BaseAmount is the same total
// converted into the group's base currency (equal when the currencies
// match). Shares holds the computed per-member obligations in base
// currency minor units, summing exactly to BaseAmount.
type Expense struct {
	ID           string           `json:"id" db:"id"`
	GroupID      string           `json:"group_id" db:"group_id"`
	Description  string           `json:"description" db:"description"`
	PaidBy       string           `json:"paid_by" db:"paid_by"`
	Amount       int64            `json:"amount" db:"amount"` // minor units, original currency
	Currency     string           `json:"currency" db:"currency"`
	BaseAmount   int64            `json:"base_amount" db:"base_amount"` // minor units, base currency
	Method       string           `json:"method" db:"method"`
	Participants []string         `json:"participants" db:"participants"`
	Shares       map[string]int64 `json:"shares" db:"shares"` // member → base currency minor units
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// Transfer is one planned payment: From pays To Amount minor units of
// Currency. Plans only — the engine never moves money.
type Transfer struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   int64  `json:"amount"` // minor units, always positive
	Currency string `json:"currency"`
}

// SettlementRun is a persisted transfer plan computed from a group's
// balances at one point in time.
type SettlementRun struct {
	ID        string     `json:"id" db:"id"`
	GroupID   string     `json:"group_id" db:"group_id"`
	Currency  string     `json:"currency" db:"currency"`
	Transfers []Transfer `json:"transfers" db:"transfers"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
