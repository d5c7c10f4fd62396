// Package store defines the persistence interface for the settlement
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/splitpool/settlement-engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of
// truth; Redis provides a read-through cache layer.
type Store interface {
	// --- Group operations ---

	// CreateGroup persists a new group.
	CreateGroup(ctx context.Context, g *model.Group) error

	// GetGroup retrieves a group by its ID.
	GetGroup(ctx context.Context, id string) (*model.Group, error)

	// AddMember persists a new group member.
	AddMember(ctx context.Context, m *model.Member) error

	// ListMembers returns a group's members in join order.
	ListMembers(ctx context.Context, groupID string) ([]model.Member, error)

	// --- Immutable expense records ---

	// InsertExpense appends an immutable expense record.
	InsertExpense(ctx context.Context, e *model.Expense) error

	// ListExpenses returns all expenses for a group in creation order.
	ListExpenses(ctx context.Context, groupID string) ([]model.Expense, error)

	// --- Settlement runs ---

	// InsertSettlementRun persists a computed transfer plan.
	InsertSettlementRun(ctx context.Context, run *model.SettlementRun) error

	// ListSettlementRuns returns a group's settlement history, newest first.
	ListSettlementRuns(ctx context.Context, groupID string) ([]model.SettlementRun, error)
}
