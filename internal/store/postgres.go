package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitpool/settlement-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of
// truth. Monetary amounts are stored as BIGINT minor units; split
// parameters and transfer plans are stored as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateGroup(ctx context.Context, g *model.Group) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO groups (id, name, base_currency, created_at)
		 VALUES ($1, $2, $3, $4)`,
		g.ID, g.Name, g.BaseCurrency, g.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, base_currency, created_at FROM groups WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.BaseCurrency, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", id, err)
	}
	return &g, nil
}

func (s *PostgresStore) AddMember(ctx context.Context, m *model.Member) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO members (id, group_id, name, created_at)
		 VALUES ($1, $2, $3, $4)`,
		m.ID, m.GroupID, m.Name, m.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListMembers(ctx context.Context, groupID string) ([]model.Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, name, created_at
		 FROM members WHERE group_id = $1 ORDER BY created_at, id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.GroupID, &m.Name, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) InsertExpense(ctx context.Context, e *model.Expense) error {
	participants, err := json.Marshal(e.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}
	shares, err := json.Marshal(e.Shares)
	if err != nil {
		return fmt.Errorf("marshal shares: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO expenses (id, group_id, description, paid_by, amount, currency,
		                       base_amount, method, participants, shares, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::JSONB, $10::JSONB, $11)`,
		e.ID, e.GroupID, e.Description, e.PaidBy, e.Amount, e.Currency,
		e.BaseAmount, e.Method, participants, shares, e.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListExpenses(ctx context.Context, groupID string) ([]model.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, description, paid_by, amount, currency,
		        base_amount, method, participants, shares, created_at
		 FROM expenses WHERE group_id = $1 ORDER BY created_at, id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		var (
			e            model.Expense
			participants []byte
			shares       []byte
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &e.PaidBy, &e.Amount, &e.Currency,
			&e.BaseAmount, &e.Method, &participants, &shares, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(participants, &e.Participants); err != nil {
			return nil, fmt.Errorf("unmarshal participants for expense %s: %w", e.ID, err)
		}
		if err := json.Unmarshal(shares, &e.Shares); err != nil {
			return nil, fmt.Errorf("unmarshal shares for expense %s: %w", e.ID, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *PostgresStore) InsertSettlementRun(ctx context.Context, run *model.SettlementRun) error {
	transfers, err := json.Marshal(run.Transfers)
	if err != nil {
		return fmt.Errorf("marshal transfers: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO settlement_runs (id, group_id, currency, transfers, created_at)
		 VALUES ($1, $2, $3, $4::JSONB, $5)`,
		run.ID, run.GroupID, run.Currency, transfers, run.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListSettlementRuns(ctx context.Context, groupID string) ([]model.SettlementRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, currency, transfers, created_at
		 FROM settlement_runs WHERE group_id = $1 ORDER BY created_at DESC, id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.SettlementRun
	for rows.Next() {
		var (
			run       model.SettlementRun
			transfers []byte
		)
		if err := rows.Scan(&run.ID, &run.GroupID, &run.Currency, &transfers, &run.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(transfers, &run.Transfers); err != nil {
			return nil, fmt.Errorf("unmarshal transfers for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
