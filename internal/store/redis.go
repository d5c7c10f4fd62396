package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/splitpool/settlement-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary store and invalidate the
// cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateGroup(ctx context.Context, g *model.Group) error {
	if err := s.primary.CreateGroup(ctx, g); err != nil {
		return err
	}
	s.cacheGroup(ctx, g)
	return nil
}

func (s *CachedStore) AddMember(ctx context.Context, m *model.Member) error {
	if err := s.primary.AddMember(ctx, m); err != nil {
		return err
	}
	// Invalidate the member list; next read re-populates.
	s.rdb.Del(ctx, membersKey(m.GroupID))
	return nil
}

func (s *CachedStore) InsertExpense(ctx context.Context, e *model.Expense) error {
	if err := s.primary.InsertExpense(ctx, e); err != nil {
		return err
	}
	// Balances are derived from the expense list; drop it.
	s.rdb.Del(ctx, expensesKey(e.GroupID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	data, err := s.rdb.Get(ctx, groupKey(id)).Bytes()
	if err == nil {
		var g model.Group
		if json.Unmarshal(data, &g) == nil {
			return &g, nil
		}
	}

	// Cache miss: read from primary.
	g, err := s.primary.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheGroup(ctx, g)
	return g, nil
}

func (s *CachedStore) ListMembers(ctx context.Context, groupID string) ([]model.Member, error) {
	data, err := s.rdb.Get(ctx, membersKey(groupID)).Bytes()
	if err == nil {
		var members []model.Member
		if json.Unmarshal(data, &members) == nil {
			return members, nil
		}
	}

	members, err := s.primary.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(members); err == nil {
		s.rdb.Set(ctx, membersKey(groupID), data, s.ttl)
	}
	return members, nil
}

func (s *CachedStore) ListExpenses(ctx context.Context, groupID string) ([]model.Expense, error) {
	data, err := s.rdb.Get(ctx, expensesKey(groupID)).Bytes()
	if err == nil {
		var expenses []model.Expense
		if json.Unmarshal(data, &expenses) == nil {
			return expenses, nil
		}
	}

	expenses, err := s.primary.ListExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(expenses); err == nil {
		s.rdb.Set(ctx, expensesKey(groupID), data, s.ttl)
	}
	return expenses, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) InsertSettlementRun(ctx context.Context, run *model.SettlementRun) error {
	return s.primary.InsertSettlementRun(ctx, run)
}

func (s *CachedStore) ListSettlementRuns(ctx context.Context, groupID string) ([]model.SettlementRun, error) {
	return s.primary.ListSettlementRuns(ctx, groupID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheGroup(ctx context.Context, g *model.Group) {
	if data, err := json.Marshal(g); err == nil {
		s.rdb.Set(ctx, groupKey(g.ID), data, s.ttl)
	}
}

func groupKey(id string) string { return fmt.Sprintf("group:%s", id) }

func membersKey(gid string) string { return fmt.Sprintf("members:%s", gid) }

func expensesKey(gid string) string { return fmt.Sprintf("expenses:%s", gid) }
