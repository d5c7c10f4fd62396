package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/splitpool/settlement-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	groups   map[string]*model.Group
	members  map[string][]model.Member // groupID → members in join order
	expenses map[string][]model.Expense
	runs     map[string][]model.SettlementRun
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:   make(map[string]*model.Group),
		members:  make(map[string][]model.Member),
		expenses: make(map[string][]model.Expense),
		runs:     make(map[string][]model.SettlementRun),
	}
}

func (s *MemoryStore) CreateGroup(_ context.Context, g *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[g.ID]; ok {
		return fmt.Errorf("group %s already exists", g.ID)
	}

	// Store a copy to avoid external mutation.
	copy := *g
	s.groups[g.ID] = &copy
	return nil
}

func (s *MemoryStore) GetGroup(_ context.Context, id string) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	copy := *g
	return &copy, nil
}

func (s *MemoryStore) AddMember(_ context.Context, m *model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[m.GroupID]; !ok {
		return fmt.Errorf("%w: group %s", ErrNotFound, m.GroupID)
	}
	for _, existing := range s.members[m.GroupID] {
		if existing.Name == m.Name {
			return fmt.Errorf("member %s already exists in group %s", m.Name, m.GroupID)
		}
	}

	s.members[m.GroupID] = append(s.members[m.GroupID], *m)
	return nil
}

func (s *MemoryStore) ListMembers(_ context.Context, groupID string) ([]model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]model.Member, len(s.members[groupID]))
	copy(members, s.members[groupID])
	return members, nil
}

func (s *MemoryStore) InsertExpense(_ context.Context, e *model.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[e.GroupID]; !ok {
		return fmt.Errorf("%w: group %s", ErrNotFound, e.GroupID)
	}

	s.expenses[e.GroupID] = append(s.expenses[e.GroupID], *e)
	return nil
}

func (s *MemoryStore) ListExpenses(_ context.Context, groupID string) ([]model.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]model.Expense, len(s.expenses[groupID]))
	copy(expenses, s.expenses[groupID])
	return expenses, nil
}

func (s *MemoryStore) InsertSettlementRun(_ context.Context, run *model.SettlementRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[run.GroupID]; !ok {
		return fmt.Errorf("%w: group %s", ErrNotFound, run.GroupID)
	}

	s.runs[run.GroupID] = append(s.runs[run.GroupID], *run)
	return nil
}

func (s *MemoryStore) ListSettlementRuns(_ context.Context, groupID string) ([]model.SettlementRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first, matching the Postgres ordering.
	src := s.runs[groupID]
	runs := make([]model.SettlementRun, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		runs = append(runs, src[i])
	}
	return runs, nil
}
