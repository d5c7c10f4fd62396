// Package group provides the HTTP handlers and business logic for
// managing expense groups: members, expense recording with split
// calculation, balance queries, and settlement plan computation.
//
// All monetary values use integer minor units — never float64 for money.
package group

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/splitpool/settlement-engine/internal/fx"
	"github.com/splitpool/settlement-engine/internal/ledger"
	"github.com/splitpool/settlement-engine/internal/metrics"
	"github.com/splitpool/settlement-engine/internal/model"
	"github.com/splitpool/settlement-engine/internal/money"
	"github.com/splitpool/settlement-engine/internal/settle"
	"github.com/splitpool/settlement-engine/internal/split"
	"github.com/splitpool/settlement-engine/internal/store"
)

// Service handles group operations. Uses a mutex for serialized
// expense/settlement writes (single-instance). For horizontal scaling,
// replace with distributed locking or database-level optimistic
// concurrency.
type Service struct {
	store store.Store
	rates fx.RateSource
	mu    sync.Mutex
	hub   *Hub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new group service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, rates fx.RateSource, hub *Hub) *Service {
	return &Service{
		store: st,
		rates: rates,
		hub:   hub,
	}
}

// --- Request/Response types ---

// CreateGroupRequest is the JSON body for group creation.
type CreateGroupRequest struct {
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"` // settlement currency, e.g. "USD"
}

// AddMemberRequest is the JSON body for POST /groups/{groupID}/members.
type AddMemberRequest struct {
	Name string `json:"name"`
}

// AddExpenseRequest is the JSON body for POST /groups/{groupID}/expenses.
// Amount and the Custom per-member amounts are decimal strings in major
// units ("90.00"); Currency defaults to the group's base currency.
type AddExpenseRequest struct {
	Description  string   `json:"description"`
	PaidBy       string   `json:"paid_by"` // member ID
	Amount       string   `json:"amount"`
	Currency     string   `json:"currency,omitempty"`
	Method       string   `json:"method"` // EQUAL, PERCENTAGE, SHARES, CUSTOM
	Participants []string `json:"participants"`

	Percentages map[string]decimal.Decimal `json:"percentages,omitempty"`
	Weights     map[string]decimal.Decimal `json:"weights,omitempty"`
	Amounts     map[string]string          `json:"amounts,omitempty"`
}

// ExpenseResponse is the JSON body returned from expense creation.
type ExpenseResponse struct {
	model.Expense
	ShareDisplay map[string]string `json:"share_display"` // member → "30.00 USD"
}

// BalanceEntry is one member's net balance in a balances response.
type BalanceEntry struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Balance  int64  `json:"balance"` // signed minor units
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

// SettlementResponse is a computed settlement run plus a rendered summary.
type SettlementResponse struct {
	model.SettlementRun
	TransferCount int      `json:"transfer_count"`
	Summary       []string `json:"summary"`
}

// --- HTTP Handlers ---

// CreateGroup handles POST /api/v1/groups
func (s *Service) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}
	currency := strings.ToUpper(req.BaseCurrency)
	if currency == "" {
		writeError(w, "base_currency is required", http.StatusBadRequest)
		return
	}

	g := &model.Group{
		ID:           uuid.New().String(),
		Name:         req.Name,
		BaseCurrency: currency,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateGroup(r.Context(), g); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("group created", "id", g.ID, "name", g.Name, "base_currency", g.BaseCurrency)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(g)
}

// GetGroup handles GET /api/v1/groups/{groupID}
func (s *Service) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	g, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, "group not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

// AddMember handles POST /api/v1/groups/{groupID}/members
func (s *Service) AddMember(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		writeError(w, "group not found", http.StatusNotFound)
		return
	}

	m := &model.Member{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.AddMember(ctx, m); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("member added", "group", groupID, "member", m.ID, "name", m.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(m)
}

// ListMembers handles GET /api/v1/groups/{groupID}/members
func (s *Service) ListMembers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	members, err := s.store.ListMembers(r.Context(), groupID)
	if err != nil {
		writeError(w, "failed to list members", http.StatusInternalServerError)
		return
	}
	if members == nil {
		members = []model.Member{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(members)
}

// AddExpense handles POST /api/v1/groups/{groupID}/expenses
// Validates the expense, splits it per the requested method, converts
// into the group's base currency when needed, and stores the immutable
// record with its computed shares.
func (s *Service) AddExpense(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var req AddExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Serialize the expense write path.
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		writeError(w, "group not found", http.StatusNotFound)
		return
	}

	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		writeError(w, "failed to load members", http.StatusInternalServerError)
		return
	}
	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}

	if !known[req.PaidBy] {
		writeError(w, "paid_by is not a member of this group", http.StatusBadRequest)
		return
	}
	for _, p := range req.Participants {
		if !known[p] {
			writeError(w, "participant "+p+" is not a member of this group", http.StatusBadRequest)
			return
		}
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = g.BaseCurrency
	}

	total, err := money.Parse(req.Amount, currency)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	method := split.Method(strings.ToUpper(req.Method))

	// Custom amounts arrive as decimal strings in the expense currency.
	var customAmounts map[string]int64
	if method == split.MethodCustom {
		customAmounts = make(map[string]int64, len(req.Amounts))
		for member, raw := range req.Amounts {
			amt, err := money.Parse(raw, currency)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			customAmounts[member] = amt.Amount
		}
	}

	baseTotal, shares, err := s.splitInBaseCurrency(ctx, g, split.Expense{
		Total:        total,
		PaidBy:       req.PaidBy,
		Participants: req.Participants,
		Method:       method,
		Percentages:  req.Percentages,
		Weights:      req.Weights,
		Amounts:      customAmounts,
	})
	if err != nil {
		writeError(w, err.Error(), errStatus(err))
		return
	}

	shareUnits := make(map[string]int64, len(shares))
	shareDisplay := make(map[string]string, len(shares))
	for member, share := range shares {
		shareUnits[member] = share.Amount
		shareDisplay[member] = share.String()
	}

	expense := &model.Expense{
		ID:           uuid.New().String(),
		GroupID:      groupID,
		Description:  req.Description,
		PaidBy:       req.PaidBy,
		Amount:       total.Amount,
		Currency:     currency,
		BaseAmount:   baseTotal.Amount,
		Method:       string(method),
		Participants: req.Participants,
		Shares:       shareUnits,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.InsertExpense(ctx, expense); err != nil {
		writeError(w, "failed to record expense", http.StatusInternalServerError)
		return
	}

	metrics.ExpensesTotal.WithLabelValues(string(method)).Inc()

	slog.Info("expense recorded",
		"group", groupID,
		"expense", expense.ID,
		"paid_by", req.PaidBy,
		"method", string(method),
		"total", total.String(),
		"base_total", baseTotal.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:      "expense_added",
			GroupID:   groupID,
			ExpenseID: expense.ID,
			Amount:    baseTotal.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ExpenseResponse{Expense: *expense, ShareDisplay: shareDisplay})
}

// splitInBaseCurrency computes per-participant shares in the group's
// base currency. Equal/Percentage/Shares expenses convert the total
// first and split the converted amount, so the shares sum exactly to
// what enters the ledger. Custom expenses validate and split in the
// original currency (the caller-supplied amounts must sum exactly
// there), then rescale the shares onto the converted total.
func (s *Service) splitInBaseCurrency(ctx context.Context, g *model.Group, exp split.Expense) (money.Money, map[string]money.Money, error) {
	baseTotal := exp.Total

	if exp.Total.Currency != g.BaseCurrency {
		// One frozen table per calculation run; rates are never
		// re-read mid-calculation.
		table, err := fx.FetchTable(ctx, s.rates, g.BaseCurrency, []string{exp.Total.Currency})
		if err != nil {
			metrics.RateLookupFailures.Inc()
			return money.Money{}, nil, err
		}
		baseTotal, err = table.Convert(exp.Total, g.BaseCurrency)
		if err != nil {
			metrics.RateLookupFailures.Inc()
			return money.Money{}, nil, err
		}
	}

	if exp.Method == split.MethodCustom {
		originalShares, err := split.Calculate(exp)
		if err != nil {
			return money.Money{}, nil, err
		}
		if exp.Total.Currency == g.BaseCurrency {
			return baseTotal, originalShares, nil
		}
		rescaled, err := split.Rescale(baseTotal, exp.Participants, originalShares)
		if err != nil {
			return money.Money{}, nil, err
		}
		return baseTotal, rescaled, nil
	}

	exp.Total = baseTotal
	shares, err := split.Calculate(exp)
	if err != nil {
		return money.Money{}, nil, err
	}
	return baseTotal, shares, nil
}

// ListExpenses handles GET /api/v1/groups/{groupID}/expenses
func (s *Service) ListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	expenses, err := s.store.ListExpenses(r.Context(), groupID)
	if err != nil {
		writeError(w, "failed to list expenses", http.StatusInternalServerError)
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expenses)
}

// GetBalances handles GET /api/v1/groups/{groupID}/balances
// Returns every member's net balance in the group's base currency,
// including members who broke even.
func (s *Service) GetBalances(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	ctx := r.Context()

	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		writeError(w, "group not found", http.StatusNotFound)
		return
	}

	nb, members, err := s.netBalance(ctx, g)
	if err != nil {
		writeError(w, "failed to compute balances", http.StatusInternalServerError)
		return
	}

	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	entries := make([]BalanceEntry, 0, len(nb.Amounts))
	for _, id := range nb.Members() {
		bal := nb.Get(id)
		entries = append(entries, BalanceEntry{
			MemberID: id,
			Name:     names[id],
			Balance:  bal.Amount,
			Currency: bal.Currency,
			Display:  bal.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// netBalance folds a group's stored expenses into obligations and
// aggregates them into one net balance per member.
func (s *Service) netBalance(ctx context.Context, g *model.Group) (ledger.NetBalance, []model.Member, error) {
	members, err := s.store.ListMembers(ctx, g.ID)
	if err != nil {
		return ledger.NetBalance{}, nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, g.ID)
	if err != nil {
		return ledger.NetBalance{}, nil, err
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}

	var obligations []ledger.Obligation
	for _, e := range expenses {
		shares := make(map[string]money.Money, len(e.Shares))
		for member, units := range e.Shares {
			shares[member] = money.New(units, g.BaseCurrency)
		}
		obligations = append(obligations, ledger.Obligations(e.PaidBy, e.Participants, shares)...)
	}

	nb, err := ledger.Aggregate(g.BaseCurrency, memberIDs, obligations)
	if err != nil {
		return ledger.NetBalance{}, nil, err
	}
	return nb, members, nil
}

// ComputeSettlement handles POST /api/v1/groups/{groupID}/settlements
// Computes the minimum-count transfer plan for the group's current
// balances and persists it as a settlement run.
func (s *Service) ComputeSettlement(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		writeError(w, "group not found", http.StatusNotFound)
		return
	}

	nb, members, err := s.netBalance(ctx, g)
	if err != nil {
		writeError(w, "failed to compute balances", http.StatusInternalServerError)
		return
	}

	plan, err := settle.Optimize(nb)
	if err != nil {
		// Zero-sum violations are a pipeline defect, not user input.
		slog.Error("settlement optimization failed", "group", groupID, "err", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	run := &model.SettlementRun{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		Currency:  g.BaseCurrency,
		Transfers: plan,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.InsertSettlementRun(ctx, run); err != nil {
		writeError(w, "failed to record settlement", http.StatusInternalServerError)
		return
	}

	metrics.SettlementRunsTotal.Inc()
	metrics.SettlementTransfers.Observe(float64(len(plan)))

	slog.Info("settlement computed",
		"group", groupID,
		"run", run.ID,
		"transfers", len(plan),
	)

	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:      "settlement_computed",
			GroupID:   groupID,
			RunID:     run.ID,
			Transfers: len(plan),
		})
	}

	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SettlementResponse{
		SettlementRun: *run,
		TransferCount: len(plan),
		Summary:       summarize(plan, names),
	})
}

// ListSettlements handles GET /api/v1/groups/{groupID}/settlements
func (s *Service) ListSettlements(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	runs, err := s.store.ListSettlementRuns(r.Context(), groupID)
	if err != nil {
		writeError(w, "failed to list settlements", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []model.SettlementRun{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// summarize renders human-readable settlement instructions.
func summarize(plan []model.Transfer, names map[string]string) []string {
	if len(plan) == 0 {
		return []string{"All settled! No payments needed."}
	}
	lines := make([]string, 0, len(plan))
	for _, t := range plan {
		from, to := names[t.From], names[t.To]
		if from == "" {
			from = t.From
		}
		if to == "" {
			to = t.To
		}
		lines = append(lines, from+" pays "+to+": "+money.New(t.Amount, t.Currency).String())
	}
	return lines
}

// errStatus maps engine errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, split.ErrInvalidExpense), errors.Is(err, split.ErrSplitMismatch),
		errors.Is(err, money.ErrPrecision), errors.Is(err, money.ErrCurrencyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, fx.ErrRateUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
