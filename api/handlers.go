/*
handlers.go - HTTP API handlers for the expense splitting system

PURPOSE:
  Exposes the split engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Households:
    GET    /api/households                     List households
    POST   /api/households                     Create household
    GET    /api/households/{id}                Get household
    GET    /api/households/{id}/members        List members
    POST   /api/households/{id}/members        Create member
    GET    /api/households/{id}/transactions   List transactions (?m=YYYY-MM)
    GET    /api/households/{id}/summary        Balances and suggestions
    GET    /api/households/{id}/settlements    List settlements
    POST   /api/households/{id}/settlements    Record settlement
    GET    /api/households/{id}/rules          List rules
    POST   /api/households/{id}/rules          Create rule
    GET    /api/households/{id}/policy         Get policy config
    PUT    /api/households/{id}/policy         Replace policy config
    GET    /api/households/{id}/budgets        Budgets with spending progress
    POST   /api/households/{id}/budgets        Set a category's monthly cap

  Transactions and splits:
    GET    /api/transactions/{id}              Transaction with its splits
    PATCH  /api/transactions/{id}              Partial update + recompute
    POST   /api/splits/recompute               Recompute one or all unsplit

  Budgets and categories:
    PATCH  /api/budgets/{id}                   Replace a budget's limit
    DELETE /api/budgets/{id}                   Delete budget
    GET    /api/categories?household_id=       System + custom categories
    POST   /api/categories                     Create custom category

  Rules and webhooks:
    DELETE /api/rules/{id}                     Delete rule
    POST   /api/rules/apply                    Re-apply rules to a household
    POST   /api/webhooks/transactions          Ingest a bank feed delivery

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (split engine, balances, rules)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, zero weight sums
  - 404: Resource not found
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evenly/split-engine/factory"
	"github.com/evenly/split-engine/household"
	"github.com/evenly/split-engine/rules"
	"github.com/evenly/split-engine/split"
	"github.com/evenly/split-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	PolicyFactory *factory.PolicyFactory

	// Track currently loaded demo scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:         store,
		PolicyFactory: factory.NewPolicyFactory(),
	}
}

// policyFor loads a household's policy, falling back to the default when
// the household never configured one.
func (h *Handler) policyFor(ctx context.Context, householdID string) (split.Policy, error) {
	record, err := h.Store.GetPolicy(ctx, householdID)
	if err != nil {
		return split.Policy{}, err
	}
	if record == nil {
		return household.DefaultPolicy(), nil
	}
	policy, err := h.PolicyFactory.ParsePolicy(record.ConfigJSON)
	if err != nil {
		return split.Policy{}, err
	}
	return *policy, nil
}

// recomputeOne runs the engine for a single transaction and replaces its
// ledger rows. Returns the number of entries written.
func (h *Handler) recomputeOne(ctx context.Context, tx household.Transaction, members []household.Member, policy split.Policy) (int, error) {
	entries, err := split.ComputeTransactionSplits(
		tx.ToSplitTransaction(),
		split.MemberID(tx.PayerID),
		household.SplitMembers(members),
		policy,
	)
	if err != nil {
		return 0, err
	}
	if err := h.Store.ReplaceSplits(ctx, tx.HouseholdID, tx.ID, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// =============================================================================
// HOUSEHOLD HANDLERS
// =============================================================================

// ListHouseholds returns all households.
func (h *Handler) ListHouseholds(w http.ResponseWriter, r *http.Request) {
	households, err := h.Store.ListHouseholds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list households", err)
		return
	}

	dtos := make([]HouseholdDTO, len(households))
	for i, hh := range households {
		dtos[i] = HouseholdDTO{
			ID:        hh.ID,
			Name:      hh.Name,
			CreatedAt: hh.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHousehold creates a new household.
func (h *Handler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req CreateHouseholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	hh := household.Household{ID: req.ID, Name: req.Name}
	if hh.ID == "" {
		hh.ID = uuid.NewString()
	}

	if err := h.Store.SaveHousehold(r.Context(), hh); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create household", err)
		return
	}
	writeJSON(w, http.StatusCreated, HouseholdDTO{ID: hh.ID, Name: hh.Name})
}

// GetHousehold returns a single household.
func (h *Handler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	hh, err := h.Store.GetHousehold(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get household", err)
		return
	}
	if hh == nil {
		writeError(w, http.StatusNotFound, "Household not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, HouseholdDTO{
		ID:        hh.ID,
		Name:      hh.Name,
		CreatedAt: hh.CreatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns a household's members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "id")

	members, err := h.Store.ListMembers(r.Context(), householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMember adds a member to a household.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "id")

	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.MonthlyIncome < 0 || req.Weight < 0 {
		writeError(w, http.StatusBadRequest, "income and weight must be non-negative", nil)
		return
	}

	m := household.Member{
		ID:            req.ID,
		HouseholdID:   householdID,
		Name:          req.Name,
		Email:         req.Email,
		MonthlyIncome: req.MonthlyIncome,
		Weight:        req.Weight,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	if err := h.Store.SaveMember(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create member", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns a household's transactions, optionally filtered
// to one month with ?m=YYYY-MM.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "id")
	month := r.URL.Query().Get("m")

	txs, err := h.Store.ListTransactions(r.Context(), householdID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTransaction returns one transaction with its split entries.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get transaction", err)
		return
	}
	if tx == nil {
		writeError(w, http.StatusNotFound, "Transaction not found", nil)
		return
	}

	entries, err := h.Store.ListEntriesByTransaction(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load splits", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(*tx, entries))
}

// PatchTransaction applies a partial update and recomputes the split.
func (h *Handler) PatchTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	var req PatchTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Store.PatchTransaction(ctx, id, sqlite.TransactionPatch{
		Category: req.Category,
		Personal: req.Personal,
		Transfer: req.Transfer,
		PayerID:  req.PayerID,
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "Transaction not found", err)
		return
	}

	tx, err := h.Store.GetTransaction(ctx, id)
	if err != nil || tx == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload transaction", err)
		return
	}

	members, err := h.Store.ListMembers(ctx, tx.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load members", err)
		return
	}
	policy, err := h.policyFor(ctx, tx.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load policy", err)
		return
	}

	if _, err := h.recomputeOne(ctx, *tx, members, policy); err != nil {
		writeSplitError(w, err)
		return
	}

	entries, err := h.Store.ListEntriesByTransaction(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load splits", err)
		return
	}
	tx, err = h.Store.GetTransaction(ctx, id)
	if err != nil || tx == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx, entries))
}

// =============================================================================
// SPLIT RECOMPUTATION
// =============================================================================

// RecomputeSplits recomputes one transaction, or every unsplit transaction
// in the household when no transaction ID is given.
func (h *Handler) RecomputeSplits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.HouseholdID == "" {
		writeError(w, http.StatusBadRequest, "household_id is required", nil)
		return
	}

	members, err := h.Store.ListMembers(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load members", err)
		return
	}
	policy, err := h.policyFor(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load policy", err)
		return
	}

	var targets []household.Transaction
	if req.TransactionID != "" {
		tx, err := h.Store.GetTransaction(ctx, req.TransactionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get transaction", err)
			return
		}
		if tx == nil || tx.HouseholdID != req.HouseholdID {
			writeError(w, http.StatusNotFound, "Transaction not found", nil)
			return
		}
		targets = []household.Transaction{*tx}
	} else {
		targets, err = h.Store.ListUnsplitTransactions(ctx, req.HouseholdID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
			return
		}
	}

	resp := RecomputeResponse{}
	for _, tx := range targets {
		n, err := h.recomputeOne(ctx, tx, members, policy)
		if err != nil {
			writeSplitError(w, err)
			return
		}
		resp.Recomputed++
		resp.Entries += n
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SUMMARY HANDLER
// =============================================================================

// GetSummary folds the ledger and settlements into net balances, per-member
// totals, and suggested settlements. ?m=YYYY-MM scopes to one month and
// ?member_id= adds that member's totals.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := chi.URLParam(r, "id")
	month := r.URL.Query().Get("m")
	memberID := r.URL.Query().Get("member_id")

	hh, err := h.Store.GetHousehold(ctx, householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get household", err)
		return
	}
	if hh == nil {
		writeError(w, http.StatusNotFound, "Household not found", nil)
		return
	}

	entries, err := h.Store.ListEntriesByHousehold(ctx, householdID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}
	settlements, err := h.Store.ListSettlements(ctx, householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settlements", err)
		return
	}

	bal := household.NewBalances()
	for _, e := range entries {
		bal.ApplyEntry(e)
	}
	for _, s := range settlements {
		if month != "" && s.SettledAt.Format("2006-01") != month {
			continue
		}
		bal.ApplySettlement(s)
	}

	resp := SummaryResponse{
		HouseholdID: householdID,
		Month:       month,
		Balances:    []NetDebtDTO{},
		Suggestions: []SettlementDTO{},
	}
	for _, d := range bal.Net() {
		amount, _ := d.Amount.Round(2).Float64()
		resp.Balances = append(resp.Balances, NetDebtDTO{
			FromID: d.FromID, ToID: d.ToID, Amount: amount,
		})
	}
	for _, s := range bal.SuggestSettlements(householdID) {
		resp.Suggestions = append(resp.Suggestions, SettlementDTO{
			FromID: s.FromID, ToID: s.ToID, Amount: s.Amount, Note: s.Note,
		})
	}
	if memberID != "" {
		totals := bal.MemberTotals(memberID)
		youOwe, _ := totals.YouOwe.Round(2).Float64()
		owedToYou, _ := totals.OwedToYou.Round(2).Float64()
		resp.Member = &MemberTotalDTO{
			MemberID: memberID, YouOwe: youOwe, OwedToYou: owedToYou,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

// ListSettlements returns a household's recorded settlements.
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "id")

	settlements, err := h.Store.ListSettlements(r.Context(), householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settlements", err)
		return
	}

	dtos := make([]SettlementDTO, len(settlements))
	for i, s := range settlements {
		dtos[i] = SettlementDTO{
			ID:        s.ID,
			FromID:    s.FromID,
			ToID:      s.ToID,
			Amount:    s.Amount,
			Note:      s.Note,
			SettledAt: s.SettledAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSettlement records a repayment between two members.
func (h *Handler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "id")

	var req CreateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FromID == "" || req.ToID == "" || req.FromID == req.ToID {
		writeError(w, http.StatusBadRequest, "from_id and to_id must be distinct members", nil)
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", nil)
		return
	}

	id, err := h.Store.SaveSettlement(r.Context(), household.Settlement{
		HouseholdID: householdID,
		FromID:      req.FromID,
		ToID:        req.ToID,
		Amount:      req.Amount,
		Note:        req.Note,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settlement", err)
		return
	}

	writeJSON(w, http.StatusCreated, SettlementDTO{
		ID: id, FromID: req.FromID, ToID: req.ToID, Amount: req.Amount, Note: req.Note,
	})
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns a household's categorization rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "id")

	ruleset, err := h.Store.ListRules(r.Context(), householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	dtos := make([]RuleDTO, len(ruleset))
	for i, rule := range ruleset {
		dtos[i] = RuleDTO{
			ID:               rule.ID,
			MatchVendorILike: rule.MatchVendorILike,
			CategoryID:       string(rule.CategoryID),
			MarkAsPersonal:   rule.MarkAsPersonal,
			Priority:         rule.Priority,
			Active:           rule.Active,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRule adds a categorization rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "id")

	var req RuleDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.MatchVendorILike == "" {
		writeError(w, http.StatusBadRequest, "match_vendor_ilike is required", nil)
		return
	}

	id, err := h.Store.SaveRule(r.Context(), rules.Rule{
		ID:               req.ID,
		HouseholdID:      householdID,
		MatchVendorILike: req.MatchVendorILike,
		CategoryID:       split.CategoryID(req.CategoryID),
		MarkAsPersonal:   req.MarkAsPersonal,
		Priority:         req.Priority,
		Active:           req.Active,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}

	req.ID = id
	writeJSON(w, http.StatusCreated, req)
}

// DeleteRule removes a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyRules re-runs the household's ruleset over every transaction and
// recomputes the ones a rule changed.
func (h *Handler) ApplyRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ApplyRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.HouseholdID == "" {
		writeError(w, http.StatusBadRequest, "household_id is required", nil)
		return
	}

	ruleset, err := h.Store.ListRules(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rules", err)
		return
	}
	txs, err := h.Store.ListTransactions(ctx, req.HouseholdID, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}
	members, err := h.Store.ListMembers(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load members", err)
		return
	}
	policy, err := h.policyFor(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load policy", err)
		return
	}

	resp := ApplyRulesResponse{}
	for _, tx := range txs {
		effect := rules.Evaluate(ruleset, tx.Vendor)
		if effect == nil {
			continue
		}

		patch := sqlite.TransactionPatch{}
		changed := false
		if effect.CategoryID != "" && effect.CategoryID != tx.Category {
			category := string(effect.CategoryID)
			patch.Category = &category
			tx.Category = effect.CategoryID
			changed = true
		}
		if effect.Personal != nil && *effect.Personal != tx.Personal {
			patch.Personal = effect.Personal
			tx.Personal = *effect.Personal
			changed = true
		}

		resp.Matched++
		if !changed {
			continue
		}

		if err := h.Store.PatchTransaction(ctx, tx.ID, patch); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update transaction", err)
			return
		}
		if _, err := h.recomputeOne(ctx, tx, members, policy); err != nil {
			writeSplitError(w, err)
			return
		}
		resp.Recomputed++
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// GetHouseholdPolicy returns the household's policy config as JSON.
func (h *Handler) GetHouseholdPolicy(w http.ResponseWriter, r *http.Request) {
	householdID := chi.URLParam(r, "id")

	record, err := h.Store.GetPolicy(r.Context(), householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get policy", err)
		return
	}

	if record == nil {
		writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(household.DefaultPolicy()))
		return
	}

	policy, err := h.PolicyFactory.ParsePolicy(record.ConfigJSON)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored policy is invalid", err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(*policy))
}

// PutHouseholdPolicy validates and stores the household's policy config,
// then recomputes every split under the new policy.
func (h *Handler) PutHouseholdPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := chi.URLParam(r, "id")

	var pj factory.PolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := h.PolicyFactory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy", err)
		return
	}

	configJSON, err := h.PolicyFactory.MarshalPolicy(*policy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize policy", err)
		return
	}
	if err := h.Store.SavePolicy(ctx, householdID, configJSON); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}

	// Every existing split is stale under the new policy.
	members, err := h.Store.ListMembers(ctx, householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load members", err)
		return
	}
	txs, err := h.Store.ListTransactions(ctx, householdID, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}
	for _, tx := range txs {
		if _, err := h.recomputeOne(ctx, tx, members, *policy); err != nil {
			writeSplitError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(*policy))
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

// ListBudgets returns a household's budgets with spending progress.
// ?m=YYYY-MM scopes to one month.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := chi.URLParam(r, "id")
	month := r.URL.Query().Get("m")

	budgets, err := h.Store.ListBudgets(ctx, householdID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list budgets", err)
		return
	}

	// Budgets may span several months; aggregate each month once.
	spentByMonth := make(map[string]map[split.CategoryID]float64)
	for _, b := range budgets {
		if _, ok := spentByMonth[b.Month]; ok {
			continue
		}
		spent, err := h.Store.SpentByMonth(ctx, householdID, b.Month)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to aggregate spending", err)
			return
		}
		spentByMonth[b.Month] = spent
	}

	report := household.BudgetReport(budgets, spentByMonth)
	dtos := make([]BudgetDTO, len(report))
	for i, status := range report {
		dtos[i] = toBudgetDTO(status)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBudget sets a category's monthly spending cap. Posting the same
// category and month again replaces the limit.
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := chi.URLParam(r, "id")

	var req CreateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required", nil)
		return
	}
	if req.Limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be positive", nil)
		return
	}
	month := req.Month
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return
	}

	id, err := h.Store.SaveBudget(ctx, household.Budget{
		ID:          req.ID,
		HouseholdID: householdID,
		Category:    split.CategoryID(req.Category),
		Month:       month,
		Limit:       req.Limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save budget", err)
		return
	}

	spent, err := h.Store.SpentByMonth(ctx, householdID, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate spending", err)
		return
	}
	budget := household.Budget{
		ID: id, HouseholdID: householdID,
		Category: split.CategoryID(req.Category), Month: month, Limit: req.Limit,
	}
	report := household.BudgetReport([]household.Budget{budget},
		map[string]map[split.CategoryID]float64{month: spent})
	writeJSON(w, http.StatusCreated, toBudgetDTO(report[0]))
}

// PatchBudget replaces a budget's limit.
func (h *Handler) PatchBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req PatchBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Limit == nil || *req.Limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be positive", nil)
		return
	}

	if err := h.Store.UpdateBudgetLimit(ctx, id, *req.Limit); err != nil {
		writeError(w, http.StatusNotFound, "Budget not found", err)
		return
	}

	budget, err := h.Store.GetBudget(ctx, id)
	if err != nil || budget == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload budget", err)
		return
	}
	spent, err := h.Store.SpentByMonth(ctx, budget.HouseholdID, budget.Month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate spending", err)
		return
	}
	report := household.BudgetReport([]household.Budget{*budget},
		map[string]map[split.CategoryID]float64{budget.Month: spent})
	writeJSON(w, http.StatusOK, toBudgetDTO(report[0]))
}

// DeleteBudget removes a budget.
func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	budget, err := h.Store.GetBudget(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get budget", err)
		return
	}
	if budget == nil {
		writeError(w, http.StatusNotFound, "Budget not found", nil)
		return
	}

	if err := h.Store.DeleteBudget(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete budget", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns the system categories plus the household's custom
// ones. ?household_id= is required.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	householdID := r.URL.Query().Get("household_id")
	if householdID == "" {
		writeError(w, http.StatusBadRequest, "household_id is required", nil)
		return
	}

	categories, err := h.Store.ListCategories(r.Context(), householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = CategoryDTO{
			ID:              c.ID,
			HouseholdID:     c.HouseholdID,
			Name:            c.Name,
			Icon:            c.Icon,
			Color:           c.Color,
			PersonalDefault: c.PersonalDefault,
			System:          c.System,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory adds a custom household category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.HouseholdID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "household_id and name are required", nil)
		return
	}

	id, err := h.Store.SaveCategory(r.Context(), household.Category{
		ID:              req.ID,
		HouseholdID:     req.HouseholdID,
		Name:            req.Name,
		Icon:            req.Icon,
		Color:           req.Color,
		PersonalDefault: req.PersonalDefault,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save category", err)
		return
	}

	writeJSON(w, http.StatusCreated, CategoryDTO{
		ID:              id,
		HouseholdID:     req.HouseholdID,
		Name:            req.Name,
		Icon:            req.Icon,
		Color:           req.Color,
		PersonalDefault: req.PersonalDefault,
	})
}

// =============================================================================
// WEBHOOK HANDLER
// =============================================================================

// IngestWebhook accepts a bank feed delivery: upserts the transactions
// (flipping to engine sign convention), applies categorization rules, and
// splits everything that is settled and shareable.
func (h *Handler) IngestWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.HouseholdID == "" {
		writeError(w, http.StatusBadRequest, "household_id is required", nil)
		return
	}

	payload, _ := json.Marshal(req)
	if err := h.Store.RecordWebhookEvent(ctx, sqlite.WebhookEvent{
		Source:      "bank_feed",
		EventType:   req.EventType,
		PayloadJSON: string(payload),
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record webhook", err)
		return
	}

	ruleset, err := h.Store.ListRules(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rules", err)
		return
	}

	resp := WebhookResponse{}
	for _, wt := range req.Transactions {
		if wt.ExternalID == "" || wt.PayerID == "" {
			writeError(w, http.StatusBadRequest, "external_id and payer_id are required", nil)
			return
		}
		date, err := time.Parse("2006-01-02", wt.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}

		tx := household.Transaction{
			HouseholdID: req.HouseholdID,
			ExternalID:  wt.ExternalID,
			PayerID:     wt.PayerID,
			// Bank feeds report money out as positive; the engine wants
			// expenses negative.
			Amount:   -wt.Amount,
			Vendor:   wt.Vendor,
			Category: split.CategoryID(wt.Category),
			Date:     date,
			Pending:  wt.Pending,
		}

		if effect := rules.Evaluate(ruleset, tx.Vendor); effect != nil {
			if effect.CategoryID != "" {
				tx.Category = effect.CategoryID
			}
			if effect.Personal != nil {
				tx.Personal = *effect.Personal
			}
		}

		if _, err := h.Store.UpsertTransaction(ctx, tx); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to ingest transaction", err)
			return
		}
		resp.Ingested++
	}

	// Split everything that is settled and still unsplit, including
	// backlog from earlier deliveries.
	members, err := h.Store.ListMembers(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load members", err)
		return
	}
	policy, err := h.policyFor(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load policy", err)
		return
	}
	unsplit, err := h.Store.ListUnsplitTransactions(ctx, req.HouseholdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	for _, tx := range unsplit {
		if _, err := h.recomputeOne(ctx, tx, members, policy); err != nil {
			writeSplitError(w, err)
			return
		}
		resp.Split++
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ADMIN
// =============================================================================

// ResetDatabase clears all data (dev/demo only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func toMemberDTO(m household.Member) MemberDTO {
	return MemberDTO{
		ID:            m.ID,
		HouseholdID:   m.HouseholdID,
		Name:          m.Name,
		Email:         m.Email,
		MonthlyIncome: m.MonthlyIncome,
		Weight:        m.Weight,
	}
}

func toTransactionDTO(tx household.Transaction, entries []household.LedgerEntry) TransactionDTO {
	dto := TransactionDTO{
		ID:         tx.ID,
		ExternalID: tx.ExternalID,
		PayerID:    tx.PayerID,
		Amount:     tx.Amount,
		Vendor:     tx.Vendor,
		Category:   string(tx.Category),
		Date:       tx.Date.Format("2006-01-02"),
		Pending:    tx.Pending,
		Transfer:   tx.Transfer,
		Personal:   tx.Personal,
		SplitDone:  tx.SplitDone,
	}
	for _, e := range entries {
		dto.Splits = append(dto.Splits, EntryDTO{
			PayerID:   e.PayerID,
			PayeeID:   e.PayeeID,
			Amount:    e.Amount,
			Rationale: e.Rationale,
		})
	}
	return dto
}

func toBudgetDTO(s household.BudgetStatus) BudgetDTO {
	return BudgetDTO{
		ID:         s.ID,
		Category:   string(s.Category),
		Month:      s.Month,
		Limit:      s.Limit,
		Spent:      s.Spent,
		Remaining:  s.Remaining,
		Percentage: s.Percentage,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeSplitError maps engine failures onto HTTP statuses. A zero weight
// sum is a household configuration problem, so it surfaces as 400.
func writeSplitError(w http.ResponseWriter, err error) {
	if errors.Is(err, split.ErrZeroWeightSum) {
		writeError(w, http.StatusBadRequest, "Cannot split: member weights sum to zero", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to compute splits", err)
}
