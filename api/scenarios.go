/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a household, members,
	a policy, transactions, and splits that demonstrate specific features.

AVAILABLE SCENARIOS:

	couple-even:       Two members splitting everything down the middle
	income-weighted:   Proportional-to-income couple with a settlement
	roommates-custom:  Three roommates, custom weights, category override,
	                   vendor rules, and a personal transaction

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create household and members
 3. Store the policy config
 4. Insert transactions and apply rules
 5. Recompute splits

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "income-weighted"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: RecomputeSplits and summary handlers
  - household/policies.go: Policy presets used here
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/evenly/split-engine/household"
	"github.com/evenly/split-engine/rules"
	"github.com/evenly/split-engine/split"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "couple-even",
		Name:        "Even Couple",
		Description: "Two members splitting every shared expense down the middle",
	},
	{
		ID:          "income-weighted",
		Name:        "Income-Weighted Couple",
		Description: "Shares proportional to income, with a recorded settlement",
	},
	{
		ID:          "roommates-custom",
		Name:        "Roommates",
		Description: "Three roommates with custom weights, a dining override, and vendor rules",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "couple-even":
		err = h.loadCoupleEvenScenario(ctx)
	case "income-weighted":
		err = h.loadIncomeWeightedScenario(ctx)
	case "roommates-custom":
		err = h.loadRoommatesScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadCoupleEvenScenario(ctx context.Context) error {
	if err := h.seedHousehold(ctx, "demo-even", "Maple Avenue", []household.Member{
		{ID: "sam", Name: "Sam"},
		{ID: "rio", Name: "Rio"},
	}, household.EvenPolicy()); err != nil {
		return err
	}

	txs := []household.Transaction{
		{ExternalID: "demo-1", PayerID: "sam", Amount: -84.20, Vendor: "Trader Joe's", Category: "groceries"},
		{ExternalID: "demo-2", PayerID: "rio", Amount: -120.00, Vendor: "PG&E", Category: "utilities"},
		{ExternalID: "demo-3", PayerID: "sam", Amount: 15.00, Vendor: "Trader Joe's", Category: "groceries"},
	}
	return h.seedTransactions(ctx, "demo-even", txs)
}

func (h *Handler) loadIncomeWeightedScenario(ctx context.Context) error {
	if err := h.seedHousehold(ctx, "demo-iw", "Oak Street", []household.Member{
		{ID: "alice", Name: "Alice", MonthlyIncome: 4000},
		{ID: "bob", Name: "Bob", MonthlyIncome: 2000},
	}, household.IncomeWeightedPolicy()); err != nil {
		return err
	}

	txs := []household.Transaction{
		{ExternalID: "demo-1", PayerID: "alice", Amount: -1800, Vendor: "Landlord LLC", Category: "rent"},
		{ExternalID: "demo-2", PayerID: "bob", Amount: -96.40, Vendor: "Safeway", Category: "groceries"},
	}
	if err := h.seedTransactions(ctx, "demo-iw", txs); err != nil {
		return err
	}

	_, err := h.Store.SaveSettlement(ctx, household.Settlement{
		HouseholdID: "demo-iw",
		FromID:      "bob",
		ToID:        "alice",
		Amount:      300,
		Note:        "partial rent payback",
	})
	return err
}

func (h *Handler) loadRoommatesScenario(ctx context.Context) error {
	policy := household.WithCategoryOverride(
		household.CustomPolicy(map[split.MemberID]float64{"jo": 2, "kai": 1, "lee": 1}),
		"dining",
		household.EvenPolicy(),
	)
	if err := h.seedHousehold(ctx, "demo-rm", "Elm House", []household.Member{
		{ID: "jo", Name: "Jo"},
		{ID: "kai", Name: "Kai"},
		{ID: "lee", Name: "Lee"},
	}, policy); err != nil {
		return err
	}

	personal := true
	for _, r := range []rules.Rule{
		{HouseholdID: "demo-rm", MatchVendorILike: "%whole foods%", CategoryID: "groceries", Priority: 10, Active: true},
		{HouseholdID: "demo-rm", MatchVendorILike: "%coffee%", CategoryID: "dining", Priority: 5, Active: true},
		{HouseholdID: "demo-rm", MatchVendorILike: "%steam%", MarkAsPersonal: &personal, Priority: 20, Active: true},
	} {
		if _, err := h.Store.SaveRule(ctx, r); err != nil {
			return err
		}
	}

	txs := []household.Transaction{
		{ExternalID: "demo-1", PayerID: "jo", Amount: -2400, Vendor: "Landlord LLC", Category: "rent"},
		{ExternalID: "demo-2", PayerID: "kai", Amount: -45.60, Vendor: "Blue Bottle Coffee"},
		{ExternalID: "demo-3", PayerID: "lee", Amount: -29.99, Vendor: "Steam Games"},
	}

	ruleset, err := h.Store.ListRules(ctx, "demo-rm")
	if err != nil {
		return err
	}
	for i := range txs {
		if effect := rules.Evaluate(ruleset, txs[i].Vendor); effect != nil {
			if effect.CategoryID != "" {
				txs[i].Category = effect.CategoryID
			}
			if effect.Personal != nil {
				txs[i].Personal = *effect.Personal
			}
		}
	}
	return h.seedTransactions(ctx, "demo-rm", txs)
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func (h *Handler) seedHousehold(ctx context.Context, id, name string, members []household.Member, policy split.Policy) error {
	if err := h.Store.SaveHousehold(ctx, household.Household{ID: id, Name: name}); err != nil {
		return err
	}
	for _, m := range members {
		m.HouseholdID = id
		if err := h.Store.SaveMember(ctx, m); err != nil {
			return err
		}
	}
	configJSON, err := h.PolicyFactory.MarshalPolicy(policy)
	if err != nil {
		return err
	}
	return h.Store.SavePolicy(ctx, id, configJSON)
}

func (h *Handler) seedTransactions(ctx context.Context, householdID string, txs []household.Transaction) error {
	members, err := h.Store.ListMembers(ctx, householdID)
	if err != nil {
		return err
	}
	policy, err := h.policyFor(ctx, householdID)
	if err != nil {
		return err
	}

	date := time.Now().UTC().AddDate(0, 0, -len(txs))
	for i, tx := range txs {
		tx.HouseholdID = householdID
		tx.Date = date.AddDate(0, 0, i)
		id, err := h.Store.UpsertTransaction(ctx, tx)
		if err != nil {
			return err
		}
		tx.ID = id
		if _, err := h.recomputeOne(ctx, tx, members, policy); err != nil {
			return err
		}
	}
	return nil
}
