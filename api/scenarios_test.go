/*
scenarios_test.go - Tests for demo scenario loading and the backlog sweeper
*/
package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenly/split-engine/household"
)

func TestLoadScenario_IncomeWeighted(t *testing.T) {
	srv, store := newTestServer(t)

	resp := doJSON(t, "POST", srv.URL+"/api/scenarios/load",
		LoadScenarioRequest{ScenarioID: "income-weighted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	members, err := store.ListMembers(context.Background(), "demo-iw")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	// Every seeded transaction is split on load
	unsplit, err := store.ListUnsplitTransactions(context.Background(), "demo-iw")
	require.NoError(t, err)
	assert.Empty(t, unsplit)

	// Bob's position: his 600 rent share, less alice's 64.27 grocery
	// share, less the 300 settlement
	resp = doJSON(t, "GET", srv.URL+"/api/households/demo-iw/summary", nil)
	summary := decode[SummaryResponse](t, resp)
	require.Len(t, summary.Balances, 1)
	assert.Equal(t, "bob", summary.Balances[0].FromID)
	assert.InDelta(t, 235.73, summary.Balances[0].Amount, 0.01)
}

func TestLoadScenario_RoommatesRulesApplied(t *testing.T) {
	srv, store := newTestServer(t)

	resp := doJSON(t, "POST", srv.URL+"/api/scenarios/load",
		LoadScenarioRequest{ScenarioID: "roommates-custom"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	txs, err := store.ListTransactions(context.Background(), "demo-rm", "")
	require.NoError(t, err)
	require.Len(t, txs, 3)

	for _, tx := range txs {
		switch tx.Vendor {
		case "Blue Bottle Coffee":
			assert.EqualValues(t, "dining", tx.Category, "coffee rule categorizes dining")
		case "Steam Games":
			assert.True(t, tx.Personal, "steam rule marks personal")
		}
	}

	// Current scenario is tracked
	resp = doJSON(t, "GET", srv.URL+"/api/scenarios/current", nil)
	current := decode[ScenarioDTO](t, resp)
	assert.Equal(t, "roommates-custom", current.ID)
}

func TestLoadScenario_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, "POST", srv.URL+"/api/scenarios/load",
		LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSplitSweeper_SweepsBacklog(t *testing.T) {
	// GIVEN: A household with an unsplit settled transaction
	_, store := newTestServer(t)
	seed(t, store)
	ctx := context.Background()

	_, err := store.UpsertTransaction(ctx, household.Transaction{
		HouseholdID: "hh-1", ExternalID: "ext-1", PayerID: "alice",
		Amount: -100, Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// WHEN: One sweep pass runs
	sweeper := NewSplitSweeper(store, NewHandler(store))
	n := sweeper.SweepAll(ctx)

	// THEN: The backlog is empty
	assert.Equal(t, 1, n)
	unsplit, err := store.ListUnsplitTransactions(ctx, "hh-1")
	require.NoError(t, err)
	assert.Empty(t, unsplit)
}

func TestSplitSweeper_SkipsZeroWeightHouseholds(t *testing.T) {
	_, store := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHousehold(ctx, household.Household{ID: "hh-z", Name: "Zero"}))
	require.NoError(t, store.SaveMember(ctx, household.Member{ID: "x", HouseholdID: "hh-z", Name: "X"}))
	require.NoError(t, store.SaveMember(ctx, household.Member{ID: "y", HouseholdID: "hh-z", Name: "Y"}))

	_, err := store.UpsertTransaction(ctx, household.Transaction{
		HouseholdID: "hh-z", ExternalID: "ext-1", PayerID: "x",
		Amount: -100, Date: time.Now().UTC(),
	})
	require.NoError(t, err)

	// Income-weighted default with no income data cannot split; the
	// transaction stays in the backlog instead of failing the sweep.
	sweeper := NewSplitSweeper(store, NewHandler(store))
	n := sweeper.SweepAll(ctx)
	assert.Equal(t, 0, n)

	unsplit, err := store.ListUnsplitTransactions(ctx, "hh-z")
	require.NoError(t, err)
	assert.Len(t, unsplit, 1)
}
