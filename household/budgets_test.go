package household_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evenly/split-engine/household"
	"github.com/evenly/split-engine/split"
)

func TestBudgetReport(t *testing.T) {
	budgets := []household.Budget{
		{ID: "b1", Category: "groceries", Month: "2026-08", Limit: 400},
		{ID: "b2", Category: "dining", Month: "2026-08", Limit: 150},
		{ID: "b3", Category: "groceries", Month: "2026-07", Limit: 350},
	}
	spent := map[string]map[split.CategoryID]float64{
		"2026-08": {"groceries": 100, "dining": 180},
		"2026-07": {"groceries": 350},
	}

	report := household.BudgetReport(budgets, spent)
	assert.Len(t, report, 3)

	assert.Equal(t, 100.0, report[0].Spent)
	assert.Equal(t, 300.0, report[0].Remaining)
	assert.Equal(t, 25.0, report[0].Percentage)

	// Over budget goes negative rather than clamping
	assert.Equal(t, -30.0, report[1].Remaining)
	assert.Equal(t, 120.0, report[1].Percentage)

	// Month ties spending to the right budget
	assert.Equal(t, 350.0, report[2].Spent)
	assert.Equal(t, 0.0, report[2].Remaining)
}

func TestBudgetReport_NoSpending(t *testing.T) {
	report := household.BudgetReport(
		[]household.Budget{{ID: "b1", Category: "travel", Month: "2026-08", Limit: 500}},
		map[string]map[split.CategoryID]float64{},
	)
	assert.Equal(t, 0.0, report[0].Spent)
	assert.Equal(t, 500.0, report[0].Remaining)
	assert.Equal(t, 0.0, report[0].Percentage)
}
