/*
budgets.go - Budget progress reporting

PURPOSE:
  Pairs each monthly category budget with what the household actually spent,
  so callers can show spent-vs-limit without redoing the arithmetic.

KEY CONCEPTS:
  Spending is the sum of expense amounts (negative transactions, taken as
  positive) in the budget's category during the budget's month. Refunds do
  not reduce spending and pending transactions do not count.

SEE ALSO:
  - store/sqlite/sqlite.go: SpentByMonth, the aggregation this consumes
  - api/handlers.go: the budgets endpoints
*/
package household

import "github.com/evenly/split-engine/split"

// BudgetStatus is a budget with the month's actual spending folded in.
type BudgetStatus struct {
	Budget
	Spent      float64
	Remaining  float64
	Percentage float64
}

// BudgetReport computes per-budget progress. spentByMonth maps each month to
// that month's per-category spending; budgets whose category saw no spending
// report zero spent.
func BudgetReport(budgets []Budget, spentByMonth map[string]map[split.CategoryID]float64) []BudgetStatus {
	out := make([]BudgetStatus, len(budgets))
	for i, b := range budgets {
		spent := spentByMonth[b.Month][b.Category]
		status := BudgetStatus{
			Budget:    b,
			Spent:     spent,
			Remaining: b.Limit - spent,
		}
		if b.Limit > 0 {
			status.Percentage = spent / b.Limit * 100
		}
		out[i] = status
	}
	return out
}
