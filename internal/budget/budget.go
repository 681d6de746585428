// Package budget derives spent-vs-limit status for monthly category budgets.
package budget

import (
	"context"
	"fmt"

	"budgettracker/internal/core"
)

// Store sums a user's expense amounts in one category over [from, to].
type Store interface {
	SumExpenses(ctx context.Context, userID int64, category string, from, to core.Date) (core.Money, error)
}

type Evaluator struct {
	store Store
}

func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate re-aggregates the expenses matching b and returns its status.
// b is assumed to be already authorized for the caller.
func (e *Evaluator) Evaluate(ctx context.Context, b core.Budget) (core.BudgetStatus, error) {
	from, to := core.MonthRange(b.Year, b.Month)
	spent, err := e.store.SumExpenses(ctx, b.UserID, b.Category, from, to)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("sum expenses for budget %d: %w", b.ID, err)
	}
	return Status(b.Limit, spent), nil
}

// Status computes the derived budget fields from a limit and a spent
// amount. A non-positive limit yields a zero percentage.
func Status(limit, spent core.Money) core.BudgetStatus {
	return core.BudgetStatus{
		Spent:          spent,
		Remaining:      limit.Sub(spent),
		PercentageUsed: core.Percent(spent, limit, 2),
		IsOverBudget:   spent.Cents > limit.Cents,
	}
}
