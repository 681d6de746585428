// Package ledger rolls a user's transactions up into income, expense and
// balance totals for a period.
package ledger

import (
	"context"
	"fmt"

	"budgettracker/internal/core"
)

// Store lists a user's transactions dated within [from, to].
type Store interface {
	TransactionsBetween(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error)
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Totals computes the income, expense and balance of userID over the
// closed interval [from, to]. Nothing is cached.
func (a *Aggregator) Totals(ctx context.Context, userID int64, from, to core.Date) (core.Totals, error) {
	txs, err := a.store.TransactionsBetween(ctx, userID, from, to)
	if err != nil {
		return core.Totals{}, fmt.Errorf("load transactions %s..%s: %w", from, to, err)
	}
	return Summarize(txs), nil
}

// Month is Totals over the calendar month of year/month.
func (a *Aggregator) Month(ctx context.Context, userID int64, year, month int) (core.Totals, error) {
	from, to := core.MonthRange(year, month)
	return a.Totals(ctx, userID, from, to)
}

// Summarize partitions txs by type and sums each partition.
func Summarize(txs []core.Transaction) core.Totals {
	var t core.Totals
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}
