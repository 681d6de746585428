package ledger

import (
	"context"
	"errors"
	"testing"

	"budgettracker/internal/core"
)

type stubStore struct {
	txs     []core.Transaction
	err     error
	gotFrom core.Date
	gotTo   core.Date
	gotUser int64
}

func (s *stubStore) TransactionsBetween(_ context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	s.gotUser, s.gotFrom, s.gotTo = userID, from, to
	if s.err != nil {
		return nil, s.err
	}
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.UserID == userID && !tx.Date.Before(from.Time) && !tx.Date.After(to.Time) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func tx(user int64, typ core.TransactionType, cents int64, d core.Date) core.Transaction {
	return core.Transaction{UserID: user, Type: typ, Amount: core.Money{Cents: cents}, Date: d, Category: "c"}
}

func TestAggregatorTotals(t *testing.T) {
	store := &stubStore{txs: []core.Transaction{
		tx(1, core.Income, 150000, core.NewDate(2025, 3, 1)),
		tx(1, core.Income, 50000, core.NewDate(2025, 3, 31)),
		tx(1, core.Expense, 100000, core.NewDate(2025, 3, 5)),
		tx(1, core.Expense, 35075, core.NewDate(2025, 3, 20)),
		tx(1, core.Expense, 9999, core.NewDate(2025, 4, 1)),  // outside
		tx(1, core.Income, 9999, core.NewDate(2025, 2, 28)),  // outside
		tx(2, core.Expense, 5000, core.NewDate(2025, 3, 10)), // other user
	}}
	a := NewAggregator(store)

	got, err := a.Totals(context.Background(), 1, core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}

	if got.Income.String() != "2000.00" {
		t.Errorf("income = %s, want 2000.00", got.Income)
	}
	if got.Expense.String() != "1350.75" {
		t.Errorf("expense = %s, want 1350.75", got.Expense)
	}
	if got.Balance.String() != "649.25" {
		t.Errorf("balance = %s, want 649.25", got.Balance)
	}
}

func TestAggregatorMonth(t *testing.T) {
	store := &stubStore{}
	a := NewAggregator(store)

	if _, err := a.Month(context.Background(), 4, 2024, 2); err != nil {
		t.Fatalf("Month: %v", err)
	}
	if store.gotUser != 4 || store.gotFrom.String() != "2024-02-01" || store.gotTo.String() != "2024-02-29" {
		t.Errorf("unexpected query: user=%d %s..%s", store.gotUser, store.gotFrom, store.gotTo)
	}
}

func TestAggregatorStoreError(t *testing.T) {
	boom := errors.New("connection refused")
	a := NewAggregator(&stubStore{err: boom})

	_, err := a.Totals(context.Background(), 1, core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSummarizeNegativeBalance(t *testing.T) {
	got := Summarize([]core.Transaction{
		tx(1, core.Income, 1000, core.NewDate(2025, 1, 1)),
		tx(1, core.Expense, 1550, core.NewDate(2025, 1, 2)),
	})
	if got.Balance.Cents != -550 {
		t.Errorf("balance = %d, want -550", got.Balance.Cents)
	}
	if empty := Summarize(nil); empty != (core.Totals{}) {
		t.Errorf("empty summary = %+v", empty)
	}
}
