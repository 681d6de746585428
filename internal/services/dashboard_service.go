package services

import (
	"context"

	"budgettracker/internal/core"
	"budgettracker/internal/ledger"
	"budgettracker/internal/savings"
	"budgettracker/internal/session"
	"budgettracker/internal/storage"

	"golang.org/x/sync/errgroup"
)

const recentTransactions = 5

// Overview is the landing-page summary of one month.
type Overview struct {
	Year               int
	Month              int
	Totals             core.Totals
	ActiveBudgets      int
	Savings            core.SavingsTotals
	SavingsProgress    float64
	RecentTransactions []core.Transaction
}

type DashboardService struct {
	storage *storage.SQLiteRepository
	ledger  *ledger.Aggregator
}

func NewDashboardService(repo *storage.SQLiteRepository) *DashboardService {
	return &DashboardService{storage: repo, ledger: ledger.NewAggregator(repo)}
}

// Overview runs the independent dashboard queries concurrently.
func (s *DashboardService) Overview(ctx context.Context, sess session.Session, year, month int) (Overview, error) {
	if err := requireSession(sess); err != nil {
		return Overview{}, err
	}
	ov := Overview{Year: year, Month: month}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.ledger.Month(gctx, sess.UserID, year, month)
		ov.Totals = t
		return err
	})
	g.Go(func() error {
		n, err := s.storage.CountBudgetsForMonth(gctx, sess.UserID, year, month)
		ov.ActiveBudgets = n
		return err
	})
	g.Go(func() error {
		t, err := s.storage.SavingsTotals(gctx, sess.UserID)
		ov.Savings = t
		return err
	})
	g.Go(func() error {
		txs, err := s.storage.RecentTransactions(gctx, sess.UserID, recentTransactions)
		ov.RecentTransactions = txs
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	ov.SavingsProgress = savings.Overall(ov.Savings)
	return ov, nil
}
