package services

import (
	"context"
	"errors"
	"strings"

	"budgettracker/internal/budget"
	"budgettracker/internal/core"
	"budgettracker/internal/session"
	"budgettracker/internal/storage"
)

// BudgetView is a budget with its derived status.
type BudgetView struct {
	core.Budget
	Status core.BudgetStatus
}

// BudgetDashboard summarizes the budgets of one month.
type BudgetDashboard struct {
	Year           int
	Month          int
	TotalBudgets   int
	TotalLimit     core.Money
	TotalSpent     core.Money
	TotalRemaining core.Money
	OverLimit      int
	Budgets        []BudgetView
}

type BudgetService struct {
	storage   *storage.SQLiteRepository
	evaluator *budget.Evaluator
}

func NewBudgetService(repo *storage.SQLiteRepository) *BudgetService {
	return &BudgetService{storage: repo, evaluator: budget.NewEvaluator(repo)}
}

// Create adds b for the session's user. The unique index on the slot
// decides a race between two creates.
func (s *BudgetService) Create(ctx context.Context, sess session.Session, b core.Budget) (BudgetView, error) {
	if err := requireSession(sess); err != nil {
		return BudgetView{}, err
	}
	b.UserID = sess.UserID
	b.Category = strings.TrimSpace(b.Category)
	if err := b.Validate(); err != nil {
		return BudgetView{}, err
	}

	created, err := s.storage.CreateBudget(ctx, b)
	if err != nil {
		return BudgetView{}, slotConflict(err, b)
	}
	return s.view(ctx, created)
}

func (s *BudgetService) Get(ctx context.Context, sess session.Session, id int64) (BudgetView, error) {
	b, err := s.load(ctx, sess, id)
	if err != nil {
		return BudgetView{}, err
	}
	return s.view(ctx, b)
}

func (s *BudgetService) Update(ctx context.Context, sess session.Session, id int64, upd core.BudgetUpdate) (BudgetView, error) {
	b, err := s.load(ctx, sess, id)
	if err != nil {
		return BudgetView{}, err
	}
	b = upd.Apply(b)
	b.Category = strings.TrimSpace(b.Category)
	if err := b.Validate(); err != nil {
		return BudgetView{}, err
	}
	if err := s.storage.UpdateBudget(ctx, b); err != nil {
		return BudgetView{}, slotConflict(err, b)
	}
	stored, err := s.storage.GetBudget(ctx, id)
	if err != nil {
		return BudgetView{}, err
	}
	return s.view(ctx, stored)
}

func (s *BudgetService) Delete(ctx context.Context, sess session.Session, id int64) error {
	if _, err := s.load(ctx, sess, id); err != nil {
		return err
	}
	return s.storage.DeleteBudget(ctx, sess.UserID, id)
}

// Stats evaluates one budget.
func (s *BudgetService) Stats(ctx context.Context, sess session.Session, id int64) (core.BudgetStatus, error) {
	b, err := s.load(ctx, sess, id)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return s.evaluator.Evaluate(ctx, b)
}

// List returns every budget of the user, newest period first.
func (s *BudgetService) List(ctx context.Context, sess session.Session) ([]BudgetView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	bs, err := s.storage.ListBudgets(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, bs)
}

// Dashboard evaluates every budget of year/month.
func (s *BudgetService) Dashboard(ctx context.Context, sess session.Session, year, month int) (BudgetDashboard, error) {
	if err := requireSession(sess); err != nil {
		return BudgetDashboard{}, err
	}
	bs, err := s.storage.ListBudgetsForMonth(ctx, sess.UserID, year, month)
	if err != nil {
		return BudgetDashboard{}, err
	}
	views, err := s.views(ctx, bs)
	if err != nil {
		return BudgetDashboard{}, err
	}

	d := BudgetDashboard{Year: year, Month: month, TotalBudgets: len(views), Budgets: views}
	for _, v := range views {
		d.TotalLimit = d.TotalLimit.Add(v.Limit)
		d.TotalSpent = d.TotalSpent.Add(v.Status.Spent)
		if v.Status.IsOverBudget {
			d.OverLimit++
		}
	}
	d.TotalRemaining = d.TotalLimit.Sub(d.TotalSpent)
	return d, nil
}

func (s *BudgetService) load(ctx context.Context, sess session.Session, id int64) (core.Budget, error) {
	b, err := s.storage.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if err := owned(sess, b.UserID, "budget", id); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *BudgetService) view(ctx context.Context, b core.Budget) (BudgetView, error) {
	st, err := s.evaluator.Evaluate(ctx, b)
	if err != nil {
		return BudgetView{}, err
	}
	return BudgetView{Budget: b, Status: st}, nil
}

func (s *BudgetService) views(ctx context.Context, bs []core.Budget) ([]BudgetView, error) {
	out := make([]BudgetView, 0, len(bs))
	for _, b := range bs {
		v, err := s.view(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func slotConflict(err error, b core.Budget) error {
	if errors.Is(err, core.ErrConflict) {
		return core.Conflictf("a budget for %s already exists for %02d/%d", b.Category, b.Month, b.Year)
	}
	return err
}
