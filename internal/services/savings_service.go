package services

import (
	"context"
	"strings"

	"budgettracker/internal/core"
	"budgettracker/internal/savings"
	"budgettracker/internal/session"
	"budgettracker/internal/storage"
)

// GoalView is a savings goal with its progress percentage.
type GoalView struct {
	core.SavingsGoal
	Progress float64
}

func goalView(g core.SavingsGoal) GoalView {
	return GoalView{SavingsGoal: g, Progress: savings.Progress(g)}
}

type SavingsService struct {
	storage *storage.SQLiteRepository
}

func NewSavingsService(repo *storage.SQLiteRepository) *SavingsService {
	return &SavingsService{storage: repo}
}

func (s *SavingsService) Create(ctx context.Context, sess session.Session, g core.SavingsGoal) (GoalView, error) {
	if err := requireSession(sess); err != nil {
		return GoalView{}, err
	}
	g.UserID = sess.UserID
	g.Title = strings.TrimSpace(g.Title)
	if err := g.Validate(); err != nil {
		return GoalView{}, err
	}
	created, err := s.storage.CreateSavingsGoal(ctx, g)
	if err != nil {
		return GoalView{}, err
	}
	return goalView(created), nil
}

func (s *SavingsService) Get(ctx context.Context, sess session.Session, id int64) (GoalView, error) {
	g, err := s.load(ctx, sess, id)
	if err != nil {
		return GoalView{}, err
	}
	return goalView(g), nil
}

func (s *SavingsService) Update(ctx context.Context, sess session.Session, id int64, upd core.SavingsGoalUpdate) (GoalView, error) {
	g, err := s.load(ctx, sess, id)
	if err != nil {
		return GoalView{}, err
	}
	g = upd.Apply(g)
	g.Title = strings.TrimSpace(g.Title)
	if err := g.Validate(); err != nil {
		return GoalView{}, err
	}
	if err := s.storage.UpdateSavingsGoal(ctx, g); err != nil {
		return GoalView{}, err
	}
	stored, err := s.storage.GetSavingsGoal(ctx, id)
	if err != nil {
		return GoalView{}, err
	}
	return goalView(stored), nil
}

func (s *SavingsService) Delete(ctx context.Context, sess session.Session, id int64) error {
	if _, err := s.load(ctx, sess, id); err != nil {
		return err
	}
	return s.storage.DeleteSavingsGoal(ctx, sess.UserID, id)
}

// List returns the user's goals, nearest deadline first.
func (s *SavingsService) List(ctx context.Context, sess session.Session) ([]GoalView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	gs, err := s.storage.ListSavingsGoals(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]GoalView, len(gs))
	for i, g := range gs {
		out[i] = goalView(g)
	}
	return out, nil
}

func (s *SavingsService) load(ctx context.Context, sess session.Session, id int64) (core.SavingsGoal, error) {
	g, err := s.storage.GetSavingsGoal(ctx, id)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if err := owned(sess, g.UserID, "savings goal", id); err != nil {
		return core.SavingsGoal{}, err
	}
	return g, nil
}
