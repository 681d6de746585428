package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgettracker/internal/core"
)

const savingsColumns = `id, user_id, title, target_cents, current_cents, deadline, created_at, updated_at`

func scanSavingsGoal(row scanner) (core.SavingsGoal, error) {
	var (
		g                    core.SavingsGoal
		deadline             string
		createdAt, updatedAt string
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Target.Cents, &g.Current.Cents, &deadline,
		&createdAt, &updatedAt); err != nil {
		return core.SavingsGoal{}, err
	}
	g.Deadline = parseDate(deadline)
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return g, nil
}

func (q *Queries) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO savings_goals
		(user_id, title, target_cents, current_cents, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Title, g.Target.Cents, g.Current.Cents, g.Deadline.String(), formatTime(now), formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) GetSavingsGoal(ctx context.Context, id int64) (core.SavingsGoal, error) {
	return scanSavingsGoal(q.db.QueryRowContext(ctx,
		`SELECT `+savingsColumns+` FROM savings_goals WHERE id = ?`, id))
}

func (q *Queries) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE savings_goals
		SET title = ?, target_cents = ?, current_cents = ?, deadline = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		g.Title, g.Target.Cents, g.Current.Cents, g.Deadline.String(), formatTime(now), g.ID, g.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteSavingsGoal(ctx context.Context, userID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListSavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+savingsColumns+` FROM savings_goals
		WHERE user_id = ? ORDER BY deadline ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		g, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (q *Queries) SavingsTotals(ctx context.Context, userID int64) (core.SavingsTotals, error) {
	var t core.SavingsTotals
	err := q.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(target_cents), 0), COALESCE(SUM(current_cents), 0), COUNT(*)
		FROM savings_goals WHERE user_id = ?`, userID).
		Scan(&t.Target.Cents, &t.Current.Cents, &t.Count)
	return t, err
}

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	now := r.now()
	id, err := r.queries.CreateSavingsGoal(ctx, g, now)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", mapError(err))
	}
	g.ID = id
	g.CreatedAt, g.UpdatedAt = now, now

	slog.InfoContext(ctx, "Savings goal saved to SQLite",
		"id", id,
		"user_id", g.UserID,
		"title", g.Title,
		"deadline", g.Deadline.String())

	return g, nil
}

// GetSavingsGoal loads a goal by ID regardless of owner.
func (r *SQLiteRepository) GetSavingsGoal(ctx context.Context, id int64) (core.SavingsGoal, error) {
	g, err := r.queries.GetSavingsGoal(ctx, id)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get savings goal %d: %w", id, mapError(err))
	}
	return g, nil
}

func (r *SQLiteRepository) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	n, err := r.queries.UpdateSavingsGoal(ctx, g, r.now())
	if err != nil {
		return fmt.Errorf("update savings goal %d: %w", g.ID, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update savings goal %d: %w", g.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, userID, id int64) error {
	n, err := r.queries.DeleteSavingsGoal(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete savings goal %d: %w", id, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("delete savings goal %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Savings goal deleted from SQLite", "id", id, "user_id", userID)
	return nil
}

// ListSavingsGoals returns userID's goals, nearest deadline first.
func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	gs, err := r.queries.ListSavingsGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	return gs, nil
}

func (r *SQLiteRepository) SavingsTotals(ctx context.Context, userID int64) (core.SavingsTotals, error) {
	t, err := r.queries.SavingsTotals(ctx, userID)
	if err != nil {
		return core.SavingsTotals{}, fmt.Errorf("savings totals: %w", err)
	}
	return t, nil
}
