package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgettracker/internal/core"
)

const budgetColumns = `id, user_id, category, limit_cents, month, year, created_at, updated_at`

func scanBudget(row scanner) (core.Budget, error) {
	var (
		b                    core.Budget
		createdAt, updatedAt string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Limit.Cents, &b.Month, &b.Year,
		&createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

func (q *Queries) listBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO budgets
		(user_id, category, limit_cents, month, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Category, b.Limit.Cents, b.Month, b.Year, formatTime(now), formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE budgets
		SET category = ?, limit_cents = ?, month = ?, year = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Category, b.Limit.Cents, b.Month, b.Year, formatTime(now), b.ID, b.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteBudget(ctx context.Context, userID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return q.listBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = ? ORDER BY year DESC, month DESC, category ASC`, userID)
}

func (q *Queries) ListBudgetsForMonth(ctx context.Context, userID int64, year, month int) ([]core.Budget, error) {
	return q.listBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = ? AND year = ? AND month = ? ORDER BY category ASC`, userID, year, month)
}

func (q *Queries) CountBudgetsForMonth(ctx context.Context, userID int64, year, month int) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets
		WHERE user_id = ? AND year = ? AND month = ?`, userID, year, month).Scan(&n)
	return n, err
}

// CreateBudget inserts b. A second budget for the same user, category,
// month and year maps to core.ErrConflict.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := r.now()
	id, err := r.queries.CreateBudget(ctx, b, now)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", mapError(err))
	}
	b.ID = id
	b.CreatedAt, b.UpdatedAt = now, now

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"id", id,
		"user_id", b.UserID,
		"category", b.Category,
		"month", b.Month,
		"year", b.Year)

	return b, nil
}

// GetBudget loads a budget by ID regardless of owner.
func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	b, err := r.queries.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, mapError(err))
	}
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	n, err := r.queries.UpdateBudget(ctx, b, r.now())
	if err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update budget %d: %w", b.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	n, err := r.queries.DeleteBudget(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("delete budget %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Budget deleted from SQLite", "id", id, "user_id", userID)
	return nil
}

// ListBudgets returns every budget of userID, most recent period first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	bs, err := r.queries.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return bs, nil
}

func (r *SQLiteRepository) ListBudgetsForMonth(ctx context.Context, userID int64, year, month int) ([]core.Budget, error) {
	bs, err := r.queries.ListBudgetsForMonth(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %04d-%02d: %w", year, month, err)
	}
	return bs, nil
}

func (r *SQLiteRepository) CountBudgetsForMonth(ctx context.Context, userID int64, year, month int) (int, error) {
	n, err := r.queries.CountBudgetsForMonth(ctx, userID, year, month)
	if err != nil {
		return 0, fmt.Errorf("count budgets for %04d-%02d: %w", year, month, err)
	}
	return n, nil
}
