package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgettracker/internal/core"
)

const transactionColumns = `id, user_id, type, category, amount_cents, date, description, created_at, updated_at`

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		typ, date            string
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &t.UserID, &typ, &t.Category, &t.Amount.Cents, &date,
		&t.Description, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Date = parseDate(date)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

// transactionWhere builds the WHERE clause selecting userID's rows that
// match f.
func transactionWhere(userID int64, f core.TransactionFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}

	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		clauses = append(clauses, `category LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(c))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clauses = append(clauses, `(description LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(s), likePattern(s))
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.To.String())
	}
	return strings.Join(clauses, " AND "), args
}

func orderClause(o core.Order) string {
	column := "date"
	switch o.Field {
	case core.FieldAmount:
		column = "amount_cents"
	case core.FieldCategory:
		column = "category"
	case core.FieldType:
		column = "type"
	case core.FieldCreatedAt:
		column = "created_at"
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", column, dir, dir)
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO transactions
		(user_id, type, category, amount_cents, date, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Type), t.Category, t.Amount.Cents, t.Date.String(), t.Description,
		formatTime(now), formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE transactions
		SET type = ?, category = ?, amount_cents = ?, date = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Category, t.Amount.Cents, t.Date.String(), t.Description, formatTime(now),
		t.ID, t.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListTransactions(ctx context.Context, userID int64, f core.TransactionFilter, o core.Order, p core.Page) ([]core.Transaction, error) {
	where, args := transactionWhere(userID, f)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where + ` ` + orderClause(o)
	if p.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, p.Limit, p.Offset)
	}
	return q.listTransactions(ctx, query, args...)
}

func (q *Queries) TransactionStats(ctx context.Context, userID int64, f core.TransactionFilter) (core.TransactionStats, error) {
	where, args := transactionWhere(userID, f)
	var s core.TransactionStats
	err := q.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0),
			COUNT(*)
		FROM transactions WHERE `+where, args...).
		Scan(&s.Income.Cents, &s.Expense.Cents, &s.Count)
	if err != nil {
		return core.TransactionStats{}, err
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s, nil
}

func (q *Queries) SumExpenses(ctx context.Context, userID int64, category string, from, to core.Date) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE user_id = ? AND type = 'expense' AND category = ? AND date >= ? AND date <= ?`,
		userID, category, from.String(), to.String()).Scan(&sum)
	return sum, err
}

func (q *Queries) Categories(ctx context.Context, userID int64, typ core.TransactionType) ([]string, error) {
	query := `SELECT DISTINCT category FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY category ASC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.now()
	id, err := r.queries.CreateTransaction(ctx, t, now)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", mapError(err))
	}
	t.ID = id
	t.CreatedAt, t.UpdatedAt = now, now

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"user_id", t.UserID,
		"type", t.Type,
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return t, nil
}

// GetTransaction loads a transaction by ID regardless of owner. Callers
// must compare UserID with the acting user.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, mapError(err))
	}
	return t, nil
}

// UpdateTransaction writes t if it still belongs to t.UserID.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, t, r.now())
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id, "user_id", userID)
	return nil
}

// ListTransactions returns one page of userID's transactions matching f.
// A zero Page returns every match.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f core.TransactionFilter, o core.Order, p core.Page) ([]core.Transaction, error) {
	txs, err := r.queries.ListTransactions(ctx, userID, f, o, p)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// TransactionStats sums and counts every transaction matching f.
func (r *SQLiteRepository) TransactionStats(ctx context.Context, userID int64, f core.TransactionFilter) (core.TransactionStats, error) {
	s, err := r.queries.TransactionStats(ctx, userID, f)
	if err != nil {
		return core.TransactionStats{}, fmt.Errorf("transaction stats: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, userID int64, f core.TransactionFilter) (int, error) {
	s, err := r.TransactionStats(ctx, userID, f)
	if err != nil {
		return 0, err
	}
	return s.Count, nil
}

// TransactionsBetween lists userID's transactions dated in [from, to].
func (r *SQLiteRepository) TransactionsBetween(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	return r.ListTransactions(ctx, userID, core.TransactionFilter{From: from, To: to}, core.DefaultOrder(), core.Page{})
}

// RecentTransactions returns the latest limit transactions, newest first.
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	txs, err := r.queries.listTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? ORDER BY date DESC, created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return txs, nil
}

// SumExpenses totals userID's expenses in exactly category over [from, to].
func (r *SQLiteRepository) SumExpenses(ctx context.Context, userID int64, category string, from, to core.Date) (core.Money, error) {
	sum, err := r.queries.SumExpenses(ctx, userID, category, from, to)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: sum}, nil
}

// Categories lists the distinct categories userID has used for typ, or
// for any type when typ is empty.
func (r *SQLiteRepository) Categories(ctx context.Context, userID int64, typ core.TransactionType) ([]string, error) {
	cats, err := r.queries.Categories(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
