package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgettracker/internal/core"
)

// Session is a stored login together with the user it belongs to.
type Session struct {
	Token        string
	UserID       int64
	ExpiresAt    time.Time
	LastActivity time.Time
	CreatedAt    time.Time
	User         core.User
}

func (q *Queries) CreateSession(ctx context.Context, token string, userID int64, expiresAt, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO sessions (token, user_id, expires_at, last_activity, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		token, userID, formatTime(expiresAt), formatTime(now), formatTime(now))
	return err
}

func (q *Queries) GetSession(ctx context.Context, token string, now time.Time) (Session, error) {
	row := q.db.QueryRowContext(ctx, `SELECT s.token, s.user_id, s.expires_at, s.last_activity, s.created_at,
			u.id, u.name, u.email, u.password_hash, u.currency, u.preferences,
			u.reset_token, u.reset_token_expires_at, u.created_at, u.updated_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`, token, formatTime(now))

	var (
		s                                  Session
		expiresAt, lastActivity, createdAt string
	)
	user, err := scanUser(prefixScanner{row: row, prefix: []any{&s.Token, &s.UserID, &expiresAt, &lastActivity, &createdAt}})
	if err != nil {
		return Session{}, err
	}
	s.ExpiresAt = parseTime(expiresAt)
	s.LastActivity = parseTime(lastActivity)
	s.CreatedAt = parseTime(createdAt)
	s.User = user
	return s, nil
}

// prefixScanner scans leading columns into prefix before handing the
// rest to the wrapped scan.
type prefixScanner struct {
	row    scanner
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append(p.prefix, dest...)...)
}

func (q *Queries) RenewSession(ctx context.Context, token string, expiresAt, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE sessions SET expires_at = ?, last_activity = ? WHERE token = ?`,
		formatTime(expiresAt), formatTime(now), token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteSession(ctx context.Context, token string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteUserSessions removes every session of userID except keepToken.
// An empty keepToken removes all of them.
func (q *Queries) DeleteUserSessions(ctx context.Context, userID int64, keepToken string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND token <> ?`, userID, keepToken)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	if err := r.queries.CreateSession(ctx, token, userID, expiresAt, r.now()); err != nil {
		return fmt.Errorf("create session: %w", mapError(err))
	}
	return nil
}

// GetSession returns the unexpired session for token. Missing and
// expired sessions both map to core.ErrNotFound.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, fmt.Errorf("get session: %w", core.ErrNotFound)
	}
	s, err := r.queries.GetSession(ctx, token, r.now())
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", mapError(err))
	}
	return s, nil
}

func (r *SQLiteRepository) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	n, err := r.queries.RenewSession(ctx, token, expiresAt, r.now())
	if err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("renew session: %w", core.ErrNotFound)
	}
	return nil
}

// DeleteSession is idempotent; deleting an unknown token is not an error.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.queries.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expired sessions removed", "count", n)
	}
	return n, nil
}
