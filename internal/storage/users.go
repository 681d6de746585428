package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"budgettracker/internal/core"
)

const userColumns = `id, name, email, password_hash, currency, preferences,
	reset_token, reset_token_expires_at, created_at, updated_at`

func scanUser(row scanner) (core.User, error) {
	var (
		u                    core.User
		prefs                string
		token, tokenExpiry   sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Currency, &prefs,
		&token, &tokenExpiry, &createdAt, &updatedAt); err != nil {
		return core.User{}, err
	}
	u.Preferences = core.DefaultPreferences()
	if prefs != "" {
		if err := json.Unmarshal([]byte(prefs), &u.Preferences); err != nil {
			return core.User{}, fmt.Errorf("decode preferences: %w", err)
		}
	}
	u.ResetToken = token.String
	if tokenExpiry.Valid {
		u.ResetTokenExpiry = parseTime(tokenExpiry.String)
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

func (q *Queries) CreateUser(ctx context.Context, u core.User, now time.Time) (int64, error) {
	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return 0, fmt.Errorf("encode preferences: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `INSERT INTO users
		(name, email, password_hash, currency, preferences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Currency, string(prefs), formatTime(now), formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (q *Queries) GetUserByResetToken(ctx context.Context, token string) (core.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token))
}

func (q *Queries) UpdateProfile(ctx context.Context, u core.User, now time.Time) (int64, error) {
	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return 0, fmt.Errorf("encode preferences: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `UPDATE users
		SET name = ?, email = ?, currency = ?, preferences = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.Email, u.Currency, string(prefs), formatTime(now), u.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) SetResetToken(ctx context.Context, userID int64, token string, expiresAt, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE users
		SET reset_token = ?, reset_token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		nullString(token), formatTime(expiresAt), formatTime(now), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) UpdatePassword(ctx context.Context, userID int64, hash string, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE users
		SET password_hash = ?, reset_token = NULL, reset_token_expires_at = NULL, updated_at = ?
		WHERE id = ?`,
		hash, formatTime(now), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ConsumeResetToken(ctx context.Context, userID int64, token, hash string, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE users
		SET password_hash = ?, reset_token = NULL, reset_token_expires_at = NULL, updated_at = ?
		WHERE id = ? AND reset_token = ? AND reset_token_expires_at > ?`,
		hash, formatTime(now), userID, token, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE users
		SET reset_token = NULL, reset_token_expires_at = NULL
		WHERE reset_token IS NOT NULL AND reset_token_expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateUser inserts u and returns it with its ID. A duplicate email maps
// to core.ErrConflict.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := r.now()
	id, err := r.queries.CreateUser(ctx, u, now)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", mapError(err))
	}
	u.ID = id
	u.CreatedAt, u.UpdatedAt = now, now

	slog.InfoContext(ctx, "User saved to SQLite", "id", id)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, mapError(err))
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", mapError(err))
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByResetToken(ctx context.Context, token string) (core.User, error) {
	if token == "" {
		return core.User{}, fmt.Errorf("get user by reset token: %w", core.ErrNotFound)
	}
	u, err := r.queries.GetUserByResetToken(ctx, token)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by reset token: %w", mapError(err))
	}
	return u, nil
}

// UpdateProfile stores the name, email, currency and preferences of u.
func (r *SQLiteRepository) UpdateProfile(ctx context.Context, u core.User) error {
	n, err := r.queries.UpdateProfile(ctx, u, r.now())
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update user %d: %w", u.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) SetResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	n, err := r.queries.SetResetToken(ctx, userID, token, expiresAt, r.now())
	if err != nil {
		return fmt.Errorf("set reset token for user %d: %w", userID, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("set reset token for user %d: %w", userID, core.ErrNotFound)
	}
	return nil
}

// UpdatePassword stores hash, clears the reset token and drops every
// session of the user except keepSession, all in one transaction.
func (r *SQLiteRepository) UpdatePassword(ctx context.Context, userID int64, hash string, keepSession string) error {
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.UpdatePassword(ctx, userID, hash, r.now())
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrNotFound
		}
		_, err = q.DeleteUserSessions(ctx, userID, keepSession)
		return err
	})
	if err != nil {
		return fmt.Errorf("update password for user %d: %w", userID, mapError(err))
	}

	slog.InfoContext(ctx, "Password updated", "user_id", userID, "kept_session", keepSession != "")
	return nil
}

// ConsumeResetToken stores hash only while token is still the live reset
// token of the user, clearing it and every session in the same transaction.
// A token that was already used, replaced or expired yields core.ErrNotFound.
func (r *SQLiteRepository) ConsumeResetToken(ctx context.Context, userID int64, token, hash string) error {
	if token == "" {
		return fmt.Errorf("consume reset token for user %d: %w", userID, core.ErrNotFound)
	}
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.ConsumeResetToken(ctx, userID, token, hash, r.now())
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrNotFound
		}
		_, err = q.DeleteUserSessions(ctx, userID, "")
		return err
	})
	if err != nil {
		return fmt.Errorf("consume reset token for user %d: %w", userID, mapError(err))
	}

	slog.InfoContext(ctx, "Reset token consumed", "user_id", userID)
	return nil
}

func (r *SQLiteRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.ClearExpiredResetTokens(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired reset tokens: %w", err)
	}
	return n, nil
}

// DeleteUser removes the user; the schema cascades the delete to every
// transaction, budget, savings goal and session the user owns.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteUser(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, mapError(err))
	}

	slog.InfoContext(ctx, "User deleted from SQLite", "id", id)
	return nil
}
