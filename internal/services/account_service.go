package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"budgettracker/internal/core"
	"budgettracker/internal/credential"
	"budgettracker/internal/notify"
	"budgettracker/internal/session"
	"budgettracker/internal/storage"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", core.ErrUnauthenticated)
	ErrWrongPassword      = errors.New("password is incorrect")
	ErrInvalidResetToken  = errors.New("reset link is invalid or has expired")
)

// Registration is the validated input of a sign-up.
type Registration struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Currency        string
}

// ResetRequest reports the outcome of a forgot-password call. The token
// is issued even when Notification.Delivered is false.
type ResetRequest struct {
	User         core.User
	Link         string
	Notification notify.Result
}

// AccountService handles registration, login and credential changes.
type AccountService struct {
	storage  *storage.SQLiteRepository
	creds    *credential.Manager
	sessions *session.Manager
	notifier notify.Sender
	baseURL  string
}

func NewAccountService(repo *storage.SQLiteRepository, creds *credential.Manager, sessions *session.Manager, notifier notify.Sender, baseURL string) *AccountService {
	return &AccountService{
		storage:  repo,
		creds:    creds,
		sessions: sessions,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Register creates a user and logs them in.
func (s *AccountService) Register(ctx context.Context, r Registration) (core.User, session.Session, error) {
	currency := strings.ToUpper(strings.TrimSpace(r.Currency))
	if currency == "" {
		currency = core.DefaultCurrency
	}
	u := core.User{
		Name:        strings.TrimSpace(r.Name),
		Email:       core.NormalizeEmail(r.Email),
		Currency:    currency,
		Preferences: core.DefaultPreferences(),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, session.Session{}, err
	}
	if err := core.ValidatePassword(r.Password, r.ConfirmPassword); err != nil {
		return core.User{}, session.Session{}, err
	}

	hash, err := s.creds.Hash(r.Password)
	if err != nil {
		return core.User{}, session.Session{}, err
	}
	u.PasswordHash = hash

	created, err := s.storage.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, session.Session{}, emailConflict(err, u.Email)
	}
	u = created

	sess, err := s.sessions.Create(ctx, u)
	if err != nil {
		return core.User{}, session.Session{}, fmt.Errorf("start session: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return u, sess, nil
}

// Login checks the credentials and starts a session. Unknown email and
// wrong password fail the same way.
func (s *AccountService) Login(ctx context.Context, email, password string) (session.Session, error) {
	u, err := s.storage.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return session.Session{}, ErrInvalidCredentials
		}
		return session.Session{}, err
	}
	if !s.creds.Verify(password, u.PasswordHash) {
		slog.WarnContext(ctx, "Failed login attempt", "user_id", u.ID)
		return session.Session{}, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, u)
	if err != nil {
		return session.Session{}, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

func (s *AccountService) Logout(ctx context.Context, sess session.Session) error {
	return s.sessions.Destroy(ctx, sess.Token)
}

// Authenticate resolves a session token, renewing it when due.
func (s *AccountService) Authenticate(ctx context.Context, token string) (session.Session, error) {
	return s.sessions.Resolve(ctx, token)
}

func (s *AccountService) Profile(ctx context.Context, sess session.Session) (core.User, error) {
	return s.storage.GetUser(ctx, sess.UserID)
}

// UpdateProfile applies upd to the session's user and returns the fresh
// display fields for the caller to store back into the session.
func (s *AccountService) UpdateProfile(ctx context.Context, sess session.Session, upd core.ProfileUpdate) (core.User, session.Display, error) {
	u, err := s.storage.GetUser(ctx, sess.UserID)
	if err != nil {
		return core.User{}, session.Display{}, err
	}

	u = upd.Apply(u)
	u.Name = strings.TrimSpace(u.Name)
	u.Email = core.NormalizeEmail(u.Email)
	u.Currency = strings.ToUpper(strings.TrimSpace(u.Currency))
	if err := u.Validate(); err != nil {
		return core.User{}, session.Display{}, err
	}

	if err := s.storage.UpdateProfile(ctx, u); err != nil {
		return core.User{}, session.Display{}, emailConflict(err, u.Email)
	}
	return u, session.DisplayOf(u), nil
}

// ChangePassword requires the current password. Every other session of
// the user is ended.
func (s *AccountService) ChangePassword(ctx context.Context, sess session.Session, current, next, confirm string) error {
	u, err := s.storage.GetUser(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if !s.creds.Verify(current, u.PasswordHash) {
		return core.Invalid("currentPassword", ErrWrongPassword)
	}
	if err := core.ValidatePassword(next, confirm); err != nil {
		return err
	}
	return s.creds.ChangePassword(ctx, &u, next, sess.Token)
}

// DeleteAccount removes the user and, through the schema cascade, all of
// their data and sessions.
func (s *AccountService) DeleteAccount(ctx context.Context, sess session.Session, password string) error {
	u, err := s.storage.GetUser(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if !s.creds.Verify(password, u.PasswordHash) {
		return core.Invalid("password", ErrWrongPassword)
	}
	return s.storage.DeleteUser(ctx, u.ID)
}

// ForgotPassword issues a reset token and tries to notify the user. A
// failed notification is logged and reported, never returned as an error.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (ResetRequest, error) {
	u, err := s.storage.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return ResetRequest{}, err
	}

	token, err := s.creds.IssueResetToken(ctx, &u)
	if err != nil {
		return ResetRequest{}, err
	}
	link := s.ResetLink(token)

	res := s.notifier.SendPasswordReset(ctx, notify.PasswordReset{
		Email:     u.Email,
		Name:      u.Name,
		Link:      link,
		ExpiresAt: u.ResetTokenExpiry,
	})
	if !res.Delivered {
		slog.ErrorContext(ctx, "Password reset notification not delivered",
			"user_id", u.ID,
			"error", res.Err)
	}

	return ResetRequest{User: u, Link: link, Notification: res}, nil
}

func (s *AccountService) ResetLink(token string) string {
	return s.baseURL + "/auth/reset-password/" + token
}

// CheckResetToken returns the user owning a live reset token.
func (s *AccountService) CheckResetToken(ctx context.Context, token string) (core.User, error) {
	u, err := s.storage.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.Invalid("token", ErrInvalidResetToken)
		}
		return core.User{}, err
	}
	if !s.creds.IsTokenValid(u, token) {
		return core.User{}, core.Invalid("token", ErrInvalidResetToken)
	}
	return u, nil
}

// ResetPassword consumes a reset token. All sessions of the user end.
func (s *AccountService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	u, err := s.CheckResetToken(ctx, token)
	if err != nil {
		return err
	}
	if err := core.ValidatePassword(password, confirm); err != nil {
		return err
	}
	if err := s.creds.ConsumeResetToken(ctx, &u, token, password); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Invalid("token", ErrInvalidResetToken)
		}
		return err
	}

	slog.InfoContext(ctx, "Password reset completed", "user_id", u.ID)
	return nil
}

// CleanupExpiredTokens clears reset tokens that can no longer be used.
func (s *AccountService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.storage.ClearExpiredResetTokens(ctx, timeNow())
}

func emailConflict(err error, email string) error {
	if errors.Is(err, core.ErrConflict) {
		return core.Conflictf("an account with email %s already exists", email)
	}
	return err
}
