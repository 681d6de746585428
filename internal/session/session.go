// Package session carries the authenticated user through a request and
// manages the lifetime of stored logins.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/storage"
)

const (
	DefaultTTL = 24 * time.Hour
	tokenBytes = 32
)

// Display holds the user fields cached on a session for rendering.
type Display struct {
	Name     string
	Email    string
	Currency string
}

func DisplayOf(u core.User) Display {
	return Display{Name: u.Name, Email: u.Email, Currency: u.Currency}
}

// Session is the read-only identity passed to every service call.
type Session struct {
	Token     string
	UserID    int64
	Display   Display
	ExpiresAt time.Time
}

type ctxKey struct{}

func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok && s.UserID != 0
}

// Store persists sessions. *storage.SQLiteRepository implements it.
type Store interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (storage.Session, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now, random: rand.Reader}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Create starts a new session for u.
func (m *Manager) Create(ctx context.Context, u core.User) (Session, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(m.random, buf); err != nil {
		return Session{}, fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expiresAt := m.now().Add(m.ttl)

	if err := m.store.CreateSession(ctx, token, u.ID, expiresAt); err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: u.ID, Display: DisplayOf(u), ExpiresAt: expiresAt}, nil
}

// Resolve returns the live session for token. Once less than half of the
// lifetime remains the expiry is pushed a full TTL forward; the returned
// ExpiresAt tells the caller whether the cookie needs refreshing.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	stored, err := m.store.GetSession(ctx, token)
	if err != nil {
		if core.Kind(err) == core.ErrNotFound {
			return Session{}, fmt.Errorf("%w: session expired or unknown", core.ErrUnauthenticated)
		}
		return Session{}, err
	}

	s := Session{
		Token:     stored.Token,
		UserID:    stored.UserID,
		Display:   DisplayOf(stored.User),
		ExpiresAt: stored.ExpiresAt,
	}

	now := m.now()
	if stored.ExpiresAt.Sub(now) < m.ttl/2 {
		renewed := now.Add(m.ttl)
		if err := m.store.RenewSession(ctx, token, renewed); err != nil {
			return Session{}, fmt.Errorf("renew session: %w", err)
		}
		s.ExpiresAt = renewed
	}
	return s, nil
}

func (m *Manager) Destroy(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, token)
}

// Sweep deletes every expired session.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, m.now())
}
