// Package credential hashes and verifies passwords and manages the
// time-limited password reset token stored on a user.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"budgettracker/internal/core"

	"golang.org/x/crypto/bcrypt"
)

const (
	// ResetTokenTTL is how long an issued reset token stays valid.
	ResetTokenTTL = 15 * time.Minute

	resetTokenBytes = 32
)

// Store persists credential state for a user.
type Store interface {
	SetResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	// UpdatePassword stores hash, clears any reset token and drops every
	// session of the user except keepSession.
	UpdatePassword(ctx context.Context, userID int64, hash string, keepSession string) error
	// ConsumeResetToken stores hash only if token is still the unexpired
	// reset token of the user, clears it and drops every session. Losing
	// that condition is reported as core.ErrNotFound.
	ConsumeResetToken(ctx context.Context, userID int64, token, hash string) error
}

type Manager struct {
	store  Store
	cost   int
	now    func() time.Time
	random io.Reader
}

type Option func(*Manager)

// WithCost sets the bcrypt cost factor.
func WithCost(cost int) Option {
	return func(m *Manager) { m.cost = cost }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cost < bcrypt.MinCost || m.cost > bcrypt.MaxCost {
		m.cost = bcrypt.DefaultCost
	}
	return m
}

// Hash returns a salted bcrypt digest of plaintext.
func (m *Manager) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), m.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest.
func (m *Manager) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// IssueResetToken generates a fresh token for u, replacing any earlier one,
// and persists it with an expiry of ResetTokenTTL from now.
func (m *Manager) IssueResetToken(ctx context.Context, u *core.User) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := io.ReadFull(m.random, buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expiresAt := m.now().Add(ResetTokenTTL).UTC()

	if err := m.store.SetResetToken(ctx, u.ID, token, expiresAt); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	u.ResetToken = token
	u.ResetTokenExpiry = expiresAt
	return token, nil
}

// IsTokenValid is true iff token equals the one stored on u and it has
// not yet expired.
func (m *Manager) IsTokenValid(u core.User, token string) bool {
	if u.ResetToken == "" || token == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(u.ResetToken), []byte(token)) != 1 {
		return false
	}
	return m.now().Before(u.ResetTokenExpiry)
}

// ConsumeResetToken sets a new password for u and clears token in the same
// conditional write, so a token succeeds at most once. All sessions of u
// are dropped.
func (m *Manager) ConsumeResetToken(ctx context.Context, u *core.User, token, newPlaintext string) error {
	digest, err := m.Hash(newPlaintext)
	if err != nil {
		return err
	}
	if err := m.store.ConsumeResetToken(ctx, u.ID, token, digest); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	m.applied(u, digest)
	return nil
}

// ChangePassword sets a new password for u, keeping only the session
// identified by keepSession.
func (m *Manager) ChangePassword(ctx context.Context, u *core.User, newPlaintext, keepSession string) error {
	return m.setPassword(ctx, u, newPlaintext, keepSession)
}

func (m *Manager) setPassword(ctx context.Context, u *core.User, plaintext, keepSession string) error {
	digest, err := m.Hash(plaintext)
	if err != nil {
		return err
	}
	if err := m.store.UpdatePassword(ctx, u.ID, digest, keepSession); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	m.applied(u, digest)
	return nil
}

func (m *Manager) applied(u *core.User, digest string) {
	u.PasswordHash = digest
	u.ResetToken = ""
	u.ResetTokenExpiry = time.Time{}
}
