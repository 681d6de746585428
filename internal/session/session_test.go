package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, core.User) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	u, err := repo.CreateUser(context.Background(), core.User{
		Name: "Ana", Email: "ana@example.com", PasswordHash: "x", Currency: "EUR",
		Preferences: core.DefaultPreferences(),
	})
	require.NoError(t, err)

	return NewManager(repo, time.Hour), u
}

func TestCreateAndResolve(t *testing.T) {
	m, u := newTestManager(t)
	ctx := context.Background()

	s, err := m.Create(ctx, u)
	require.NoError(t, err)
	assert.Len(t, s.Token, 64)
	assert.Equal(t, "Ana", s.Display.Name)

	got, err := m.Resolve(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, "ana@example.com", got.Display.Email)
	assert.True(t, got.ExpiresAt.Equal(s.ExpiresAt.UTC()), "fresh session must not be renewed")
}

func TestResolveRenewsPastHalfLife(t *testing.T) {
	m, u := newTestManager(t)
	ctx := context.Background()

	start := time.Now()
	m.now = func() time.Time { return start }
	s, err := m.Create(ctx, u)
	require.NoError(t, err)

	later := start.Add(40 * time.Minute)
	m.now = func() time.Time { return later }

	got, err := m.Resolve(ctx, s.Token)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(later.Add(time.Hour)))
}

func TestResolveUnknownAndExpired(t *testing.T) {
	m, u := newTestManager(t)
	ctx := context.Background()

	_, err := m.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	s, err := m.Create(ctx, u)
	require.NoError(t, err)
	require.NoError(t, m.Destroy(ctx, s.Token))

	_, err = m.Resolve(ctx, s.Token)
	assert.True(t, errors.Is(err, core.ErrUnauthenticated))
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), Session{UserID: 7})
	s, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(7), s.UserID)
}
