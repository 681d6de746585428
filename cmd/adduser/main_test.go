package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/storage"
)

func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("BCRYPT_COST", "4")
	return filepath.Join(t.TempDir(), "budget.db")
}

func TestRun_Success(t *testing.T) {
	dbPath := setup(t)
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	args := []string{"-email", "Ana@Example.com", "-name", "Ana", "-password", "secret1", "-db", dbPath}
	err := run(args, new(bytes.Buffer), stdout, stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "User ana@example.com created successfully")

	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	u, err := repo.GetUserByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.NotEqual(t, "secret1", u.PasswordHash)
}

func TestRun_PromptsForPassword(t *testing.T) {
	dbPath := setup(t)
	stdout := new(bytes.Buffer)
	stdin := strings.NewReader("secret1\nsecret1\n")

	args := []string{"-email", "bo@example.com", "-name", "Bo", "-db", dbPath}
	err := run(args, stdin, stdout, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "Confirm password: ")
	assert.Contains(t, stdout.String(), "created successfully")
}

func TestRun_PromptMismatch(t *testing.T) {
	dbPath := setup(t)
	stdin := strings.NewReader("secret1\nsecret2\n")

	args := []string{"-email", "bo@example.com", "-name", "Bo", "-db", dbPath}
	err := run(args, stdin, new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create user")
}

func TestRun_PromptEOF(t *testing.T) {
	dbPath := setup(t)

	args := []string{"-email", "bo@example.com", "-name", "Bo", "-db", dbPath}
	err := run(args, strings.NewReader(""), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read password")
}

func TestRun_DuplicateUser(t *testing.T) {
	dbPath := setup(t)
	args := []string{"-email", "ana@example.com", "-name", "Ana", "-password", "secret1", "-db", dbPath}

	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)), "first run should succeed")

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err, "expected error on duplicate user")
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_ShortPassword(t *testing.T) {
	dbPath := setup(t)
	args := []string{"-email", "ana@example.com", "-name", "Ana", "-password", "abc", "-db", dbPath}

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
}

func TestRun_MissingFlags(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	err := run([]string{"-password", "secret1"}, new(bytes.Buffer), stdout, stderr)
	require.Error(t, err, "expected error for missing flags")
	assert.Contains(t, err.Error(), "missing required flags: email, name")
	assert.Contains(t, stdout.String(), "Usage: adduser")
	assert.Contains(t, stderr.String(), "-email")
}
