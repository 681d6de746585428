package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"budgettracker/internal/credential"
	"budgettracker/internal/log"
	"budgettracker/internal/notify"
	"budgettracker/internal/services"
	"budgettracker/internal/session"
	"budgettracker/internal/storage"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func newTestServer(t *testing.T, opts Options) (*Server, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	creds := credential.NewManager(repo, credential.WithCost(bcrypt.MinCost))
	sessions := session.NewManager(repo, time.Hour)
	sender := notify.NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)))

	svc := Services{
		Accounts:     services.NewAccountService(repo, creds, sessions, sender, "http://localhost:8080"),
		Transactions: services.NewTransactionService(repo, nil),
		Budgets:      services.NewBudgetService(repo),
		Savings:      services.NewSavingsService(repo),
		Dashboard:    services.NewDashboardService(repo),
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: io.Discard})
	}
	if opts.Ready == nil {
		opts.Ready = repo
	}
	srv := NewServer(":0", svc, opts)
	srv.now = func() time.Time { return time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, repo
}

type ServerTestSuite struct {
	suite.Suite
	srv *Server
}

func (s *ServerTestSuite) SetupTest() {
	s.srv, _ = newTestServer(s.T(), Options{RateLimitPerMinute: 1000})
}

func (s *ServerTestSuite) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rr, req)
	return rr
}

// sessionCookieFrom returns the last session cookie set, the one a
// browser would keep.
func sessionCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	var found *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookieName {
			found = c
		}
	}
	return found
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), rr.Body.String())
	return m
}

func (s *ServerTestSuite) register(email string) *http.Cookie {
	rr := s.do(http.MethodPost, "/auth/register",
		`{"name":"Test User","email":"`+email+`","password":"secret1","confirmPassword":"secret1"}`, nil)
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())
	c := sessionCookieFrom(rr)
	require.NotNil(s.T(), c)
	return c
}

func (s *ServerTestSuite) TestHealthAndReady() {
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := s.do(http.MethodGet, path, "", nil)
		assert.Equal(s.T(), http.StatusOK, rr.Code, path)
		assert.NotEmpty(s.T(), rr.Header().Get("X-Request-ID"))
		assert.Equal(s.T(), "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}
}

func (s *ServerTestSuite) TestReadyFailsWhenDependencyDown() {
	srv, _ := newTestServer(s.T(), Options{Ready: failingPinger{}})
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(s.T(), http.StatusServiceUnavailable, rr.Code)
}

func (s *ServerTestSuite) TestRegisterSetsSessionCookie() {
	rr := s.do(http.MethodPost, "/auth/register",
		`{"name":" Ada ","email":"ADA@Example.com","password":"secret1","confirmPassword":"secret1"}`, nil)
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())

	c := sessionCookieFrom(rr)
	require.NotNil(s.T(), c)
	assert.True(s.T(), c.HttpOnly)
	assert.Equal(s.T(), http.SameSiteLaxMode, c.SameSite)
	assert.Len(s.T(), c.Value, 64)

	body := decodeMap(s.T(), rr)
	user := body["user"].(map[string]any)
	assert.Equal(s.T(), "ada@example.com", user["email"])
	assert.Equal(s.T(), "Ada", user["name"])
	assert.Equal(s.T(), "EUR", user["currency"])
	assert.NotContains(s.T(), rr.Body.String(), "password")
}

func (s *ServerTestSuite) TestRegisterValidationAndConflict() {
	rr := s.do(http.MethodPost, "/auth/register",
		`{"name":"Ada","email":"ada@example.com","password":"123","confirmPassword":"123"}`, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), "password", decodeMap(s.T(), rr)["field"])

	s.register("ada@example.com")
	rr = s.do(http.MethodPost, "/auth/register",
		`{"name":"Ada","email":"ada@example.com","password":"secret1","confirmPassword":"secret1"}`, nil)
	assert.Equal(s.T(), http.StatusConflict, rr.Code)
	assert.Contains(s.T(), decodeMap(s.T(), rr)["error"], "ada@example.com")
}

func (s *ServerTestSuite) TestLoginLogout() {
	s.register("bob@example.com")

	rr := s.do(http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"wrong"}`, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.Equal(s.T(), "invalid email or password", decodeMap(s.T(), rr)["error"])

	rr = s.do(http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"secret1"}`, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/auth/login", `{"email":" BOB@example.com ","password":"secret1"}`, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	c := sessionCookieFrom(rr)
	require.NotNil(s.T(), c)

	assert.Equal(s.T(), http.StatusOK, s.do(http.MethodGet, "/profile", "", c).Code)

	rr = s.do(http.MethodPost, "/auth/logout", "", c)
	assert.Equal(s.T(), http.StatusNoContent, rr.Code)
	assert.Equal(s.T(), -1, sessionCookieFrom(rr).MaxAge)

	assert.Equal(s.T(), http.StatusUnauthorized, s.do(http.MethodGet, "/profile", "", c).Code)
}

func (s *ServerTestSuite) TestProtectedRoutesRequireSession() {
	for _, path := range []string{"/profile", "/dashboard", "/transactions", "/budgets", "/savings"} {
		rr := s.do(http.MethodGet, path, "", nil)
		assert.Equal(s.T(), http.StatusUnauthorized, rr.Code, path)
	}

	rr := s.do(http.MethodGet, "/profile", "", &http.Cookie{Name: SessionCookieName, Value: "deadbeef"})
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	assert.Equal(s.T(), -1, sessionCookieFrom(rr).MaxAge, "stale cookie is cleared")
}

func (s *ServerTestSuite) TestProfileUpdateAndPassword() {
	c := s.register("carol@example.com")

	rr := s.do(http.MethodPut, "/profile", `{"name":"Carol R","currency":"usd","preferences":{"language":"en","theme":"dark","notifications":false}}`, c)
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	body := decodeMap(s.T(), rr)
	assert.Equal(s.T(), "USD", body["user"].(map[string]any)["currency"])
	assert.Equal(s.T(), "Carol R", body["session"].(map[string]any)["name"])

	rr = s.do(http.MethodPut, "/profile/password", `{"currentPassword":"nope","newPassword":"secret2","confirmPassword":"secret2"}`, c)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), "currentPassword", decodeMap(s.T(), rr)["field"])

	rr = s.do(http.MethodPut, "/profile/password", `{"currentPassword":"secret1","newPassword":"secret2","confirmPassword":"secret2"}`, c)
	assert.Equal(s.T(), http.StatusNoContent, rr.Code)
	assert.Equal(s.T(), http.StatusOK, s.do(http.MethodGet, "/profile", "", c).Code, "current session survives")

	rr = s.do(http.MethodPost, "/auth/login", `{"email":"carol@example.com","password":"secret2"}`, nil)
	assert.Equal(s.T(), http.StatusOK, rr.Code)
}

func (s *ServerTestSuite) TestForgotAndResetPassword() {
	s.register("dave@example.com")

	rr := s.do(http.MethodPost, "/auth/forgot-password", `{"email":"ghost@example.com"}`, nil)
	assert.Equal(s.T(), http.StatusNotFound, rr.Code)

	rr = s.do(http.MethodPost, "/auth/forgot-password", `{"email":"dave@example.com"}`, nil)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), false, decodeMap(s.T(), rr)["delivered"], "the log sender delivers nothing")

	rr = s.do(http.MethodGet, "/auth/reset-password/"+strings.Repeat("0", 64), "", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), "token", decodeMap(s.T(), rr)["field"])
}

func (s *ServerTestSuite) TestDeleteAccount() {
	c := s.register("erin@example.com")

	rr := s.do(http.MethodDelete, "/profile", `{"password":"bad"}`, c)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodDelete, "/profile", `{"password":"secret1"}`, c)
	assert.Equal(s.T(), http.StatusNoContent, rr.Code)
	assert.Equal(s.T(), http.StatusUnauthorized, s.do(http.MethodGet, "/profile", "", c).Code)
}

func (s *ServerTestSuite) TestTransactionLifecycle() {
	c := s.register("frank@example.com")
	other := s.register("grace@example.com")

	rr := s.do(http.MethodPost, "/transactions", `{"type":"expense","category":"Food","amount":"12,50","date":"2025-03-05","description":"lunch"}`, c)
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeMap(s.T(), rr)
	assert.Equal(s.T(), 12.5, created["amount"])
	assert.Equal(s.T(), "2025-03-05", created["date"])
	id := int64(created["id"].(float64))
	path := "/transactions/" + strconv.FormatInt(id, 10)

	assert.Equal(s.T(), http.StatusOK, s.do(http.MethodGet, path, "", c).Code)
	assert.Equal(s.T(), http.StatusNotFound, s.do(http.MethodGet, path, "", other).Code, "other users see not found")
	assert.Equal(s.T(), http.StatusNotFound, s.do(http.MethodDelete, path, "", other).Code)

	rr = s.do(http.MethodPut, path, `{"amount":20,"newCategory":"Groceries"}`, c)
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeMap(s.T(), rr)
	assert.Equal(s.T(), 20.0, updated["amount"])
	assert.Equal(s.T(), "Groceries", updated["category"])
	assert.Equal(s.T(), "lunch", updated["description"])

	assert.Equal(s.T(), http.StatusBadRequest, s.do(http.MethodGet, "/transactions/abc", "", c).Code)
	assert.Equal(s.T(), http.StatusNoContent, s.do(http.MethodDelete, path, "", c).Code)
	assert.Equal(s.T(), http.StatusNotFound, s.do(http.MethodGet, path, "", c).Code)
}

func (s *ServerTestSuite) TestTransactionListAndCategories() {
	c := s.register("heidi@example.com")
	for _, body := range []string{
		`{"type":"income","category":"Salary","amount":"2000","date":"2025-03-01"}`,
		`{"type":"expense","category":"Food","amount":"30","date":"2025-03-02"}`,
		`{"type":"expense","category":"Rent","amount":"800","date":"2025-03-03"}`,
	} {
		require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/transactions", body, c).Code)
	}

	rr := s.do(http.MethodGet, "/transactions?type=expense&limit=1&sortBy=amount&sortOrder=desc", "", c)
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	body := decodeMap(s.T(), rr)
	txs := body["transactions"].([]any)
	require.Len(s.T(), txs, 1)
	assert.Equal(s.T(), "Rent", txs[0].(map[string]any)["category"])
	pagination := body["pagination"].(map[string]any)
	assert.Equal(s.T(), 2.0, pagination["total"])
	assert.Equal(s.T(), 2.0, pagination["totalPages"])
	stats := body["stats"].(map[string]any)
	assert.Equal(s.T(), 830.0, stats["expenseTotal"])

	assert.Equal(s.T(), http.StatusBadRequest, s.do(http.MethodGet, "/transactions?from=yesterday", "", c).Code)

	rr = s.do(http.MethodGet, "/transactions/categories", "", c)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.JSONEq(s.T(), `{"income":["Salary"],"expense":["Food","Rent"],"all":["Food","Rent","Salary"]}`, rr.Body.String())

	rr = s.do(http.MethodGet, "/transactions/categories/income", "", c)
	assert.JSONEq(s.T(), `{"categories":["Salary"]}`, rr.Body.String())
	assert.Equal(s.T(), http.StatusBadRequest, s.do(http.MethodGet, "/transactions/categories/transfer", "", c).Code)
}

func (s *ServerTestSuite) TestExport() {
	c := s.register("ivan@example.com")
	require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/transactions",
		`{"type":"expense","category":"Food","amount":"9.99","date":"2025-03-02","description":"pizza, large"}`, c).Code)

	rr := s.do(http.MethodGet, "/transactions/export", "", c)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(s.T(), `attachment; filename="transactions_2025-03-20.csv"`, rr.Header().Get("Content-Disposition"))
	assert.True(s.T(), strings.HasPrefix(rr.Body.String(), "\uFEFFDate,Type,Category,Description,Amount"))
	assert.Contains(s.T(), rr.Body.String(), `"pizza, large"`)

	rr = s.do(http.MethodPost, "/transactions/export/sheets", "", c)
	assert.Equal(s.T(), http.StatusServiceUnavailable, rr.Code)
}

func (s *ServerTestSuite) TestBudgets() {
	c := s.register("judy@example.com")
	require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/transactions",
		`{"type":"expense","category":"Food","amount":"40","date":"2025-03-05"}`, c).Code)

	rr := s.do(http.MethodPost, "/budgets", `{"category":"Food","limitAmount":"100","month":3,"year":2025}`, c)
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())
	b := decodeMap(s.T(), rr)
	assert.Equal(s.T(), 40.0, b["spentAmount"])
	assert.Equal(s.T(), 60.0, b["remainingAmount"])
	assert.Equal(s.T(), false, b["isOverBudget"])
	path := "/budgets/" + strconv.FormatInt(int64(b["id"].(float64)), 10)

	rr = s.do(http.MethodPost, "/budgets", `{"category":"Food","limitAmount":"50","month":3,"year":2025}`, c)
	assert.Equal(s.T(), http.StatusConflict, rr.Code)

	rr = s.do(http.MethodPost, "/budgets", `{"category":"Food","limitAmount":"50","month":3,"year":2019}`, c)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
	assert.Equal(s.T(), "year", decodeMap(s.T(), rr)["field"])

	rr = s.do(http.MethodGet, path+"/stats", "", c)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), 40.0, decodeMap(s.T(), rr)["percentageUsed"])

	rr = s.do(http.MethodGet, "/budgets/dashboard", "", c)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	d := decodeMap(s.T(), rr)
	assert.Equal(s.T(), 1.0, d["totalBudgets"])
	assert.Equal(s.T(), 3.0, d["month"])
	assert.Equal(s.T(), 60.0, d["totalRemaining"])

	rr = s.do(http.MethodPut, path, `{"limitAmount":"30"}`, c)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), true, decodeMap(s.T(), rr)["isOverBudget"])

	rr = s.do(http.MethodGet, "/budgets", "", c)
	assert.Len(s.T(), decodeMap(s.T(), rr)["budgets"], 1)

	assert.Equal(s.T(), http.StatusNoContent, s.do(http.MethodDelete, path, "", c).Code)
	assert.Equal(s.T(), http.StatusNotFound, s.do(http.MethodGet, path, "", c).Code)
}

func (s *ServerTestSuite) TestSavingsAndDashboard() {
	c := s.register("ken@example.com")

	rr := s.do(http.MethodPost, "/savings", `{"title":"Trip","targetAmount":"1000","currentAmount":"250","deadline":"2025-12-31"}`, c)
	require.Equal(s.T(), http.StatusCreated, rr.Code, rr.Body.String())
	g := decodeMap(s.T(), rr)
	assert.Equal(s.T(), 25.0, g["progress"])
	path := "/savings/" + strconv.FormatInt(int64(g["id"].(float64)), 10)

	rr = s.do(http.MethodPut, path, `{"currentAmount":"500"}`, c)
	require.Equal(s.T(), http.StatusOK, rr.Code)
	assert.Equal(s.T(), 50.0, decodeMap(s.T(), rr)["progress"])

	rr = s.do(http.MethodGet, "/savings", "", c)
	assert.Len(s.T(), decodeMap(s.T(), rr)["goals"], 1)

	require.Equal(s.T(), http.StatusCreated, s.do(http.MethodPost, "/transactions",
		`{"type":"income","category":"Salary","amount":"1500","date":"2025-03-01"}`, c).Code)

	rr = s.do(http.MethodGet, "/dashboard?year=2025&month=3", "", c)
	require.Equal(s.T(), http.StatusOK, rr.Code, rr.Body.String())
	d := decodeMap(s.T(), rr)
	assert.Equal(s.T(), 1500.0, d["totals"].(map[string]any)["incomeTotal"])
	assert.Equal(s.T(), 50.0, d["savingsProgress"])
	assert.Len(s.T(), d["recentTransactions"], 1)

	assert.Equal(s.T(), http.StatusBadRequest, s.do(http.MethodGet, "/dashboard?month=14", "", c).Code)
	assert.Equal(s.T(), http.StatusNoContent, s.do(http.MethodDelete, path, "", c).Code)
}

func (s *ServerTestSuite) TestMethodNotAllowed() {
	rr := s.do(http.MethodPatch, "/transactions", "", nil)
	assert.Equal(s.T(), http.StatusMethodNotAllowed, rr.Code)
}

func (s *ServerTestSuite) TestSuspiciousRequestRejected() {
	rr := s.do(http.MethodGet, "/.env", "", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestMutationsAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})

	post := func() int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"x@example.com","password":"secret1"}`))
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusUnauthorized, post())
	assert.Equal(t, http.StatusUnauthorized, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "reads are not limited")
}
