package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgettracker/internal/log"
	"budgettracker/internal/middleware/ratelimit"
	"budgettracker/internal/middleware/security"
	"budgettracker/internal/middleware/trace"
	"budgettracker/internal/services"
)

const readyTimeout = 5 * time.Second

// Services are the operations the server exposes.
type Services struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Savings      *services.SavingsService
	Dashboard    *services.DashboardService
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	SecureCookies      bool
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready is checked by /readyz. Nil means always ready.
	Ready Pinger
}

// Server wraps http.Server with the routes and middleware of the API.
type Server struct {
	http.Server
	svc  Services
	opts Options

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	events       *log.StructuredLogger
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		svc:      svc,
		opts:     opts,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		events:   log.NewStructuredLogger(opts.Logger.WithComponent(log.ComponentHTTP)),
		now:      time.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, opts.Logger)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError("rate limit exceeded, try again later").Write(w)
	}
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, onLimit,
		http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestID)(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(opts.Logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("POST /auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("GET /auth/reset-password/{token}", s.handleShowReset)
	mux.HandleFunc("POST /auth/reset-password/{token}", s.handleResetPassword)

	mux.HandleFunc("GET /profile", s.requireAuth(s.handleProfile))
	mux.HandleFunc("PUT /profile", s.requireAuth(s.handleUpdateProfile))
	mux.HandleFunc("PUT /profile/password", s.requireAuth(s.handleChangePassword))
	mux.HandleFunc("DELETE /profile", s.requireAuth(s.handleDeleteAccount))

	mux.HandleFunc("GET /dashboard", s.requireAuth(s.handleDashboard))

	mux.HandleFunc("GET /transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions/export", s.requireAuth(s.handleExportCSV))
	mux.HandleFunc("POST /transactions/export/sheets", s.requireAuth(s.handleExportSheet))
	mux.HandleFunc("GET /transactions/categories", s.requireAuth(s.handleCategories))
	mux.HandleFunc("GET /transactions/categories/{type}", s.requireAuth(s.handleCategoriesByType))
	mux.HandleFunc("GET /transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("PUT /transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("GET /budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("POST /budgets", s.requireAuth(s.handleCreateBudget))
	mux.HandleFunc("GET /budgets/dashboard", s.requireAuth(s.handleBudgetDashboard))
	mux.HandleFunc("GET /budgets/{id}", s.requireAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /budgets/{id}", s.requireAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /budgets/{id}", s.requireAuth(s.handleDeleteBudget))
	mux.HandleFunc("GET /budgets/{id}/stats", s.requireAuth(s.handleBudgetStats))

	mux.HandleFunc("GET /savings", s.requireAuth(s.handleListGoals))
	mux.HandleFunc("POST /savings", s.requireAuth(s.handleCreateGoal))
	mux.HandleFunc("GET /savings/{id}", s.requireAuth(s.handleGetGoal))
	mux.HandleFunc("PUT /savings/{id}", s.requireAuth(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /savings/{id}", s.requireAuth(s.handleDeleteGoal))
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.opts.Ready.Ping(ctx); err != nil {
			s.events.LogError(ctx, "Readiness check failed", err, log.ErrorTypeDatabase, log.OpRead, nil)
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	OK(map[string]string{"status": "ready"}).Write(w)
}
