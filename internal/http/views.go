package http

import (
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/services"
	"budgettracker/internal/session"
)

type userJSON struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Currency    string           `json:"currency"`
	Preferences core.Preferences `json:"preferences"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func userView(u core.User) userJSON {
	return userJSON{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Currency:    u.Currency,
		Preferences: u.Preferences,
		CreatedAt:   u.CreatedAt,
	}
}

type sessionJSON struct {
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Currency  string    `json:"currency"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func sessionView(sess session.Session) sessionJSON {
	return sessionJSON{
		UserID:    sess.UserID,
		Name:      sess.Display.Name,
		Email:     sess.Display.Email,
		Currency:  sess.Display.Currency,
		ExpiresAt: sess.ExpiresAt,
	}
}

type transactionJSON struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Amount      core.Money `json:"amount"`
	Date        core.Date  `json:"date"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func transactionView(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Type:        string(t.Type),
		Category:    t.Category,
		Amount:      t.Amount,
		Date:        t.Date,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func transactionViews(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionView(t))
	}
	return out
}

type transactionPageJSON struct {
	Transactions []transactionJSON     `json:"transactions"`
	Stats        core.TransactionStats `json:"stats"`
	Pagination   paginationJSON        `json:"pagination"`
}

type paginationJSON struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func transactionPageView(p services.TransactionPage) transactionPageJSON {
	return transactionPageJSON{
		Transactions: transactionViews(p.Transactions),
		Stats:        p.Stats,
		Pagination: paginationJSON{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      p.Stats.Count,
			TotalPages: p.TotalPages,
		},
	}
}

type budgetJSON struct {
	ID       int64      `json:"id"`
	Category string     `json:"category"`
	Limit    core.Money `json:"limitAmount"`
	Month    int        `json:"month"`
	Year     int        `json:"year"`
	core.BudgetStatus
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func budgetView(v services.BudgetView) budgetJSON {
	return budgetJSON{
		ID:           v.ID,
		Category:     v.Category,
		Limit:        v.Limit,
		Month:        v.Month,
		Year:         v.Year,
		BudgetStatus: v.Status,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func budgetViews(vs []services.BudgetView) []budgetJSON {
	out := make([]budgetJSON, 0, len(vs))
	for _, v := range vs {
		out = append(out, budgetView(v))
	}
	return out
}

type budgetDashboardJSON struct {
	Year           int          `json:"year"`
	Month          int          `json:"month"`
	TotalBudgets   int          `json:"totalBudgets"`
	TotalLimit     core.Money   `json:"totalLimit"`
	TotalSpent     core.Money   `json:"totalSpent"`
	TotalRemaining core.Money   `json:"totalRemaining"`
	OverLimit      int          `json:"overLimit"`
	Budgets        []budgetJSON `json:"budgets"`
}

func budgetDashboardView(d services.BudgetDashboard) budgetDashboardJSON {
	return budgetDashboardJSON{
		Year:           d.Year,
		Month:          d.Month,
		TotalBudgets:   d.TotalBudgets,
		TotalLimit:     d.TotalLimit,
		TotalSpent:     d.TotalSpent,
		TotalRemaining: d.TotalRemaining,
		OverLimit:      d.OverLimit,
		Budgets:        budgetViews(d.Budgets),
	}
}

type goalJSON struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Target    core.Money `json:"targetAmount"`
	Current   core.Money `json:"currentAmount"`
	Deadline  core.Date  `json:"deadline"`
	Progress  float64    `json:"progress"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func goalView(v services.GoalView) goalJSON {
	return goalJSON{
		ID:        v.ID,
		Title:     v.Title,
		Target:    v.Target,
		Current:   v.Current,
		Deadline:  v.Deadline,
		Progress:  v.Progress,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func goalViews(vs []services.GoalView) []goalJSON {
	out := make([]goalJSON, 0, len(vs))
	for _, v := range vs {
		out = append(out, goalView(v))
	}
	return out
}

type overviewJSON struct {
	Year               int                `json:"year"`
	Month              int                `json:"month"`
	Totals             core.Totals        `json:"totals"`
	ActiveBudgets      int                `json:"activeBudgets"`
	Savings            core.SavingsTotals `json:"savings"`
	SavingsProgress    float64            `json:"savingsProgress"`
	RecentTransactions []transactionJSON  `json:"recentTransactions"`
}

func overviewView(o services.Overview) overviewJSON {
	return overviewJSON{
		Year:               o.Year,
		Month:              o.Month,
		Totals:             o.Totals,
		ActiveBudgets:      o.ActiveBudgets,
		Savings:            o.Savings,
		SavingsProgress:    o.SavingsProgress,
		RecentTransactions: transactionViews(o.RecentTransactions),
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
