package core

// Totals is the income/expense roll-up of a set of transactions.
type Totals struct {
	Income  Money `json:"incomeTotal"`
	Expense Money `json:"expenseTotal"`
	Balance Money `json:"balance"`
}

// TransactionStats extends Totals with the number of matching rows.
type TransactionStats struct {
	Totals
	Count int `json:"count"`
}

// BudgetStatus holds the derived, never persisted, fields of a Budget.
type BudgetStatus struct {
	Spent          Money   `json:"spentAmount"`
	Remaining      Money   `json:"remainingAmount"`
	PercentageUsed float64 `json:"percentageUsed"`
	IsOverBudget   bool    `json:"isOverBudget"`
}

// Categories groups the distinct categories a user has recorded.
type Categories struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
	All     []string `json:"all"`
}

// SavingsTotals sums target and current amounts across goals.
type SavingsTotals struct {
	Target  Money `json:"totalTarget"`
	Current Money `json:"totalCurrent"`
	Count   int   `json:"count"`
}
