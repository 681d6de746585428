package core

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// TransactionField names a column transactions may be ordered by.
type TransactionField string

const (
	FieldDate      TransactionField = "date"
	FieldAmount    TransactionField = "amount"
	FieldCategory  TransactionField = "category"
	FieldType      TransactionField = "type"
	FieldCreatedAt TransactionField = "created_at"
)

func (f TransactionField) Valid() bool {
	switch f {
	case FieldDate, FieldAmount, FieldCategory, FieldType, FieldCreatedAt:
		return true
	}
	return false
}

// TransactionFilter selects a user's transactions. Zero fields match all.
// Category and Search are case-insensitive substring matches; From and To
// are inclusive.
type TransactionFilter struct {
	Type     TransactionType
	Category string
	Search   string
	From     Date
	To       Date
}

type Order struct {
	Field TransactionField
	Desc  bool
}

// DefaultOrder lists newest transactions first.
func DefaultOrder() Order {
	return Order{Field: FieldDate, Desc: true}
}

type Page struct {
	Limit  int
	Offset int
}

// NewPage converts a 1-based page number into a limit/offset pair,
// clamping both to sane bounds.
func NewPage(page, limit int) Page {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page < 1 {
		page = 1
	}
	return Page{Limit: limit, Offset: (page - 1) * limit}
}

// Number returns the 1-based page index.
func (p Page) Number() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// TransactionUpdate carries the fields of a partial transaction edit.
// Nil fields are left unchanged.
type TransactionUpdate struct {
	Type        *TransactionType
	Category    *string
	Amount      *Money
	Date        *Date
	Description *string
}

func (u TransactionUpdate) Apply(t Transaction) Transaction {
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	return t
}

type BudgetUpdate struct {
	Category *string
	Limit    *Money
	Month    *int
	Year     *int
}

func (u BudgetUpdate) Apply(b Budget) Budget {
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Limit != nil {
		b.Limit = *u.Limit
	}
	if u.Month != nil {
		b.Month = *u.Month
	}
	if u.Year != nil {
		b.Year = *u.Year
	}
	return b
}

type SavingsGoalUpdate struct {
	Title    *string
	Target   *Money
	Current  *Money
	Deadline *Date
}

func (u SavingsGoalUpdate) Apply(g SavingsGoal) SavingsGoal {
	if u.Title != nil {
		g.Title = *u.Title
	}
	if u.Target != nil {
		g.Target = *u.Target
	}
	if u.Current != nil {
		g.Current = *u.Current
	}
	if u.Deadline != nil {
		g.Deadline = *u.Deadline
	}
	return g
}

// ProfileUpdate carries editable account fields. Nil fields are unchanged.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	Currency    *string
	Preferences *Preferences
}

func (u ProfileUpdate) Apply(usr User) User {
	if u.Name != nil {
		usr.Name = *u.Name
	}
	if u.Email != nil {
		usr.Email = *u.Email
	}
	if u.Currency != nil {
		usr.Currency = *u.Currency
	}
	if u.Preferences != nil {
		usr.Preferences = *u.Preferences
	}
	return usr
}
