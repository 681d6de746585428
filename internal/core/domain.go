package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Field limits shared by validation and the HTTP layer.
const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MinPasswordLength    = 6
	MaxCategoryLength    = 100
	MaxDescriptionLength = 255
	MinTitleLength       = 2
	MaxTitleLength       = 200
	MinBudgetYear        = 2020
	MaxBudgetYear        = 2100
	DefaultCurrency      = "EUR"
	MaxTransactionCents  = 99999999
)

const dateLayout = "2006-01-02"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Preferences holds the known user settings. Extra carries any
	// additional string-valued keys a client wants to keep.
	Preferences struct {
		Language      string            `json:"language"`
		Theme         string            `json:"theme"`
		Notifications bool              `json:"notifications"`
		Extra         map[string]string `json:"extra,omitempty"`
	}

	User struct {
		ID               int64
		Name             string
		Email            string
		PasswordHash     string
		Currency         string
		Preferences      Preferences
		ResetToken       string
		ResetTokenExpiry time.Time
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Type        TransactionType
		Category    string
		Amount      Money
		Date        Date
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Budget struct {
		ID        int64
		UserID    int64
		Category  string
		Limit     Money
		Month     int
		Year      int
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	SavingsGoal struct {
		ID        int64
		UserID    int64
		Title     string
		Target    Money
		Current   Money
		Deadline  Date
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("type must be income or expense")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCurrency    = errors.New("currency must be a 3-letter code")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrDescriptionTooLong = errors.New("description too long (max 255 characters)")
)

// DefaultPreferences returns the settings applied to a newly registered user.
func DefaultPreferences() Preferences {
	return Preferences{Language: "fr", Theme: "light", Notifications: true}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts "income" or "expense", case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// MonthRange returns the first and last calendar day of month/year.
func MonthRange(year, month int) (Date, Date) {
	first := NewDate(year, month, 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

func (u User) Validate() error {
	if err := ValidateName(u.Name); err != nil {
		return err
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if err := ValidateCurrency(u.Currency); err != nil {
		return err
	}
	return nil
}

// ValidateName checks the display name length in runes.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength || n > MaxNameLength {
		return Invalid("name", fmt.Errorf("must be between %d and %d characters", MinNameLength, MaxNameLength))
	}
	return nil
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return Invalid("email", ErrInvalidEmail)
	}
	return nil
}

func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return Invalid("currency", ErrInvalidCurrency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return Invalid("currency", ErrInvalidCurrency)
		}
	}
	return nil
}

// ValidatePassword checks a new password and its confirmation.
func ValidatePassword(password, confirmation string) error {
	if len(password) < MinPasswordLength {
		return Invalid("password", ErrPasswordTooShort)
	}
	if password != confirmation {
		return Invalid("confirmPassword", ErrPasswordMismatch)
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCategory(category string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(category))
	if n == 0 {
		return Invalid("category", ErrEmptyCategory)
	}
	if n > MaxCategoryLength {
		return Invalid("category", fmt.Errorf("too long (max %d characters)", MaxCategoryLength))
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return Invalid("type", ErrInvalidType)
	}
	if err := validateCategory(t.Category); err != nil {
		return err
	}
	if t.Amount.Cents <= 0 || t.Amount.Cents > MaxTransactionCents {
		return Invalid("amount", fmt.Errorf("%w: must be between 0.01 and 999999.99", ErrInvalidAmount))
	}
	if err := t.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return Invalid("description", ErrDescriptionTooLong)
	}
	return nil
}

func (b Budget) Validate() error {
	if err := validateCategory(b.Category); err != nil {
		return err
	}
	if err := b.Limit.Validate(); err != nil {
		return Invalid("limitAmount", err)
	}
	if b.Month < 1 || b.Month > 12 {
		return Invalid("month", ErrInvalidMonth)
	}
	if b.Year < MinBudgetYear || b.Year > MaxBudgetYear {
		return Invalid("year", fmt.Errorf("%w: must be between %d and %d", ErrInvalidYear, MinBudgetYear, MaxBudgetYear))
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(g.Title))
	if n < MinTitleLength || n > MaxTitleLength {
		return Invalid("title", fmt.Errorf("must be between %d and %d characters", MinTitleLength, MaxTitleLength))
	}
	if err := g.Target.Validate(); err != nil {
		return Invalid("targetAmount", err)
	}
	if g.Current.Cents < 0 {
		return Invalid("currentAmount", ErrInvalidAmount)
	}
	if err := g.Deadline.Validate(); err != nil {
		return Invalid("deadline", err)
	}
	return nil
}
