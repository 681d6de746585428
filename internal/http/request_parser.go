// Package http is the JSON transport over the services package.
//
// This file turns query strings, path values and JSON bodies into typed,
// validated inputs. Nothing past this boundary sees raw strings.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/services"
)

const maxBodyBytes = 1 << 20

var (
	errEmptyBody  = errors.New("request body is required")
	errInvalidID  = errors.New("must be a positive integer")
	errBadDecimal = errors.New("must be a decimal number")
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month from the query, defaulting each
// to the current one. A month outside 1..12 is rejected; unparsable
// values fall back to the default.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}
	if params.Month < 1 || params.Month > 12 {
		return MonthParams{}, core.Invalid("month", core.ErrInvalidMonth)
	}
	return params, nil
}

// pathID reads the {id} path value.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid("id", errInvalidID)
	}
	return id, nil
}

// ParseTransactionFilter reads type, category, search, from and to.
func ParseTransactionFilter(query url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			return core.TransactionFilter{}, core.Invalid("type", err)
		}
		f.Type = typ
	}
	f.Category = sanitizeInput(query.Get("category"))
	f.Search = sanitizeInput(query.Get("search"))

	var err error
	if f.From, err = optionalDate(query, "from"); err != nil {
		return core.TransactionFilter{}, err
	}
	if f.To, err = optionalDate(query, "to"); err != nil {
		return core.TransactionFilter{}, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return core.TransactionFilter{}, core.Invalid("to", errors.New("must not be before from"))
	}
	return f, nil
}

// ParseTransactionQuery adds sortBy, sortOrder, page and limit to the
// filter. Unknown sort fields fall back to newest first.
func ParseTransactionQuery(query url.Values) (services.TransactionQuery, error) {
	f, err := ParseTransactionFilter(query)
	if err != nil {
		return services.TransactionQuery{}, err
	}

	order := core.DefaultOrder()
	if v := core.TransactionField(strings.ToLower(strings.TrimSpace(query.Get("sortBy")))); v.Valid() {
		order.Field = v
	}
	switch strings.ToLower(strings.TrimSpace(query.Get("sortOrder"))) {
	case "asc":
		order.Desc = false
	case "desc":
		order.Desc = true
	}

	page, _ := strconv.Atoi(strings.TrimSpace(query.Get("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(query.Get("limit")))

	return services.TransactionQuery{
		Filter: f,
		Order:  order,
		Page:   core.NewPage(page, limit),
	}, nil
}

func optionalDate(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid(key, errors.New("must be a YYYY-MM-DD date"))
	}
	return d, nil
}

// decodeJSON reads one JSON object from r into dst, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Invalid("body", fmt.Errorf("larger than %d bytes", tooLarge.Limit))
		}
		return core.Invalid("body", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return core.Invalid("body", errEmptyBody)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.Invalid("body", jsonProblem(err))
	}
	if dec.More() {
		return core.Invalid("body", errors.New("must contain a single JSON object"))
	}
	return nil
}

func jsonProblem(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Errorf("field %s has the wrong type", typeErr.Field)
	}
	return errors.New(strings.TrimPrefix(err.Error(), "json: "))
}

// decimalInput accepts an amount as a JSON number or string, with either
// a dot or a comma separator.
type decimalInput string

func (d *decimalInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = decimalInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errBadDecimal
	}
	*d = decimalInput(n.String())
	return nil
}

func (d *decimalInput) positive(field string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(string(*d))
	if err != nil {
		return core.Money{}, core.Invalid(field, core.ErrInvalidAmount)
	}
	return core.Money{Cents: cents}, nil
}

func (d *decimalInput) nonNegative(field string) (core.Money, error) {
	cents, err := core.ParseNonNegativeCents(string(*d))
	if err != nil {
		return core.Money{}, core.Invalid(field, core.ErrInvalidAmount)
	}
	return core.Money{Cents: cents}, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := sanitizeInput(*p)
	return &v
}

func parseDateField(field, v string) (core.Date, error) {
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid(field, errors.New("must be a YYYY-MM-DD date"))
	}
	return d, nil
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Currency        string `json:"currency"`
}

func (req registerRequest) registration() services.Registration {
	return services.Registration{
		Name:            sanitizeInput(req.Name),
		Email:           sanitizeInput(req.Email),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Currency:        sanitizeInput(req.Currency),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type profileRequest struct {
	Name        *string           `json:"name"`
	Email       *string           `json:"email"`
	Currency    *string           `json:"currency"`
	Preferences *core.Preferences `json:"preferences"`
}

func (req profileRequest) update() core.ProfileUpdate {
	return core.ProfileUpdate{
		Name:        trimmed(req.Name),
		Email:       trimmed(req.Email),
		Currency:    trimmed(req.Currency),
		Preferences: req.Preferences,
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

// transactionRequest is the body of a transaction create or edit. A
// non-blank newCategory replaces category.
type transactionRequest struct {
	Type        *string       `json:"type"`
	Category    *string       `json:"category"`
	NewCategory *string       `json:"newCategory"`
	Amount      *decimalInput `json:"amount"`
	Date        *string       `json:"date"`
	Description *string       `json:"description"`
}

func (req transactionRequest) category() *string {
	if nc := trimmed(req.NewCategory); nc != nil && *nc != "" {
		return nc
	}
	return trimmed(req.Category)
}

func (req transactionRequest) update() (core.TransactionUpdate, error) {
	var upd core.TransactionUpdate
	if req.Type != nil {
		typ, err := core.ParseTransactionType(*req.Type)
		if err != nil {
			return core.TransactionUpdate{}, core.Invalid("type", err)
		}
		upd.Type = &typ
	}
	upd.Category = req.category()
	if req.Amount != nil {
		m, err := req.Amount.positive("amount")
		if err != nil {
			return core.TransactionUpdate{}, err
		}
		upd.Amount = &m
	}
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		d, err := parseDateField("date", *req.Date)
		if err != nil {
			return core.TransactionUpdate{}, err
		}
		upd.Date = &d
	}
	upd.Description = trimmed(req.Description)
	return upd, nil
}

// transaction builds a new transaction. Missing fields stay zero and are
// caught by validation; a missing date means today.
func (req transactionRequest) transaction() (core.Transaction, error) {
	if req.Type == nil {
		return core.Transaction{}, core.Invalid("type", core.ErrInvalidType)
	}
	if req.Amount == nil {
		return core.Transaction{}, core.Invalid("amount", core.ErrInvalidAmount)
	}
	upd, err := req.update()
	if err != nil {
		return core.Transaction{}, err
	}
	return upd.Apply(core.Transaction{}), nil
}

type budgetRequest struct {
	Category    *string       `json:"category"`
	LimitAmount *decimalInput `json:"limitAmount"`
	Month       *int          `json:"month"`
	Year        *int          `json:"year"`
}

func (req budgetRequest) update() (core.BudgetUpdate, error) {
	upd := core.BudgetUpdate{
		Category: trimmed(req.Category),
		Month:    req.Month,
		Year:     req.Year,
	}
	if req.LimitAmount != nil {
		m, err := req.LimitAmount.positive("limitAmount")
		if err != nil {
			return core.BudgetUpdate{}, err
		}
		upd.Limit = &m
	}
	return upd, nil
}

func (req budgetRequest) budget() (core.Budget, error) {
	if req.LimitAmount == nil {
		return core.Budget{}, core.Invalid("limitAmount", core.ErrInvalidAmount)
	}
	upd, err := req.update()
	if err != nil {
		return core.Budget{}, err
	}
	return upd.Apply(core.Budget{}), nil
}

type savingsGoalRequest struct {
	Title         *string       `json:"title"`
	TargetAmount  *decimalInput `json:"targetAmount"`
	CurrentAmount *decimalInput `json:"currentAmount"`
	Deadline      *string       `json:"deadline"`
}

func (req savingsGoalRequest) update() (core.SavingsGoalUpdate, error) {
	upd := core.SavingsGoalUpdate{Title: trimmed(req.Title)}
	if req.TargetAmount != nil {
		m, err := req.TargetAmount.positive("targetAmount")
		if err != nil {
			return core.SavingsGoalUpdate{}, err
		}
		upd.Target = &m
	}
	if req.CurrentAmount != nil {
		m, err := req.CurrentAmount.nonNegative("currentAmount")
		if err != nil {
			return core.SavingsGoalUpdate{}, err
		}
		upd.Current = &m
	}
	if req.Deadline != nil {
		d, err := parseDateField("deadline", *req.Deadline)
		if err != nil {
			return core.SavingsGoalUpdate{}, err
		}
		upd.Deadline = &d
	}
	return upd, nil
}

func (req savingsGoalRequest) goal() (core.SavingsGoal, error) {
	if req.TargetAmount == nil {
		return core.SavingsGoal{}, core.Invalid("targetAmount", core.ErrInvalidAmount)
	}
	upd, err := req.update()
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return upd.Apply(core.SavingsGoal{}), nil
}
