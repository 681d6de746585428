package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"budgettracker/internal/cache"
	"budgettracker/internal/core"
	"budgettracker/internal/export"
	"budgettracker/internal/session"
	"budgettracker/internal/storage"
)

var ErrExportDisabled = errors.New("spreadsheet export is not configured")

// SheetExporter mirrors an export into an external spreadsheet.
type SheetExporter interface {
	Export(ctx context.Context, txs []core.Transaction) (string, error)
}

// TransactionQuery selects one page of a user's transactions.
type TransactionQuery struct {
	Filter core.TransactionFilter
	Order  core.Order
	Page   core.Page
}

type TransactionPage struct {
	Transactions []core.Transaction
	Stats        core.TransactionStats
	Page         int
	Limit        int
	TotalPages   int
}

const (
	categoryCacheSize = 1024
	categoryCacheTTL  = 5 * time.Minute
)

type TransactionService struct {
	storage    *storage.SQLiteRepository
	exporter   SheetExporter
	categories *cache.LRU[int64, core.Categories]

	// genMu guards generations and orders cache fills after invalidations.
	genMu       sync.Mutex
	generations map[int64]uint64
}

// NewTransactionService builds the service. exporter may be nil.
func NewTransactionService(repo *storage.SQLiteRepository, exporter SheetExporter) *TransactionService {
	return &TransactionService{
		storage:    repo,
		exporter:   exporter,
		categories:  cache.NewLRU[int64, core.Categories](categoryCacheSize, categoryCacheTTL),
		generations: make(map[int64]uint64),
	}
}

// invalidate drops the cached categories of userID and voids any fill
// that read the store before this call.
func (s *TransactionService) invalidate(userID int64) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[userID]++
	s.categories.Delete(userID)
}

func (s *TransactionService) generation(userID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

// fill caches cats unless userID was invalidated since gen was read.
func (s *TransactionService) fill(userID int64, gen uint64, cats core.Categories) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[userID] != gen {
		return false
	}
	s.categories.Set(userID, cats)
	return true
}

// CleanExpired drops stale entries from the category cache.
func (s *TransactionService) CleanExpired() int {
	return s.categories.CleanExpired()
}

// Create records t for the session's user. A zero date means today.
func (s *TransactionService) Create(ctx context.Context, sess session.Session, t core.Transaction) (core.Transaction, error) {
	if err := requireSession(sess); err != nil {
		return core.Transaction{}, err
	}
	t.UserID = sess.UserID
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	if t.Date.IsZero() {
		t.Date = core.DateOf(timeNow())
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(sess.UserID)
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, sess session.Session, id int64) (core.Transaction, error) {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := owned(sess, t.UserID, "transaction", id); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, sess session.Session, id int64, upd core.TransactionUpdate) (core.Transaction, error) {
	t, err := s.Get(ctx, sess, id)
	if err != nil {
		return core.Transaction{}, err
	}
	t = upd.Apply(t)
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.storage.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(sess.UserID)
	return s.storage.GetTransaction(ctx, id)
}

func (s *TransactionService) Delete(ctx context.Context, sess session.Session, id int64) error {
	if _, err := s.Get(ctx, sess, id); err != nil {
		return err
	}
	if err := s.storage.DeleteTransaction(ctx, sess.UserID, id); err != nil {
		return err
	}
	s.invalidate(sess.UserID)
	return nil
}

// List returns one page of matches together with stats over every match.
func (s *TransactionService) List(ctx context.Context, sess session.Session, q TransactionQuery) (TransactionPage, error) {
	if err := requireSession(sess); err != nil {
		return TransactionPage{}, err
	}
	if q.Page.Limit <= 0 {
		q.Page = core.NewPage(1, core.DefaultPageLimit)
	}
	if !q.Order.Field.Valid() {
		q.Order = core.DefaultOrder()
	}

	stats, err := s.storage.TransactionStats(ctx, sess.UserID, q.Filter)
	if err != nil {
		return TransactionPage{}, err
	}
	txs, err := s.storage.ListTransactions(ctx, sess.UserID, q.Filter, q.Order, q.Page)
	if err != nil {
		return TransactionPage{}, err
	}

	return TransactionPage{
		Transactions: txs,
		Stats:        stats,
		Page:         q.Page.Number(),
		Limit:        q.Page.Limit,
		TotalPages:   (stats.Count + q.Page.Limit - 1) / q.Page.Limit,
	}, nil
}

// Categories groups the distinct categories the user has recorded.
func (s *TransactionService) Categories(ctx context.Context, sess session.Session) (core.Categories, error) {
	if err := requireSession(sess); err != nil {
		return core.Categories{}, err
	}
	cats, err := s.loadCategories(ctx, sess.UserID)
	if err != nil {
		return core.Categories{}, err
	}
	return core.Categories{
		Income:  slices.Clone(cats.Income),
		Expense: slices.Clone(cats.Expense),
		All:     slices.Clone(cats.All),
	}, nil
}

func (s *TransactionService) CategoriesByType(ctx context.Context, sess session.Session, typ core.TransactionType) ([]string, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, core.Invalid("type", core.ErrInvalidType)
	}
	cats, err := s.loadCategories(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if typ == core.Income {
		return slices.Clone(cats.Income), nil
	}
	return slices.Clone(cats.Expense), nil
}

func (s *TransactionService) loadCategories(ctx context.Context, userID int64) (core.Categories, error) {
	if cats, ok := s.categories.Get(userID); ok {
		return cats, nil
	}
	gen := s.generation(userID)
	var (
		out core.Categories
		err error
	)
	if out.Income, err = s.storage.Categories(ctx, userID, core.Income); err != nil {
		return core.Categories{}, err
	}
	if out.Expense, err = s.storage.Categories(ctx, userID, core.Expense); err != nil {
		return core.Categories{}, err
	}
	if out.All, err = s.storage.Categories(ctx, userID, ""); err != nil {
		return core.Categories{}, err
	}
	s.fill(userID, gen, out)
	return out, nil
}

// Matching returns every transaction matching f, newest first.
func (s *TransactionService) Matching(ctx context.Context, sess session.Session, f core.TransactionFilter) ([]core.Transaction, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.storage.ListTransactions(ctx, sess.UserID, f, core.DefaultOrder(), core.Page{})
}

// ExportCSV writes every transaction matching f to w.
func (s *TransactionService) ExportCSV(ctx context.Context, sess session.Session, f core.TransactionFilter, w io.Writer) (int, error) {
	txs, err := s.Matching(ctx, sess, f)
	if err != nil {
		return 0, err
	}
	if err := export.WriteCSV(w, txs); err != nil {
		return 0, err
	}
	return len(txs), nil
}

// ExportSheet mirrors the matching transactions into the configured
// spreadsheet and returns the written range.
func (s *TransactionService) ExportSheet(ctx context.Context, sess session.Session, f core.TransactionFilter) (string, error) {
	if s.exporter == nil {
		return "", ErrExportDisabled
	}
	txs, err := s.Matching(ctx, sess, f)
	if err != nil {
		return "", err
	}
	ref, err := s.exporter.Export(ctx, txs)
	if err != nil {
		slog.ErrorContext(ctx, "Spreadsheet export failed", "user_id", sess.UserID, "error", err)
		return "", fmt.Errorf("export to spreadsheet: %w", err)
	}
	return ref, nil
}
