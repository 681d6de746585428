package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgettracker/internal/amqp"
	"budgettracker/internal/credential"
	"budgettracker/internal/export/sheets"
	apphttp "budgettracker/internal/http"
	"budgettracker/internal/notify"
	"budgettracker/internal/services"
	"budgettracker/internal/session"
	"budgettracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the store, runs migrations and wires the services.
// A broker that cannot be reached degrades to logged notifications; a
// configured spreadsheet that cannot be opened is an error.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	exporter, err := f.createExporter(ctx, config)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	notifier, closeNotifier := f.createNotifier(config)

	var opts []credential.Option
	if config.BcryptCost > 0 {
		opts = append(opts, credential.WithCost(config.BcryptCost))
	}
	creds := credential.NewManager(repo, opts...)
	sessions := session.NewManager(repo, config.SessionTTL)

	accounts := services.NewAccountService(repo, creds, sessions, notifier, config.PublicBaseURL)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"notifier", config.Notifier.String(),
		"sheets_export", exporter != nil)

	return &Result{
		Repo:        repo,
		Credentials: creds,
		Sessions:    sessions,
		Accounts:    accounts,
		Notifier:    notifier,
		Services: apphttp.Services{
			Accounts:     accounts,
			Transactions: services.NewTransactionService(repo, exporter),
			Budgets:      services.NewBudgetService(repo),
			Savings:      services.NewSavingsService(repo),
			Dashboard:    services.NewDashboardService(repo),
		},
		Cleanup: func() error {
			return errors.Join(closeNotifier(), repo.Close())
		},
	}, nil
}

func (f *DefaultFactory) createNotifier(config Config) (notify.Sender, func() error) {
	logSender := notify.NewLogSender(f.logger)
	noop := func() error { return nil }

	if config.Notifier != AMQPNotifier {
		return logSender, noop
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, logging notifications instead", "error", err)
		return logSender, noop
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	sender := notify.NewQueueSender(client)
	return sender, sender.Close
}

// createExporter returns a nil interface when export is not configured so
// the transaction service reports it as disabled.
func (f *DefaultFactory) createExporter(ctx context.Context, config Config) (services.SheetExporter, error) {
	if !config.SheetsEnabled() {
		return nil, nil
	}

	exporter, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
	}
	return exporter, nil
}
