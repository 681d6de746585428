package backend

import (
	"errors"
	"fmt"
	"time"

	"budgettracker/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath  string
	PublicBaseURL string
	SessionTTL    time.Duration
	BcryptCost    int

	Notifier     NotifierType
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Spreadsheet export is disabled when GoogleSpreadsheetID is empty.
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	notifier := LogNotifier
	if appConfig.AMQPEnabled() {
		notifier = AMQPNotifier
	}

	return Config{
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		PublicBaseURL: appConfig.PublicBaseURL,
		SessionTTL:    appConfig.SessionTTL,
		BcryptCost:    appConfig.BcryptCost,

		Notifier:     notifier,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid session TTL: %v", c.SessionTTL)
	}
	if !c.Notifier.IsValid() {
		return fmt.Errorf("invalid notifier type: %s", c.Notifier)
	}
	if c.Notifier == AMQPNotifier && c.AMQPURL == "" {
		return errors.New("AMQP URL is required for amqp notifier")
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		return errors.New("either GoogleServiceAccountJSON or GoogleServiceAccountFile must be provided for spreadsheet export")
	}
	return nil
}

// SheetsEnabled reports whether spreadsheet export is configured.
func (c Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}
