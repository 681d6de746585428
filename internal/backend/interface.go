package backend

import (
	"context"

	"budgettracker/internal/credential"
	apphttp "budgettracker/internal/http"
	"budgettracker/internal/notify"
	"budgettracker/internal/services"
	"budgettracker/internal/session"
	"budgettracker/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds everything a process needs once the store is open.
type Result struct {
	Repo        *storage.SQLiteRepository
	Credentials *credential.Manager
	Sessions    *session.Manager
	Accounts    *services.AccountService
	Notifier    notify.Sender
	Services    apphttp.Services
	Cleanup     CleanupFunc
}

// Factory builds the service graph from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// NotifierType selects how password reset notifications leave the process.
type NotifierType string

const (
	LogNotifier  NotifierType = "log"
	AMQPNotifier NotifierType = "amqp"
)

// String implements fmt.Stringer
func (nt NotifierType) String() string {
	return string(nt)
}

// IsValid returns true if the notifier type is valid
func (nt NotifierType) IsValid() bool {
	switch nt {
	case LogNotifier, AMQPNotifier:
		return true
	default:
		return false
	}
}
