// Package notify delivers out-of-band user notifications. Delivery is
// best effort: a failed send is reported in the Result, never raised.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"budgettracker/internal/amqp"
)

// PasswordReset is the content of a reset-link notification.
type PasswordReset struct {
	Email     string
	Name      string
	Link      string
	ExpiresAt time.Time
}

// Result reports whether a notification left the process.
type Result struct {
	Delivered bool
	Err       error
}

type Sender interface {
	SendPasswordReset(ctx context.Context, n PasswordReset) Result
}

// ErrNotDelivered is reported by senders that only record a notification.
var ErrNotDelivered = errors.New("notification recorded locally, no delivery channel configured")

// LogSender records notifications in the log instead of delivering them.
// It is the fallback when no broker is configured, so it never reports a
// delivery and keeps the reset token out of anything above debug level.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendPasswordReset(ctx context.Context, n PasswordReset) Result {
	s.logger.InfoContext(ctx, "Password reset link generated",
		"email", n.Email,
		"link", redactLink(n.Link),
		"expires_at", n.ExpiresAt)
	s.logger.DebugContext(ctx, "Password reset link", "link", n.Link)
	return Result{Err: ErrNotDelivered}
}

// redactLink masks the last path segment, which carries the token.
func redactLink(link string) string {
	i := strings.LastIndex(link, "/")
	if i < 0 || i == len(link)-1 {
		return link
	}
	return link[:i+1] + "[redacted]"
}

// Publisher is implemented by *amqp.Client.
type Publisher interface {
	PublishPasswordReset(ctx context.Context, msg *amqp.PasswordResetMessage) error
	Close() error
}

// QueueSender hands notifications to a message broker for a mail relay
// to deliver.
type QueueSender struct {
	publisher Publisher
}

func NewQueueSender(p Publisher) *QueueSender {
	return &QueueSender{publisher: p}
}

func (s *QueueSender) SendPasswordReset(ctx context.Context, n PasswordReset) Result {
	msg := amqp.NewPasswordResetMessage(n.Email, n.Name, n.Link, n.ExpiresAt)
	if err := s.publisher.PublishPasswordReset(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to queue password reset notification",
			"email", n.Email,
			"error", err)
		return Result{Err: err}
	}
	return Result{Delivered: true}
}

func (s *QueueSender) Close() error {
	return s.publisher.Close()
}
