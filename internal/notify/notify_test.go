package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"budgettracker/internal/amqp"
)

type fakePublisher struct {
	err    error
	sent   []*amqp.PasswordResetMessage
	closed bool
}

func (f *fakePublisher) PublishPasswordReset(_ context.Context, msg *amqp.PasswordResetMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestQueueSender(t *testing.T) {
	n := PasswordReset{Email: "ana@example.com", Name: "Ana", Link: "http://x/auth/reset-password/tok"}

	tests := []struct {
		name      string
		err       error
		delivered bool
	}{
		{"delivered", nil, true},
		{"broker down", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{err: tt.err}
			res := NewQueueSender(pub).SendPasswordReset(context.Background(), n)

			if res.Delivered != tt.delivered {
				t.Errorf("Delivered = %v, want %v", res.Delivered, tt.delivered)
			}
			if !errors.Is(res.Err, tt.err) {
				t.Errorf("Err = %v, want %v", res.Err, tt.err)
			}
			if tt.delivered && (len(pub.sent) != 1 || pub.sent[0].Link != n.Link) {
				t.Errorf("published %+v", pub.sent)
			}
		})
	}
}

func TestQueueSenderClose(t *testing.T) {
	pub := &fakePublisher{}
	if err := NewQueueSender(pub).Close(); err != nil || !pub.closed {
		t.Errorf("Close() = %v, closed = %v", err, pub.closed)
	}
}

func TestLogSender(t *testing.T) {
	tests := []struct {
		name     string
		level    slog.Level
		wantLink bool
	}{
		{"info keeps the token out of the log", slog.LevelInfo, false},
		{"debug records the full link", slog.LevelDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewLogSender(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.level})))

			res := s.SendPasswordReset(context.Background(), PasswordReset{Email: "ana@example.com", Link: "http://x/r/secrettok"})

			if res.Delivered {
				t.Error("Delivered = true, want false")
			}
			if !errors.Is(res.Err, ErrNotDelivered) {
				t.Errorf("Err = %v, want ErrNotDelivered", res.Err)
			}
			if !strings.Contains(buf.String(), "http://x/r/[redacted]") {
				t.Errorf("log output missing redacted link: %s", buf.String())
			}
			if got := strings.Contains(buf.String(), "secrettok"); got != tt.wantLink {
				t.Errorf("token in log = %v, want %v: %s", got, tt.wantLink, buf.String())
			}
		})
	}
}

func TestRedactLink(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:8080/auth/reset-password/abc123", "http://localhost:8080/auth/reset-password/[redacted]"},
		{"http://localhost:8080/", "http://localhost:8080/"},
		{"no-slash", "no-slash"},
	}
	for _, tt := range tests {
		if got := redactLink(tt.in); got != tt.want {
			t.Errorf("redactLink(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
