package amqp

import (
	"encoding/json"
	"time"
)

// PasswordResetMessage carries what a mail relay needs to deliver a
// reset link. The token itself only travels inside Link.
type PasswordResetMessage struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPasswordResetMessage(email, name, link string, expiresAt time.Time) *PasswordResetMessage {
	return &PasswordResetMessage{
		Email:     email,
		Name:      name,
		Link:      link,
		ExpiresAt: expiresAt,
		Timestamp: time.Now(),
	}
}

func (m *PasswordResetMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PasswordResetMessageFromJSON(data []byte) (*PasswordResetMessage, error) {
	var msg PasswordResetMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
