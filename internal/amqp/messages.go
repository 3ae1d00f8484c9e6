package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivityMessage carries one activity-log entry to the worker that writes
// it to the remote log.
type ActivityMessage struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Action      string    `json:"accion"`
	Description string    `json:"descripcion"`
	Timestamp   time.Time `json:"timestamp"`
}

var errMissingEmail = errors.New("activity message without email")

func NewActivityMessage(email, action, description string) *ActivityMessage {
	return &ActivityMessage{
		ID:          uuid.NewString(),
		Email:       strings.TrimSpace(email),
		Action:      action,
		Description: description,
		Timestamp:   time.Now(),
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON decodes a message and rejects ones without an email.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Email) == "" {
		return nil, errMissingEmail
	}
	return &msg, nil
}
