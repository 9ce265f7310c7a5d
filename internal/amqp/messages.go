package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BudgetChangedMessage tells consumers that the stored budget changed.
// It carries no amounts; consumers reload the snapshot from the database.
type BudgetChangedMessage struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Period    string    `json:"period,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetChangedMessage creates a message with a fresh ID. Period is empty
// for operations that are not tied to one cutoff.
func NewBudgetChangedMessage(operation, period string) *BudgetChangedMessage {
	return &BudgetChangedMessage{
		ID:        uuid.NewString(),
		Operation: operation,
		Period:    period,
		Timestamp: time.Now().UTC(),
	}
}

func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetChangedMessageFromJSON(data []byte) (*BudgetChangedMessage, error) {
	var msg BudgetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
