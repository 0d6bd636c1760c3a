package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names the change carried by a TransactionEvent.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// TransactionEvent is a lightweight change notification. It carries only ids;
// consumers fetch the current record from the store.
type TransactionEvent struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event with a fresh id and the current time.
func NewTransactionEvent(kind EventKind, transactionID, userID string) *TransactionEvent {
	return &TransactionEvent{
		ID:            uuid.NewString(),
		Kind:          kind,
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Kind.IsValid() {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.TransactionID == "" {
		return nil, fmt.Errorf("event %s has no transaction id", ev.ID)
	}
	return &ev, nil
}
