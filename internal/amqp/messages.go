package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	OperationUpsert = "upsert"
	OperationDelete = "delete"
)

// EventSyncMessage announces that an event changed. It carries only the id
// and version, consumers fetch the record from the database.
type EventSyncMessage struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEventSyncMessage creates an upsert message for the given version.
func NewEventSyncMessage(id string, version int64) *EventSyncMessage {
	return &EventSyncMessage{
		ID:        id,
		Version:   version,
		Operation: OperationUpsert,
		Timestamp: time.Now(),
	}
}

// NewEventDeleteMessage creates a delete message.
func NewEventDeleteMessage(id string) *EventSyncMessage {
	return &EventSyncMessage{
		ID:        id,
		Operation: OperationDelete,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventSyncMessageFromJSON decodes and checks a message. Messages from
// older producers without an operation are upserts.
func EventSyncMessageFromJSON(data []byte) (*EventSyncMessage, error) {
	var msg EventSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without event id")
	}
	switch msg.Operation {
	case "":
		msg.Operation = OperationUpsert
	case OperationUpsert, OperationDelete:
	default:
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	return &msg, nil
}
