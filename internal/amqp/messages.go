package amqp

import (
	"encoding/json"
	"time"

	"moneytracker/internal/core"
)

// RecordCreatedMessage announces that a record was accepted by the workspace.
// It identifies the page only; field values stay out of the broker.
type RecordCreatedMessage struct {
	Kind       string    `json:"kind"`
	RemoteID   string    `json:"remote_id"`
	HTTPStatus int       `json:"http_status"`
	Attempts   int       `json:"attempts"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewRecordCreatedMessage(kind core.RecordKind, res core.SubmissionResult) *RecordCreatedMessage {
	return &RecordCreatedMessage{
		Kind:       string(kind),
		RemoteID:   res.RemoteID,
		HTTPStatus: res.HTTPStatus,
		Attempts:   res.Attempts,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordCreatedMessageFromJSON creates a message from JSON bytes
func RecordCreatedMessageFromJSON(data []byte) (*RecordCreatedMessage, error) {
	var msg RecordCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
