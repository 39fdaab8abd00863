package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidMessage = errors.New("invalid records changed message")

// RecordsChangedMessage announces that the stored records were replaced.
// Consumers drop whatever they derived from the previous version.
type RecordsChangedMessage struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordsChangedMessage creates a message with a fresh id.
func NewRecordsChangedMessage(source, version string) *RecordsChangedMessage {
	return &RecordsChangedMessage{
		ID:        uuid.NewString(),
		Source:    source,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordsChangedMessageFromJSON decodes a message; an id is required.
func RecordsChangedMessageFromJSON(data []byte) (*RecordsChangedMessage, error) {
	var msg RecordsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	return &msg, nil
}
