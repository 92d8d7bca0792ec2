package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is one domain event on its way to Kafka. Key is the
// partition key; per-entity ordering is guaranteed by keying on the
// entity id.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
)

// NewMessage builds an event message with a generated event id. The
// payload is JSON-encoded; a marshal failure leaves Value nil and is
// rejected by the producer.
func NewMessage(eventType, key string, payload any) Message {
	msg := Message{
		Key:       key,
		Timestamp: time.Now().UTC(),
		Headers: map[string]string{
			HeaderEventID:       uuid.New().String(),
			HeaderEventType:     eventType,
			HeaderSchemaVersion: "1",
		},
	}
	msg.Headers[HeaderTimestamp] = msg.Timestamp.Format(time.RFC3339)

	if data, err := json.Marshal(payload); err == nil {
		msg.Value = data
	}
	return msg
}

func (m *Message) WithSource(source string) *Message {
	m.Headers[HeaderSource] = source
	return m
}

func (m *Message) EventID() string {
	return m.Headers[HeaderEventID]
}

func (m *Message) EventType() string {
	return m.Headers[HeaderEventType]
}
