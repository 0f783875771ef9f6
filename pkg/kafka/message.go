package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is a single event to publish, with routing key and headers.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Header keys stamped on every published event.
const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderSource    = "source"
	HeaderTimestamp = "timestamp"
)

// MessageBuilder provides a fluent interface for building messages.
type MessageBuilder struct {
	msg        Message
	encodeFail bool
}

func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		msg: Message{
			Headers:   make(map[string]string),
			Timestamp: time.Now(),
		},
	}
}

// WithKey sets the partition key so events for one reservation group stay
// ordered.
func (mb *MessageBuilder) WithKey(key string) *MessageBuilder {
	mb.msg.Key = key
	return mb
}

// WithValue JSON-encodes the payload.
func (mb *MessageBuilder) WithValue(value any) *MessageBuilder {
	data, err := json.Marshal(value)
	if err != nil {
		mb.encodeFail = true
		return mb
	}
	mb.msg.Value = data
	return mb
}

func (mb *MessageBuilder) WithEventID(eventID string) *MessageBuilder {
	if eventID == "" {
		eventID = uuid.New().String()
	}
	mb.msg.Headers[HeaderEventID] = eventID
	return mb
}

func (mb *MessageBuilder) WithEventType(eventType string) *MessageBuilder {
	mb.msg.Headers[HeaderEventType] = eventType
	return mb
}

func (mb *MessageBuilder) WithSource(source string) *MessageBuilder {
	mb.msg.Headers[HeaderSource] = source
	return mb
}

func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	mb.msg.Headers[key] = value
	return mb
}

// Build returns the constructed message.
func (mb *MessageBuilder) Build() (Message, bool) {
	if _, ok := mb.msg.Headers[HeaderEventID]; !ok {
		mb.msg.Headers[HeaderEventID] = uuid.New().String()
	}
	mb.msg.Headers[HeaderTimestamp] = mb.msg.Timestamp.UTC().Format(time.RFC3339)
	return mb.msg, !mb.encodeFail
}
