package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// MessageVersion is bumped when the envelope changes shape.
const MessageVersion = 1

// Message is the envelope carried by every queue backend. Payload is the
// producer's JSON document and is decoded by the consumer.
type Message struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	RequestID  string          `json:"requestId,omitempty"`
	EnqueuedAt string          `json:"enqueuedAt"`
	Version    int             `json:"version"`
	Payload    json.RawMessage `json:"payload"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(msg.Kind) == "" {
		return Message{}, errors.New("message kind is required")
	}
	return msg, nil
}
