package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope stored on a list.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func ParsePayload[T any](m Message) (*T, error) {
	var result T
	if err := json.Unmarshal(m.Payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", m.Type, err)
	}
	return &result, nil
}
