package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

type Kind string

const (
	KindPasswordReset   Kind = "password_reset"
	KindPasswordChanged Kind = "password_changed"
)

// Message is the unit handed to the mail worker. A reset secret is only ever
// present inside Link.
type Message struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	To       string    `json:"to"`
	Link     string    `json:"link,omitempty"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Values flattens the message into redis stream fields.
func (m Message) Values() map[string]any {
	return map[string]any{
		"id":       m.ID,
		"kind":     string(m.Kind),
		"to":       m.To,
		"link":     m.Link,
		"issuedAt": m.IssuedAt.UTC().Format(time.RFC3339Nano),
	}
}

// DecodeValues is the inverse of Values.
func DecodeValues(values map[string]any) (Message, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return Message{}, err
	}
	return Decode(raw)
}

func Decode(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("decode mail message: %w", err)
	}
	switch msg.Kind {
	case KindPasswordReset, KindPasswordChanged:
	default:
		return Message{}, fmt.Errorf("decode mail message: unknown kind %q", msg.Kind)
	}
	if msg.To == "" {
		return Message{}, fmt.Errorf("decode mail message %s: missing recipient", msg.ID)
	}
	return msg, nil
}
