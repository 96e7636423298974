// Package notify carries per-user push events between console instances
// over Redis pub/sub. One channel per user: notifications:user:<id>.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contract-sender/internal/sms"
	"contract-sender/internal/timestamp"
)

const EventContractConfirmed = "contract_confirmed"

var ErrUnknownEvent = errors.New("notify: unknown event type")

// Event is one push message.
type Event struct {
	Type        string          `json:"type"`
	UserID      string          `json:"user_id"`
	RecordID    string          `json:"record_id,omitempty"`
	MessageID   string          `json:"message_id,omitempty"`
	PhoneNumber string          `json:"phone_number,omitempty"`
	ConfirmedAt timestamp.Value `json:"confirmed_at,omitempty"`
}

// Confirmation converts a contract_confirmed event for the tracker.
func (e Event) Confirmation() sms.Confirmation {
	return sms.Confirmation{
		RecordID:    e.RecordID,
		MessageID:   e.MessageID,
		PhoneNumber: e.PhoneNumber,
		ConfirmedAt: e.ConfirmedAt,
	}
}

func Channel(userID string) string { return "notifications:user:" + userID }

// Decode parses a channel payload. Unknown types are rejected so a newer
// publisher cannot confuse an older subscriber.
func Decode(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("notify: decode event: %w", err)
	}
	if e.Type != EventContractConfirmed {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	if e.UserID == "" {
		return Event{}, errors.New("notify: event without user_id")
	}
	return e, nil
}

// Bus publishes events and streams a user's events until ctx ends or the
// returned cancel is called.
type Bus interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error)
}
