package calls

import (
	"time"

	"contract-sender/internal/timestamp"
)

// Record is one telephone call event as returned by the call-log endpoint.
//
// Timestamps are kept as timestamp.Value: the backend mixes ISO strings and
// epoch-seconds objects, and a malformed start time must exclude the record
// from windowed statistics rather than fail decoding of the whole list.
type Record struct {
	ID             string `json:"id"`
	ProviderCallID string `json:"call_id,omitempty"`

	From      string    `json:"from_number"`
	To        string    `json:"to_number"`
	Direction Direction `json:"direction"`

	UserID     string `json:"user_id"`
	AgentID    string `json:"agent_id,omitempty"`
	AgentEmail string `json:"agent_email,omitempty"`

	StartTime timestamp.Value `json:"start_time"`
	EndTime   timestamp.Value `json:"end_time,omitempty"`

	// Duration is the generic duration in seconds. WebhookDuration is the
	// value reported by the telephony provider's status webhook and wins
	// when present.
	Duration        *float64 `json:"duration,omitempty"`
	WebhookDuration *float64 `json:"webhook_duration,omitempty"`

	Status Status  `json:"status"`
	Cost   float64 `json:"cost"`
}

// Start returns the normalized start instant.
func (r Record) Start() (time.Time, bool) {
	return r.StartTime.Time()
}

// DurationSeconds returns the authoritative duration, never negative.
func (r Record) DurationSeconds() float64 {
	var d float64
	switch {
	case r.WebhookDuration != nil:
		d = *r.WebhookDuration
	case r.Duration != nil:
		d = *r.Duration
	}
	if d < 0 {
		return 0
	}
	return d
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Status is the provider call status. Only completed and failed are
// counted separately in statistics; other values count toward totals only.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusNoAnswer   Status = "no_answer"
	StatusBusy       Status = "busy"
	StatusCanceled   Status = "canceled"
)
