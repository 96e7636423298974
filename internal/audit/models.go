package audit

import "time"

// Event is one append-only activity log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Recording is best-effort; a failed append never fails the user action.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id" db:"actor_user_id"`
	ActorEmail  string `json:"actor_email,omitempty" db:"actor_email"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers, set depending on Type.
	LeadID     string `json:"lead_id,omitempty" db:"lead_id"`
	PipelineID string `json:"pipeline_id,omitempty" db:"pipeline_id"`
	FromStage  string `json:"from_stage,omitempty" db:"from_stage"`
	ToStage    string `json:"to_stage,omitempty" db:"to_stage"`
	SMSID      string `json:"sms_id,omitempty" db:"sms_id"`

	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventLeadMoved         EventType = "lead_moved"
	EventLeadUpdated       EventType = "lead_updated"
	EventSMSSent           EventType = "sms_sent"
	EventSMSDeleted        EventType = "sms_deleted"
	EventContractConfirmed EventType = "contract_confirmed"
)

// Actor is who did something.
type Actor struct {
	UserID string
	Email  string
	Role   string
	IP     string
}

// Filter narrows List. Zero values mean no constraint.
type Filter struct {
	ActorUserID string
	LeadID      string
	Type        EventType
	Limit       int
}
