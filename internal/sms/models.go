package sms

import (
	"contract-sender/internal/timestamp"
)

// Record is one outbound templated SMS and its confirmation state.
type Record struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id,omitempty"`

	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email,omitempty"`

	PhoneNumber string `json:"phone_number"`
	LeadID      string `json:"lead_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`

	OriginalMessage  string `json:"original_message"`
	ProcessedMessage string `json:"processed_message"`

	Status            string          `json:"status"`
	ContractConfirmed bool            `json:"contract_confirmed"`
	ConfirmedAt       timestamp.Value `json:"confirmed_at,omitempty"`

	CreatedAt timestamp.Value `json:"created_at,omitempty"`
}

// Confirmation is the contract-confirmed signal for one record, delivered
// by polling or by the push channel.
type Confirmation struct {
	RecordID    string          `json:"record_id,omitempty"`
	MessageID   string          `json:"message_id,omitempty"`
	PhoneNumber string          `json:"phone_number,omitempty"`
	ConfirmedAt timestamp.Value `json:"confirmed_at,omitempty"`
}

// Settings is the calling-number configuration from /sms-settings.
type Settings struct {
	SenderName    string `json:"sender_name,omitempty"`
	CallingNumber string `json:"calling_number,omitempty"`
	DefaultTermID string `json:"default_terms_id,omitempty"`
}
